package distributor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/distributor"
	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

func activity(tx string) domain.QueueActivity {
	return domain.QueueActivity{Activity: domain.Activity{TransactionHash: tx}}
}

// TestRoundRobin_EvenSplit mirrors spec §8 scenario 1: 3 workers, 6 activities,
// each worker receives exactly 2.
func TestRoundRobin_EvenSplit(t *testing.T) {
	reg := distributor.NewRegistry()
	d := distributor.New(reg)

	sinks := make([]*distributor.ChannelSink, 3)
	for i := range sinks {
		sinks[i] = distributor.NewChannelSink(string(rune('1'+i)), 10)
		d.Register(sinks[i])
	}

	for i := 1; i <= 6; i++ {
		require.NoError(t, d.Publish(activity("0x0"+string(rune('0'+i)))))
	}

	total := 0
	for _, s := range sinks {
		count := len(s.Messages())
		assert.Equal(t, 2, count)
		total += count
	}
	assert.Equal(t, 6, total)
}

// TestBacklogFlush_DeliversOnRegister mirrors spec §8 scenario 3: publish with zero workers,
// then register one; it receives exactly the backlogged activity.
func TestBacklogFlush_DeliversOnRegister(t *testing.T) {
	reg := distributor.NewRegistry()
	d := distributor.New(reg)

	require.NoError(t, d.Publish(activity("0xBUF")))
	assert.Equal(t, 1, d.BacklogLen())

	sink := distributor.NewChannelSink("w1", 10)
	d.Register(sink)

	assert.Equal(t, 0, d.BacklogLen())
	require.Len(t, sink.Messages(), 1)
	msg := <-sink.Messages()
	assert.Equal(t, ports.MessageActivity, msg.Kind)
	qa := msg.Payload.(domain.QueueActivity)
	assert.Equal(t, "0xBUF", qa.TransactionHash)
}

// TestBroadcastShutdown_ReachesEveryWorker mirrors spec §8 scenario 4.
func TestBroadcastShutdown_ReachesEveryWorker(t *testing.T) {
	reg := distributor.NewRegistry()
	d := distributor.New(reg)

	s1 := distributor.NewChannelSink("w1", 1)
	s2 := distributor.NewChannelSink("w2", 1)
	d.Register(s1)
	d.Register(s2)

	d.BroadcastShutdown()

	for _, s := range []*distributor.ChannelSink{s1, s2} {
		select {
		case msg := <-s.Messages():
			assert.Equal(t, ports.MessageShutdown, msg.Kind)
		case <-time.After(time.Second):
			t.Fatalf("worker %s did not receive shutdown", s.ID())
		}
	}
}

func TestPublish_NoWorkersIsNotAnError(t *testing.T) {
	d := distributor.New(distributor.NewRegistry())
	assert.NoError(t, d.Publish(activity("0x01")))
	assert.Equal(t, 1, d.BacklogLen())
}

func TestUnregister_RemovesWorkerFromRotation(t *testing.T) {
	reg := distributor.NewRegistry()
	d := distributor.New(reg)

	s1 := distributor.NewChannelSink("w1", 10)
	s2 := distributor.NewChannelSink("w2", 10)
	d.Register(s1)
	d.Register(s2)
	d.Unregister("w1")

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Publish(activity("0x0"+string(rune('0'+i)))))
	}

	assert.Equal(t, 4, len(s2.Messages()))
	assert.Equal(t, 0, len(s1.Messages()))
}

package wsworker_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymirror/copytrader/internal/adapters/wsworker"
	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

// fakeLocalSink collects every message handed to it by Dial, standing in
// for a distributor.ChannelSink without pulling in that package.
type fakeLocalSink struct {
	mu       sync.Mutex
	messages []ports.Message
}

func (f *fakeLocalSink) Send(msg ports.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeLocalSink) snapshot() []ports.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func TestHandlerAndDialRoundTrip(t *testing.T) {
	connected := make(chan *wsworker.Sink, 1)
	closed := make(chan string, 1)

	server := httptest.NewServer(wsworker.Handler(
		func(s *wsworker.Sink) { connected <- s },
		func(id string) { closed <- id },
	))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &fakeLocalSink{}
	dialErr := make(chan error, 1)
	go func() { dialErr <- wsworker.Dial(ctx, wsURL, local) }()

	var sink *wsworker.Sink
	select {
	case sink = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for remote worker to connect")
	}
	require.NotEmpty(t, sink.ID())

	activity := domain.QueueActivity{
		Activity:     domain.Activity{ConditionID: "0xabc", Side: domain.Buy, UsdcSize: 42.5},
		DetectedAtMs: 1000,
	}
	require.NoError(t, sink.Send(ports.Message{Kind: ports.MessageActivity, Payload: activity}))

	require.Eventually(t, func() bool {
		return len(local.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond, "local sink never received the relayed activity")

	got := local.snapshot()[0]
	assert.Equal(t, ports.MessageActivity, got.Kind)
	relayed, ok := got.Payload.(domain.QueueActivity)
	require.True(t, ok, "payload should decode back into a domain.QueueActivity")
	assert.Equal(t, activity.ConditionID, relayed.ConditionID)
	assert.Equal(t, activity.UsdcSize, relayed.UsdcSize)

	require.NoError(t, sink.Send(ports.Message{Kind: ports.MessageShutdown}))

	select {
	case err := <-dialErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Dial never returned after a shutdown frame")
	}

	require.NoError(t, sink.Close())

	select {
	case id := <-closed:
		assert.Equal(t, sink.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("onClose was never invoked after the connection closed")
	}
}

func TestDialRespectsContextCancellation(t *testing.T) {
	connected := make(chan *wsworker.Sink, 1)
	server := httptest.NewServer(wsworker.Handler(
		func(s *wsworker.Sink) { connected <- s },
		func(string) {},
	))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	local := &fakeLocalSink{}
	dialErr := make(chan error, 1)
	go func() { dialErr <- wsworker.Dial(ctx, wsURL, local) }()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
	}

	cancel()

	select {
	case err := <-dialErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Dial did not return after ctx cancellation")
	}
}

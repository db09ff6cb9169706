package ports

// MessageKind tags a worker control-plane message (spec §6).
type MessageKind string

const (
	MessageActivity MessageKind = "activity"
	MessageShutdown MessageKind = "shutdown"
)

// Message is what the distributor hands to a worker sink: a QueueActivity
// payload tagged "activity", or an empty "shutdown" signal.
type Message struct {
	Kind    MessageKind
	Payload any // domain.QueueActivity when Kind == MessageActivity
}

// WorkerSink is the capability a registered worker exposes to the
// distributor: accept a message, or close down. Concrete implementations
// are in-process channel ends (internal/distributor.ChannelSink) or
// remote mailboxes (internal/adapters/wsworker).
//
// Per spec §4.2, Send is fire-and-forget: the distributor never awaits
// acknowledgement.
type WorkerSink interface {
	ID() string
	Send(msg Message) error
	Close() error
}

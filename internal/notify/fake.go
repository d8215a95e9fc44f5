package notify

import "context"

// FakeNotifier records messages for test assertions.
type FakeNotifier struct {
	// Messages contains every message passed to Send, including failed ones.
	Messages []string

	// SendError, if set, will be returned by Send.
	SendError error
}

// NewFakeNotifier creates a FakeNotifier for testing.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// Send records the message.
func (f *FakeNotifier) Send(_ context.Context, message string) error {
	f.Messages = append(f.Messages, message)
	return f.SendError
}

package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ahmeterenokur9/Data-Validation-and-Data-Contracts/natsclient"
)

// PublishedMessage is one message captured by a FakeTransport.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// FakeTransport is an in-memory stand-in for a broker connection. It
// mirrors the subscription semantics of natsclient.Client — one
// subscription per subject, duplicate subscribes rejected — and records
// every published message for verification. Published messages are also
// delivered to a matching subscription, so loops behave like a real
// broker would.
//
// All methods are safe for concurrent use. Handlers run outside the
// transport lock, so a handler may publish or subscribe without
// deadlocking.
type FakeTransport struct {
	mu        sync.RWMutex
	url       string
	handlers  map[string]func(context.Context, []byte)
	published []PublishedMessage
	closed    bool

	subscribeErr   error
	unsubscribeErr error
	publishErr     error
}

// NewFakeTransport returns a connected FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		handlers: make(map[string]func(context.Context, []byte)),
	}
}

// SetSubscribeError makes every subsequent Subscribe fail with err.
// Pass nil to restore normal behavior.
func (f *FakeTransport) SetSubscribeError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = err
}

// SetUnsubscribeError makes every subsequent Unsubscribe fail with err.
func (f *FakeTransport) SetUnsubscribeError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribeErr = err
}

// SetPublishError makes every subsequent Publish fail with err.
func (f *FakeTransport) SetPublishError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErr = err
}

// Subscribe registers the handler for a subject. Like the real client,
// a subject can carry at most one subscription.
func (f *FakeTransport) Subscribe(_ context.Context, subject string, handler func(context.Context, []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return natsclient.ErrNotConnected
	}
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	if _, ok := f.handlers[subject]; ok {
		return natsclient.ErrAlreadySubscribed
	}
	f.handlers[subject] = handler
	return nil
}

// Unsubscribe removes the subject's subscription.
func (f *FakeTransport) Unsubscribe(subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsubscribeErr != nil {
		return f.unsubscribeErr
	}
	if _, ok := f.handlers[subject]; !ok {
		return natsclient.ErrNotSubscribed
	}
	delete(f.handlers, subject)
	return nil
}

// Publish records the message and, when the subject has a subscription,
// delivers it. The handler is invoked after the lock is released.
func (f *FakeTransport) Publish(ctx context.Context, subject string, data []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return natsclient.ErrNotConnected
	}
	if err := f.publishErr; err != nil {
		f.mu.Unlock()
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.published = append(f.published, PublishedMessage{Subject: subject, Data: buf})
	handler := f.handlers[subject]
	f.mu.Unlock()

	if handler != nil {
		handler(ctx, buf)
	}
	return nil
}

// Deliver simulates an inbound broker message: the subject's handler
// runs synchronously on the calling goroutine, so state changes it
// causes are visible as soon as Deliver returns. Delivering to a
// subject without a subscription returns ErrNotSubscribed.
func (f *FakeTransport) Deliver(ctx context.Context, subject string, data []byte) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return natsclient.ErrNotConnected
	}
	handler := f.handlers[subject]
	f.mu.RUnlock()

	if handler == nil {
		return natsclient.ErrNotSubscribed
	}
	handler(ctx, data)
	return nil
}

// GetStatus reports a connected status with the live subscription count.
func (f *FakeTransport) GetStatus() *natsclient.Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st := &natsclient.Status{
		Status:        natsclient.StatusConnected,
		Subscriptions: len(f.handlers),
	}
	if f.closed {
		st.Status = natsclient.StatusDisconnected
		st.Subscriptions = 0
	}
	return st
}

// Close marks the transport disconnected and drops its subscriptions.
// Closing twice is fine.
func (f *FakeTransport) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.handlers = make(map[string]func(context.Context, []byte))
	return nil
}

// Closed reports whether Close has been called.
func (f *FakeTransport) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Subjects returns the currently subscribed subjects, sorted.
func (f *FakeTransport) Subjects() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.handlers))
	for s := range f.handlers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Published returns copies of every captured message, in publish order.
func (f *FakeTransport) Published() []PublishedMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]PublishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

// PublishedOn returns the payloads published to one subject, in order.
func (f *FakeTransport) PublishedOn(subject string) [][]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out [][]byte
	for _, m := range f.published {
		if m.Subject == subject {
			out = append(out, m.Data)
		}
	}
	return out
}

// PublishCount returns how many messages were published to a subject.
func (f *FakeTransport) PublishCount(subject string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, m := range f.published {
		if m.Subject == subject {
			n++
		}
	}
	return n
}

// ClearPublished discards the captured messages. Subscriptions survive.
func (f *FakeTransport) ClearPublished() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
}

// WaitForPublished polls until a message shows up on the subject or the
// timeout expires, and returns the first payload. Useful when the
// publisher runs on another goroutine.
func WaitForPublished(t *testing.T, ft *FakeTransport, subject string, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msgs := ft.PublishedOn(subject); len(msgs) > 0 {
			return msgs[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for a message on %s", subject)
	return nil
}

// FakeDialer hands out FakeTransports and remembers every dial, so
// tests can reach the connection an engine is using and inspect or
// sabotage it.
type FakeDialer struct {
	mu         sync.Mutex
	dialErr    error
	onDial     func(*FakeTransport)
	transports []*FakeTransport
	urls       []string
}

// NewFakeDialer returns an empty dialer.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{}
}

// SetDialError makes every subsequent Dial fail with err. Pass nil to
// restore normal behavior.
func (d *FakeDialer) SetDialError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

// OnDial registers a hook that runs on each new transport before Dial
// returns it, e.g. to pre-arm a failure.
func (d *FakeDialer) OnDial(fn func(*FakeTransport)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDial = fn
}

// Dial returns a fresh connected FakeTransport for the URL.
func (d *FakeDialer) Dial(_ context.Context, url string) (*FakeTransport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	ft := NewFakeTransport()
	ft.url = url
	if d.onDial != nil {
		d.onDial(ft)
	}
	d.transports = append(d.transports, ft)
	d.urls = append(d.urls, url)
	return ft, nil
}

// DialCount returns how many dials succeeded.
func (d *FakeDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

// DialedURLs returns the broker URLs dialed, in order.
func (d *FakeDialer) DialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

// Last returns the most recently dialed transport, or nil before the
// first dial.
func (d *FakeDialer) Last() *FakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

// Transport returns the i-th dialed transport.
func (d *FakeDialer) Transport(i int) *FakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[i]
}

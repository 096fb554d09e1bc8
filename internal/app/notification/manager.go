// Package notification broadcasts automation events to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/automation"
)

const (
	// DefaultSendTimeout bounds a single subscriber send.
	DefaultSendTimeout = 500 * time.Millisecond
	// maxFailures drops a subscriber after this many consecutive failed
	// or timed out sends.
	maxFailures = 3
)

// Notification is a sequence numbered automation event.
type Notification struct {
	SequenceNo uint64
	Event      automation.Event
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(*Notification) error

// Send calls f.
func (f StreamFunc) Send(n *Notification) error {
	return f(n)
}

type subscription struct {
	id       string
	stream   Stream
	failures int
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	timeout       time.Duration

	sequenceNo   uint64
	sequenceNoMu sync.Mutex
}

// NewManager creates a new notification manager. A non-positive timeout
// uses DefaultSendTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		timeout:       timeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast sends an event to all subscribers in parallel, each bounded by
// the send timeout, and returns the number of successful deliveries.
func (m *Manager) Broadcast(ev automation.Event) int {
	n := &Notification{SequenceNo: m.nextSequenceNo(), Event: ev}

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	results := make([]bool, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, s *subscription) {
			defer wg.Done()
			results[i] = m.send(s, n)
		}(i, sub)
	}
	wg.Wait()

	delivered := 0
	m.mu.Lock()
	for i, s := range subs {
		if results[i] {
			delivered++
			s.failures = 0
			continue
		}
		s.failures++
		if s.failures >= maxFailures {
			delete(m.subscriptions, s.id)
			zlog.Warn().Msgf("notification: subscriber dropped after %d failures: id=%s", s.failures, s.id)
		}
	}
	m.mu.Unlock()
	return delivered
}

func (m *Manager) send(s *subscription, n *Notification) bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.stream.Send(n)
	}()

	select {
	case err := <-done:
		if err != nil {
			zlog.Debug().Msgf("notification: send failed: id=%s, err=%v", s.id, err)
			return false
		}
		return true
	case <-ctx.Done():
		zlog.Debug().Msgf("notification: send timed out: id=%s", s.id)
		return false
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

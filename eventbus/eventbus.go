// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package eventbus implements the §6 external interface #4 Event bus: a
// small typed fan-out sized to the five WebSocket lifecycle events the
// wspool pool actually emits, rather than a generic reflect-based Feed.
package eventbus

import "sync"

// Type is one of the WebSocket-pool lifecycle events named in §6.
type Type string

const (
	WebsocketConnected      Type = "WEBSOCKET_CONNECTED"
	WebsocketDisconnected   Type = "WEBSOCKET_DISCONNECTED"
	WebsocketReconnecting   Type = "WEBSOCKET_RECONNECTING"
	WebsocketFailed         Type = "WEBSOCKET_FAILED"
	TransportFallbackToPoll Type = "TRANSPORT_FALLBACK_TO_POLLING"
)

// Event is the payload delivered to every subscriber.
type Event struct {
	Type    Type
	ChainID string
	Payload interface{}
}

// Subscription is returned by Subscribe; Unsubscribe stops delivery and may
// be called more than once safely.
type Subscription interface {
	Unsubscribe()
}

// Bus is the emit(eventType, chainId, payload) contract from §6. Send is
// non-blocking per subscriber: a subscriber whose channel is full misses
// the event rather than stalling the emitter.
type Bus struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	bus  *Bus
	ch   chan<- Event
	once sync.Once
}

// New creates an empty Bus.
func New() *Bus { return &Bus{subs: make(map[*subscriber]struct{})} }

// Emit sends an Event to every current subscriber, returning the number
// reached.
func (b *Bus) Emit(t Type, chainID string, payload interface{}) int {
	ev := Event{Type: t, ChainID: chainID, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for s := range b.subs {
		select {
		case s.ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Subscribe registers ch to receive every future Event until Unsubscribed.
func (b *Bus) Subscribe(ch chan<- Event) Subscription {
	s := &subscriber{bus: b, ch: ch}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
	})
}

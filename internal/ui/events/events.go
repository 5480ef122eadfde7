// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events is a small synchronous publish/subscribe bus for UI
// components. Subscribing returns a Subscription that the owner must release;
// owners collect them in a Group and close it when they are disposed, so no
// handler outlives the component that registered it.
package events

import "sync"

// Topic names an event stream.
type Topic string

// Keyboard topics carry a KeyboardFrame.
const (
	KeyboardWillShow Topic = "keyboard.will_show"
	KeyboardWillHide Topic = "keyboard.will_hide"
)

// KeyboardFrame describes the on-screen key panel. Height is in rows and is
// the inset the form must leave free at the bottom.
type KeyboardFrame struct {
	Height int
}

// Handler receives a published payload.
type Handler func(payload any)

// =============================================================================
// BUS
// =============================================================================

// Bus delivers each published payload to the topic's handlers in
// subscription order, on the publisher's goroutine.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]entry
}

type entry struct {
	id uint64
	fn Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]entry)}
}

// Subscribe registers fn for topic until the returned subscription is
// released.
func (b *Bus) Subscribe(topic Topic, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], entry{id: id, fn: fn})
	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish calls every handler subscribed to topic. Handlers released during
// delivery are not called afterwards.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	snapshot := append([]entry(nil), b.subs[topic]...)
	b.mu.Unlock()

	for _, e := range snapshot {
		if b.active(topic, e.id) {
			e.fn(payload)
		}
	}
}

func (b *Bus) active(topic Topic, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.subs[topic] {
		if e.id == id {
			return true
		}
	}
	return false
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[topic]
	for i, e := range list {
		if e.id == id {
			b.subs[topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription is a handle on one registered handler.
type Subscription struct {
	bus   *Bus
	topic Topic
	id    uint64
	once  sync.Once
}

// Unsubscribe releases the handler. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

// =============================================================================
// GROUP
// =============================================================================

// Group owns a set of release functions and runs them all on Close, newest
// first.
type Group struct {
	mu       sync.Mutex
	releases []func()
	closed   bool
}

// Add registers release. If the group is already closed, release runs now.
func (g *Group) Add(release func()) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		release()
		return
	}
	g.releases = append(g.releases, release)
	g.mu.Unlock()
}

// Track adds s to the group and returns it.
func (g *Group) Track(s *Subscription) *Subscription {
	g.Add(s.Unsubscribe)
	return s
}

// Len returns the number of pending releases.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.releases)
}

// Close runs every release once. Later calls do nothing.
func (g *Group) Close() {
	g.mu.Lock()
	releases := g.releases
	g.releases = nil
	g.closed = true
	g.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}

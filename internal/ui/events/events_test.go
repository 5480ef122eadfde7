// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBus_PublishInOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(KeyboardWillShow, func(p any) { got = append(got, "a") })
	bus.Subscribe(KeyboardWillShow, func(p any) { got = append(got, "b") })
	bus.Subscribe(KeyboardWillHide, func(p any) { got = append(got, "hide") })

	bus.Publish(KeyboardWillShow, KeyboardFrame{Height: 3})

	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("handlers called = %v, want %v", got, want)
	}
}

func TestBus_PayloadDelivered(t *testing.T) {
	bus := NewBus()
	var frame KeyboardFrame
	bus.Subscribe(KeyboardWillShow, func(p any) { frame = p.(KeyboardFrame) })

	bus.Publish(KeyboardWillShow, KeyboardFrame{Height: 4})
	if frame.Height != 4 {
		t.Errorf("frame.Height = %d, want 4", frame.Height)
	}
}

func TestSubscription_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub := bus.Subscribe(KeyboardWillShow, func(p any) { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(KeyboardWillShow, nil)

	if calls != 0 {
		t.Errorf("handler called %d times after Unsubscribe", calls)
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var second *Subscription
	secondCalls := 0
	bus.Subscribe(KeyboardWillHide, func(p any) { second.Unsubscribe() })
	second = bus.Subscribe(KeyboardWillHide, func(p any) { secondCalls++ })

	bus.Publish(KeyboardWillHide, nil)
	if secondCalls != 0 {
		t.Errorf("released handler was still called")
	}
}

func TestGroup_Close(t *testing.T) {
	bus := NewBus()
	var g Group
	calls := 0
	g.Track(bus.Subscribe(KeyboardWillShow, func(p any) { calls++ }))
	g.Track(bus.Subscribe(KeyboardWillHide, func(p any) { calls++ }))

	var order []int
	g.Add(func() { order = append(order, 1) })
	g.Add(func() { order = append(order, 2) })

	if g.Len() != 4 {
		t.Errorf("Len = %d, want 4", g.Len())
	}

	g.Close()
	g.Close()

	bus.Publish(KeyboardWillShow, nil)
	bus.Publish(KeyboardWillHide, nil)
	if calls != 0 {
		t.Errorf("handlers called %d times after Close", calls)
	}
	if want := []int{2, 1}; !reflect.DeepEqual(order, want) {
		t.Errorf("release order = %v, want %v", order, want)
	}

	ran := false
	g.Add(func() { ran = true })
	if !ran {
		t.Error("Add after Close should release immediately")
	}
}

func TestBus_Concurrent(t *testing.T) {
	bus := NewBus()
	var calls atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(KeyboardWillShow, func(p any) { calls.Add(1) })
			bus.Publish(KeyboardWillShow, KeyboardFrame{})
			sub.Unsubscribe()
		}()
	}
	wg.Wait()

	calls.Store(0)
	bus.Publish(KeyboardWillShow, KeyboardFrame{})
	if n := calls.Load(); n != 0 {
		t.Errorf("%d handlers still subscribed", n)
	}
}

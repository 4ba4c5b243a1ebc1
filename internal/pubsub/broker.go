// Package pubsub fans typed events out to in-process subscribers.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	bufferSize  = 64
	sendTimeout = 2 * time.Second
)

type EventType string

type Event[T any] struct {
	Type    EventType
	Payload T
}

// Subscriber hands out channels that close when ctx is done or the
// publisher shuts down.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

// Broker fans events out to subscribers. A subscription lives until its
// context is done or the broker shuts down.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[chan Event[T]]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

var (
	_ Subscriber[string] = (*Broker[string])(nil)
	_ Publisher[string]  = (*Broker[string])(nil)
)

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]context.CancelFunc),
	}
}

// Shutdown closes every subscriber channel and waits for the broker's
// goroutines to exit. Further publishes are dropped.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for ch, cancel := range b.subs {
		cancel()
		close(ch)
		delete(b.subs, ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	slog.Debug("pubsub broker shut down", "type", fmt.Sprintf("%T", *new(T)))
}

func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	subCtx, cancel := context.WithCancel(ctx)
	b.subs[ch] = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		<-subCtx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			close(ch)
			delete(b.subs, ch)
		}
	}()
	return ch
}

// Publish never blocks. A full subscriber gets the event from a goroutine
// with a timeout, so its delivery order may differ from publish order.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	ev := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.wg.Add(1)
			go b.sendSlow(ch, ev)
		}
	}
}

func (b *Broker[T]) sendSlow(ch chan Event[T], ev Event[T]) {
	defer b.wg.Done()
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()
	for {
		b.mu.RLock()
		_, ok := b.subs[ch]
		if !ok {
			b.mu.RUnlock()
			return
		}
		select {
		case ch <- ev:
			b.mu.RUnlock()
			return
		default:
		}
		b.mu.RUnlock()

		select {
		case <-timer.C:
			slog.Warn("pubsub dropped event for slow subscriber", "type", ev.Type)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package utils

import (
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

// Topic fans values out to every subscriber. Publishing never blocks: a
// subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
	buffer      int
	closed      bool
	dropped     atomic.Int64
}

func NewTopic[T any](buffer int) *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
		buffer:      buffer,
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
		default:
			t.dropped.Add(1)
		}
	}
	t.mutex.Unlock()
}

// Dropped counts values that did not fit in a subscriber's buffer.
func (t *Topic[T]) Dropped() int64 {
	return t.dropped.Load()
}

// Close ends every subscription. Subscribing to a closed topic yields a
// subscriber whose channel is already closed.
func (t *Topic[T]) Close() {
	t.mutex.Lock()
	t.closed = true
	for subscriber := range t.subscribers {
		close(subscriber)
		delete(t.subscribers, subscriber)
	}
	t.mutex.Unlock()
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, t.buffer)
	t.mutex.Lock()
	if t.closed {
		close(channel)
	} else {
		t.subscribers[channel] = struct{}{}
	}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

func (t *Subscriber[T]) Done() {
	topic := t.topic
	topic.mutex.Lock()
	if _, ok := topic.subscribers[t.channel]; ok {
		delete(topic.subscribers, t.channel)
		close(t.channel)
	}
	topic.mutex.Unlock()
}

package utils

import (
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
)

// Topic fans values out to every subscriber. Publishing never blocks: a
// subscriber whose buffer is full misses the value and has its drop count
// incremented.
type Topic[T any] struct {
	subscribers map[*Subscriber[T]]struct{}
	buffer      int
	mutex       deadlock.RWMutex
}

func NewTopic[T any](buffer int) *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[*Subscriber[T]]struct{}),
		buffer:      buffer,
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for subscriber := range t.subscribers {
		select {
		case subscriber.channel <- value:
		default:
			subscriber.dropped.Inc()
		}
	}
}

func (t *Topic[T]) NumSubscribers() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.subscribers)
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	subscriber := &Subscriber[T]{
		channel: make(chan T, t.buffer),
		topic:   t,
	}

	t.mutex.Lock()
	t.subscribers[subscriber] = struct{}{}
	t.mutex.Unlock()

	return subscriber
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
	dropped atomic.Int64
}

func (s *Subscriber[T]) Recv() <-chan T {
	return s.channel
}

// Dropped returns how many values were published while this subscriber's
// buffer was full.
func (s *Subscriber[T]) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscriber[T]) Done() {
	topic := s.topic
	topic.mutex.Lock()
	delete(topic.subscribers, s)
	topic.mutex.Unlock()
}

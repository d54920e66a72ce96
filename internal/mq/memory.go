package mq

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

const memoryBuffer = 64

// ErrClosed is returned by a backend after Close.
var ErrClosed = errors.New("mq backend closed")

// MemoryBackend delivers messages to subscribers within the process. It is
// the default when no broker is configured.
type MemoryBackend struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Message
	nextID int
	seq    int
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{subs: make(map[string]map[int]chan Message)}
}

// Publish hands msg to every current subscriber of channel. A subscriber
// whose buffer is full misses the message.
func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}

	m.seq++
	msg := Message{ID: strconv.Itoa(m.seq), Data: data, Attributes: attrs}
	for _, ch := range m.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe delivers messages of channel to handler until ctx is done.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	ch, id, err := m.add(channel)
	if err != nil {
		return err
	}
	defer m.remove(channel, id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			_ = handler(ctx, msg)
		}
	}
}

// Close stops all subscribers.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, subs := range m.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	m.subs = nil
	return nil
}

func (m *MemoryBackend) add(channel string) (chan Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, 0, ErrClosed
	}
	m.nextID++
	ch := make(chan Message, memoryBuffer)
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[int]chan Message)
	}
	m.subs[channel][m.nextID] = ch
	return ch, m.nextID, nil
}

func (m *MemoryBackend) remove(channel string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	delete(m.subs[channel], id)
}

func (m *MemoryBackend) subscribers(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[channel])
}

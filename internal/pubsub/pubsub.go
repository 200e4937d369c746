// Package pubsub fans live events out to subscribers. Redis carries them
// between API instances; the in-process broker serves single-node setups.
package pubsub

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Broker publishes payloads and streams them to subscribers. Subscription
// channels close when the subscriber's context ends.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// New returns the Redis broker when url is set, else an in-process one.
func New(url string) (Broker, error) {
	if url == "" {
		return NewMemory(), nil
	}
	return Shared(url)
}

const bufSize = 16

type Memory struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: map[string]map[chan []byte]struct{}{}}
}

// Publish never blocks; a subscriber whose buffer is full misses the payload.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, bufSize)
	m.mu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = map[chan []byte]struct{}{}
	}
	m.subs[channel][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[channel], ch)
		if len(m.subs[channel]) == 0 {
			delete(m.subs, channel)
		}
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// Subscribers reports how many live subscriptions a channel has.
func (m *Memory) Subscribers(channel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[channel])
}

type Redis struct {
	client *redis.Client
}

var (
	sharedOnce   sync.Once
	sharedClient *redis.Client
	sharedErr    error
)

// Shared returns a broker over the process-wide Redis client, created on
// first use. Later calls reuse it whatever url they pass.
func Shared(url string) (*Redis, error) {
	sharedOnce.Do(func() {
		opt, err := redis.ParseURL(url)
		if err != nil {
			sharedErr = err
			return
		}
		sharedClient = redis.NewClient(opt)
	})
	if sharedErr != nil {
		return nil, sharedErr
	}
	return &Redis{client: sharedClient}, nil
}

func NewRedis(client *redis.Client) *Redis { return &Redis{client: client} }

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := r.client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so no publish slips past
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan []byte, bufSize)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

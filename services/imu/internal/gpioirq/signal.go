// services/imu/internal/gpioirq/signal.go
package gpioirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"imucode-go/services/imu/internal/halcore"
	"imucode-go/x/timex"
)

// DefaultDepth is the token queue depth between ISR and consumer.
const DefaultDepth = 10

// Signal hands interrupt notifications from an ISR to one consumer
// goroutine. The ISR side only does a non-blocking channel send; all bus
// work happens in the consumer after Wait returns.
type Signal struct {
	// Written by ISR; MUST NOT block the ISR:
	isrQ chan struct{}

	mu     sync.Mutex
	pin    halcore.IRQPin
	timer  *time.Timer // consumer-owned
	drops  uint32      // ISR drop counter
	tokens uint32
}

func New(depth int) *Signal {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Signal{isrQ: make(chan struct{}, depth)}
}

// Notify is the ISR body. When the queue is full the token is dropped and
// counted; the consumer still sees the earlier tokens.
func (s *Signal) Notify() {
	select {
	case s.isrQ <- struct{}{}:
		atomic.AddUint32(&s.tokens, 1)
	default:
		atomic.AddUint32(&s.drops, 1) // protect ISR path
	}
}

// Attach installs Notify as pin's interrupt handler. The returned func
// detaches it. Only one pin may be attached at a time.
func (s *Signal) Attach(pin halcore.IRQPin, edge halcore.Edge) (func(), error) {
	if edge == halcore.EdgeNone {
		return func() {}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin != nil {
		_ = s.pin.ClearIRQ()
	}
	if err := pin.ConfigureInput(halcore.PullNone); err != nil {
		return nil, err
	}
	if err := pin.SetIRQ(edge, s.Notify); err != nil {
		return nil, err
	}
	s.pin = pin
	return func() {
		s.mu.Lock()
		if s.pin == pin {
			_ = pin.ClearIRQ()
			s.pin = nil
		}
		s.mu.Unlock()
	}, nil
}

// Wait blocks until a token arrives (true), timeout elapses (false) or ctx
// ends (ctx.Err()). A cancelled ctx wins over queued tokens. One consumer
// only.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Fast path: token already queued.
	select {
	case <-s.isrQ:
		return true, nil
	default:
	}
	if s.timer == nil {
		s.timer = time.NewTimer(timeout)
	} else {
		timex.ResetTimer(s.timer, timeout)
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.isrQ:
		return true, nil
	case <-s.timer.C:
		return false, nil
	}
}

func (s *Signal) Tokens() uint32   { return atomic.LoadUint32(&s.tokens) }
func (s *Signal) ISRDrops() uint32 { return atomic.LoadUint32(&s.drops) }

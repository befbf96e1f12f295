// services/imu/internal/gpioirq/signal_test.go

package gpioirq

import (
	"context"
	"sync"
	"testing"
	"time"

	"imucode-go/services/imu/internal/halcore"
)

// fakeIRQPin implements halcore.IRQPin with minimal behaviour for tests.
type fakeIRQPin struct {
	mu      sync.Mutex
	level   bool
	edge    halcore.Edge
	handler func()
	number  int
}

func (p *fakeIRQPin) ConfigureInput(_ halcore.Pull) error { return nil }
func (p *fakeIRQPin) ConfigureOutput(initial bool) error  { p.Set(initial); return nil }
func (p *fakeIRQPin) Set(b bool)                          { p.mu.Lock(); p.level = b; p.mu.Unlock() }
func (p *fakeIRQPin) Get() bool                           { p.mu.Lock(); defer p.mu.Unlock(); return p.level }
func (p *fakeIRQPin) Number() int                         { return p.number }
func (p *fakeIRQPin) SetIRQ(e halcore.Edge, h func()) error {
	p.mu.Lock()
	p.edge, p.handler = e, h
	p.mu.Unlock()
	return nil
}
func (p *fakeIRQPin) ClearIRQ() error {
	p.mu.Lock()
	p.edge, p.handler = halcore.EdgeNone, nil
	p.mu.Unlock()
	return nil
}
func (p *fakeIRQPin) fire() {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

func TestSignalDeliversToken(t *testing.T) {
	s := New(4)
	pin := &fakeIRQPin{number: 20}
	detach, err := s.Attach(pin, halcore.EdgeRising)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer detach()
	if pin.edge != halcore.EdgeRising {
		t.Fatalf("edge = %v", pin.edge)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		pin.fire()
	}()
	ok, err := s.Wait(context.Background(), time.Second)
	if err != nil || !ok {
		t.Fatalf("Wait = %v, %v; want token", ok, err)
	}
	if s.Tokens() != 1 {
		t.Fatalf("tokens = %d", s.Tokens())
	}
}

func TestSignalTimeout(t *testing.T) {
	s := New(4)
	start := time.Now()
	ok, err := s.Wait(context.Background(), 10*time.Millisecond)
	if err != nil || ok {
		t.Fatalf("Wait = %v, %v; want timeout", ok, err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("returned before timeout")
	}
	// Timer reuse: a second wait still honours its own timeout.
	s.Notify()
	ok, err = s.Wait(context.Background(), time.Hour)
	if err != nil || !ok {
		t.Fatalf("second Wait = %v, %v", ok, err)
	}
}

func TestSignalContextCancel(t *testing.T) {
	s := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := s.Wait(ctx, time.Hour)
	if ok || err != context.Canceled {
		t.Fatalf("Wait = %v, %v; want canceled", ok, err)
	}
}

func TestSignalCancelBeatsQueuedToken(t *testing.T) {
	s := New(2)
	s.Notify()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := s.Wait(ctx, time.Second)
	if ok || err != context.Canceled {
		t.Fatalf("Wait = %v, %v; want canceled", ok, err)
	}
	ok, err = s.Wait(context.Background(), time.Second)
	if !ok || err != nil {
		t.Fatalf("token lost: Wait = %v, %v", ok, err)
	}
}

func TestSignalDropsWhenFull(t *testing.T) {
	s := New(2)
	for i := 0; i < 5; i++ {
		s.Notify() // never blocks
	}
	if s.ISRDrops() != 3 || s.Tokens() != 2 {
		t.Fatalf("drops=%d tokens=%d, want 3/2", s.ISRDrops(), s.Tokens())
	}
}

func TestSignalDetach(t *testing.T) {
	s := New(2)
	pin := &fakeIRQPin{}
	detach, err := s.Attach(pin, halcore.EdgeRising)
	if err != nil {
		t.Fatal(err)
	}
	detach()
	pin.fire()
	if s.Tokens() != 0 {
		t.Fatal("token delivered after detach")
	}

	none, err := s.Attach(pin, halcore.EdgeNone)
	if err != nil || none == nil {
		t.Fatalf("EdgeNone attach: %v", err)
	}
	none()
}

// services/imu/internal/platform/simpin.go
package platform

import (
	"sync"

	"imucode-go/services/imu/internal/halcore"
)

// SimPin is an in-memory GPIO line. Set drives the level and runs the IRQ
// handler for matching edges, as a wired INT or CS line would.
type SimPin struct {
	n int

	mu      sync.Mutex
	high    bool
	output  bool
	edge    halcore.Edge
	handler func()
	edges   int // transitions that matched the IRQ edge
}

func (p *SimPin) Number() int { return p.n }

func (p *SimPin) ConfigureInput(halcore.Pull) error {
	p.mu.Lock()
	p.output = false
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output, p.high = true, initial
	p.mu.Unlock()
	return nil
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Set changes the level. The handler runs after the lock is released so
// it may call back into the pin.
func (p *SimPin) Set(high bool) {
	p.mu.Lock()
	var seen halcore.Edge
	switch {
	case high && !p.high:
		seen = halcore.EdgeRising
	case !high && p.high:
		seen = halcore.EdgeFalling
	}
	p.high = high
	fire := seen != halcore.EdgeNone && (p.edge == seen || p.edge == halcore.EdgeBoth)
	h := p.handler
	if fire && h != nil {
		p.edges++
	}
	p.mu.Unlock()
	if fire && h != nil {
		h()
	}
}

// Pulse drives a short high pulse, the shape of a non-latched interrupt.
func (p *SimPin) Pulse() {
	p.Set(true)
	p.Set(false)
}

// Edges counts handler invocations since the handler was installed.
func (p *SimPin) Edges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edges
}

func (p *SimPin) SetIRQ(edge halcore.Edge, handler func()) error {
	p.mu.Lock()
	p.edge, p.handler, p.edges = edge, handler, 0
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ClearIRQ() error { return p.SetIRQ(halcore.EdgeNone, nil) }

// SimPins hands out one SimPin per number.
type SimPins struct {
	mu   sync.Mutex
	pins map[int]*SimPin
}

func (f *SimPins) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.Pin(n), true
}

// Pin returns pin n, creating it on first use.
func (f *SimPins) Pin(n int) *SimPin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = map[int]*SimPin{}
	}
	p := f.pins[n]
	if p == nil {
		p = &SimPin{n: n}
		f.pins[n] = p
	}
	return p
}

// services/imu/internal/platform/factories_linux.go
//go:build linux && !rp2040 && !rp2350

package platform

import (
	"strconv"
	"sync"
	"time"

	"imucode-go/services/imu/internal/halcore"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// SPI bus parameters for the BMI270 (mode 0, up to 10 MHz).
const (
	SPIFrequency = 10 * physic.MegaHertz
	SPIMode      = spi.Mode0
	SPIBits      = 8
)

var hostInit struct {
	once sync.Once
	err  error
}

// initHost loads the periph host drivers once per process.
func initHost() error {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	return hostInit.err
}

// DefaultSPIFactory opens spidev ports through periph. Ids are periph port
// names such as "SPI0.0" or "/dev/spidev0.0"; "" selects the first port.
// spidev drives CS itself, so leave the CS pin unset.
func DefaultSPIFactory() halcore.SPIBusFactory {
	return &periphSPIFactory{conns: map[string]drivers.SPI{}}
}

// DefaultPinFactory maps numbers to periph GPIO names ("17" -> GPIO17).
func DefaultPinFactory() halcore.PinFactory { return periphPinFactory{} }

// ---- SPI ----

type periphSPIFactory struct {
	mu    sync.Mutex
	conns map[string]drivers.SPI
}

func (f *periphSPIFactory) ByID(id string) (drivers.SPI, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conns[id]; ok {
		return c, true
	}
	if err := initHost(); err != nil {
		println("[platform] periph host init failed:", err.Error())
		return nil, false
	}
	p, err := spireg.Open(id)
	if err != nil {
		println("[platform] spi open", id, "failed:", err.Error())
		return nil, false
	}
	c, err := p.Connect(SPIFrequency, SPIMode, SPIBits)
	if err != nil {
		_ = p.Close()
		println("[platform] spi connect", id, "failed:", err.Error())
		return nil, false
	}
	s := &periphSPI{c: c}
	f.conns[id] = s
	return s, true
}

// periphSPI adapts spi.Conn to tinygo drivers.SPI.
type periphSPI struct {
	c   spi.Conn
	one [2]byte
}

func (s *periphSPI) Tx(w, r []byte) error {
	if r != nil && len(r) != len(w) {
		// spidev needs equal lengths; pad reads into a full-duplex buffer.
		buf := make([]byte, len(w))
		if err := s.c.Tx(w, buf); err != nil {
			return err
		}
		copy(r, buf)
		return nil
	}
	return s.c.Tx(w, r)
}

func (s *periphSPI) Transfer(b byte) (byte, error) {
	s.one[0] = b
	if err := s.c.Tx(s.one[:1], s.one[1:2]); err != nil {
		return 0, err
	}
	return s.one[1], nil
}

// ---- GPIO ----

type periphPinFactory struct{}

func (periphPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	if err := initHost(); err != nil {
		return nil, false
	}
	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p, n: n}, true
}

// periphPin adapts gpio.PinIO to halcore.IRQPin. Interrupts are delivered
// by a goroutine blocked in WaitForEdge.
type periphPin struct {
	p gpio.PinIO
	n int

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// edgePoll bounds each WaitForEdge so ClearIRQ is observed promptly.
const edgePoll = 100 * time.Millisecond

func (r *periphPin) ConfigureInput(pull halcore.Pull) error {
	return r.p.In(toPull(pull), gpio.NoEdge)
}

func (r *periphPin) ConfigureOutput(initial bool) error {
	return r.p.Out(gpio.Level(initial))
}

func (r *periphPin) Set(level bool) { _ = r.p.Out(gpio.Level(level)) }
func (r *periphPin) Get() bool      { return r.p.Read() == gpio.High }
func (r *periphPin) Number() int    { return r.n }

func (r *periphPin) SetIRQ(edge halcore.Edge, handler func()) error {
	if err := r.ClearIRQ(); err != nil {
		return err
	}
	if err := r.p.In(gpio.PullNoChange, toEdge(edge)); err != nil {
		return err
	}
	r.mu.Lock()
	stop, done := make(chan struct{}), make(chan struct{})
	r.stop, r.done = stop, done
	r.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if r.p.WaitForEdge(edgePoll) {
				handler()
			}
		}
	}()
	return nil
}

func (r *periphPin) ClearIRQ() error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return r.p.In(gpio.PullNoChange, gpio.NoEdge)
}

func toPull(p halcore.Pull) gpio.Pull {
	switch p {
	case halcore.PullUp:
		return gpio.PullUp
	case halcore.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func toEdge(e halcore.Edge) gpio.Edge {
	switch e {
	case halcore.EdgeRising:
		return gpio.RisingEdge
	case halcore.EdgeFalling:
		return gpio.FallingEdge
	case halcore.EdgeBoth:
		return gpio.BothEdges
	default:
		return gpio.NoEdge
	}
}

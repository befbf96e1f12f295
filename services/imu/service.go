// Package imu brings up a BMI270 on SPI and streams FIFO batches driven by
// its watermark interrupt.
package imu

import (
	"context"

	"imucode-go/drivers/bmi270"
	"imucode-go/errcode"
	"imucode-go/services/imu/internal/gpioirq"
	"imucode-go/services/imu/internal/halcore"

	"tinygo.org/x/drivers"
)

// Service owns one sensor, its interrupt line and the drain coordinator.
// Bringup and Run are called from one goroutine; Stats from any.
type Service struct {
	cfg Config
	set settings

	dev    *bmi270.Device
	irq    halcore.IRQPin
	sig    *gpioirq.Signal
	coord  *Coordinator
	detach func()

	batches uint32
}

// Build resolves bus and pins from the factories and returns a Service
// ready for Bringup.
func Build(spis halcore.SPIBusFactory, pins halcore.PinFactory, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bus, ok := spis.ByID(cfg.Bus)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "build", Msg: cfg.Bus}
	}

	var cs bmi270.Pin
	if cfg.CSPin >= 0 {
		p, err := outputPin(pins, cfg.CSPin)
		if err != nil {
			return nil, err
		}
		cs = p
	}
	peers := make([]bmi270.Pin, 0, len(cfg.PeerPins))
	for _, n := range cfg.PeerPins {
		p, err := outputPin(pins, n)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}

	gp, ok := pins.ByNumber(cfg.IntPin)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "build", Msg: "int_pin"}
	}
	irq, ok := gp.(halcore.IRQPin)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "build", Msg: "int_pin has no irq"}
	}
	return New(bus, cs, peers, irq, cfg)
}

// outputPin returns pin n configured as an inactive (high) chip select.
func outputPin(pins halcore.PinFactory, n int) (halcore.GPIOPin, error) {
	p, ok := pins.ByNumber(n)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "build", Msg: "cs"}
	}
	if err := p.ConfigureOutput(true); err != nil {
		return nil, &errcode.E{C: errcode.Transport, Op: "build", Err: err}
	}
	return p, nil
}

// New wires an already configured bus and pins. cs may be nil when the
// controller asserts chip select itself.
func New(bus drivers.SPI, cs bmi270.Pin, peers []bmi270.Pin, irq halcore.IRQPin, cfg Config) (*Service, error) {
	set, err := cfg.settings()
	if err != nil {
		return nil, err
	}
	dc := cfg.driverConfig()
	dc.CS = cs
	dc.Peers = peers

	s := &Service{
		cfg: cfg,
		set: set,
		dev: bmi270.New(bus, dc),
		irq: irq,
		sig: gpioirq.New(cfg.QueueDepth),
	}
	s.coord = NewCoordinator(s.dev, s.sig, nil, CoordinatorConfig{
		Watermark:   set.watermark,
		WaitTimeout: set.wait,
	})
	return s, nil
}

// Device exposes the driver for polled reads.
func (s *Service) Device() *bmi270.Device { return s.dev }

// Coordinator exposes the drain loop for callers that step it themselves.
func (s *Service) Coordinator() *Coordinator { return s.coord }

// Bringup runs the init sequence with blob, applies the configuration and
// arms the watermark interrupt. Errors are *errcode.E with Op
// "bringup/<step>".
func (s *Service) Bringup(blob []byte) error {
	steps := []struct {
		op string
		fn func() error
	}{
		{"init", func() error { return s.dev.Init(blob) }},
		{"accel_range", func() error { return s.dev.SetAccelRange(s.set.accelRange) }},
		{"gyro_range", func() error { return s.dev.SetGyroRange(s.set.gyroRange) }},
		{"accel_conf", func() error { return s.dev.SetAccelConfig(s.set.accelODR, s.set.filter) }},
		{"gyro_conf", func() error { return s.dev.SetGyroConfig(s.set.gyroODR, s.set.filter) }},
		{"int_pin", func() error {
			return s.dev.ConfigureIntPin(s.set.intOut, bmi270.IntPinConfig{OutputEnable: true, ActiveHigh: true})
		}},
		{"int_latch", func() error { return s.dev.SetIntLatch(false) }},
		{"fifo", func() error {
			return s.dev.ConfigureFIFO(bmi270.FIFOConfig{Accel: true, Gyro: true, Header: true})
		}},
		{"watermark", func() error {
			wm, err := s.dev.SetWatermark(s.set.watermark)
			if err == nil {
				s.coord.SetWatermark(wm)
			}
			return err
		}},
		{"int_map", func() error { return s.dev.EnableFIFOWatermarkInterrupt(s.set.intOut) }},
		{"irq", s.attach},
		{"flush", s.dev.FlushFIFO},
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			println("[imu] bringup", st.op, "failed:", err.Error())
			return errcode.Wrap("bringup/"+st.op, err)
		}
	}
	println("[imu] ready",
		"acc", s.set.accelRange.G(), "g",
		"gyr", s.set.gyroRange.DPS(), "dps",
		"wm", int(s.coord.cfg.Watermark))
	return nil
}

func (s *Service) attach() error {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	d, err := s.sig.Attach(s.irq, halcore.EdgeRising)
	if err != nil {
		return err
	}
	s.detach = d
	return nil
}

// Run drains batches until ctx ends, converting frames to samples before
// calling fn. fn must not retain the batch.
func (s *Service) Run(ctx context.Context, fn func(*Batch)) error {
	if !s.dev.Ready() {
		return &errcode.E{C: errcode.Busy, Op: "run", Msg: "not initialised"}
	}
	return s.coord.Run(ctx, func(b *Batch) {
		if b.Err == nil {
			b.Samples = s.convert(b.Frames, b.Samples[:0])
		}
		s.batches++
		if s.cfg.LogEvery > 0 && s.batches%uint32(s.cfg.LogEvery) == 0 {
			s.logStats()
		}
		if fn != nil {
			fn(b)
		}
	})
}

func (s *Service) convert(frames []bmi270.Frame, out []Sample) []Sample {
	for i := range frames {
		f := &frames[i]
		if !f.Kind.HasAccel() && !f.Kind.HasGyro() {
			continue
		}
		var smp Sample
		if f.Kind.HasAccel() {
			smp.Accel, smp.HasAccel = s.dev.ConvertAccel(f.Accel), true
		}
		if f.Kind.HasGyro() {
			smp.Gyro, smp.HasGyro = s.dev.ConvertGyro(f.Gyro), true
		}
		out = append(out, smp)
	}
	return out
}

func (s *Service) logStats() {
	st := s.coord.Stats()
	println("[imu] batches", int(s.batches),
		"drains", int(st.Drains),
		"frames", int(st.Frames),
		"missed", int(st.MissedSignals),
		"invalid", int(st.Invalid),
		"errors", int(st.Errors),
		"isr_drops", int(st.ISRDrops))
}

// Stats returns the coordinator counters.
func (s *Service) Stats() Stats { return s.coord.Stats() }

// Close detaches the interrupt handler. The sensor is left running.
func (s *Service) Close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
}

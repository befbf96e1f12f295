// services/imu/internal/platform/sim.go
package platform

import (
	"context"
	"time"

	"imucode-go/drivers/bmi270"
	"imucode-go/drivers/bmi270/bmi270test"
	"imucode-go/services/imu/internal/halcore"

	"tinygo.org/x/drivers"
)

// SimBus is the bus id the simulator registers.
const SimBus = "spi0"

// Sim is a BMI270 register model on a fake bus with its INT line wired to a
// SimPin. Run feeds it combined accel+gyro frames at a fixed period.
type Sim struct {
	Dev    *bmi270test.Device
	Pins   *SimPins
	IntPin int
	Period time.Duration
}

// NewSim returns a simulator whose watermark interrupt pulses pin intPin.
func NewSim(intPin int) *Sim {
	s := &Sim{
		Dev:    bmi270test.New(),
		Pins:   &SimPins{},
		IntPin: intPin,
		Period: 10 * time.Millisecond,
	}
	irq := s.Pins.Pin(intPin)
	s.Dev.OnWatermark = irq.Pulse
	return s
}

// SPIFactory exposes the simulated device as SimBus.
func (s *Sim) SPIFactory() halcore.SPIBusFactory { return simSPIFactory{s.Dev} }

// PinFactory exposes the simulator's pins.
func (s *Sim) PinFactory() halcore.PinFactory { return s.Pins }

// Run pushes one frame per Period until ctx ends. Accel holds 1 g on Z at
// ±4 g with a small ramp on X; gyro ramps slowly on Z.
func (s *Sim) Run(ctx context.Context) {
	t := time.NewTicker(s.Period)
	defer t.Stop()
	var n int16
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		n++
		ramp := n%200 - 100
		acc := bmi270.Raw{X: ramp * 8, Y: 0, Z: 8192}
		gyr := bmi270.Raw{X: 0, Y: 0, Z: ramp * 16}
		s.Dev.Push(bmi270test.AccelGyroFrame(acc, gyr)...)
	}
}

type simSPIFactory struct{ dev *bmi270test.Device }

func (f simSPIFactory) ByID(id string) (drivers.SPI, bool) {
	if id != SimBus {
		return nil, false
	}
	return f.dev, true
}

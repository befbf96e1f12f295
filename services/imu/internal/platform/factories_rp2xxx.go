// services/imu/internal/platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers"

	halcore "imucode-go/services/imu/internal/halcore"
)

// SPIFrequency is the BMI270 bus clock (datasheet max 10 MHz).
const SPIFrequency = 8 * machine.MHz

// maxGPIO is the highest user GPIO on Pico and Pico 2 (GP28).
const maxGPIO = 28

// DefaultSPIFactory configures spi0 and spi1 in mode 0 on the board pins.
// The hardware CSn is not used; chip selects are plain GPIOs.
func DefaultSPIFactory() halcore.SPIBusFactory {
	buses := picoBuses{}
	for id, b := range map[string]struct {
		spi           *machine.SPI
		sck, sdo, sdi machine.Pin
	}{
		"spi0": {machine.SPI0, machine.SPI0_SCK_PIN, machine.SPI0_SDO_PIN, machine.SPI0_SDI_PIN},
		"spi1": {machine.SPI1, machine.SPI1_SCK_PIN, machine.SPI1_SDO_PIN, machine.SPI1_SDI_PIN},
	} {
		err := b.spi.Configure(machine.SPIConfig{
			Frequency: SPIFrequency,
			SCK:       b.sck,
			SDO:       b.sdo,
			SDI:       b.sdi,
			Mode:      0,
		})
		if err != nil {
			println("[platform]", id, "configure failed:", err.Error())
			continue
		}
		buses[id] = b.spi
	}
	return buses
}

// DefaultPinFactory maps n to machine.Pin(n) (GP numbering).
func DefaultPinFactory() halcore.PinFactory { return picoPins{} }

type picoBuses map[string]drivers.SPI

func (m picoBuses) ByID(id string) (drivers.SPI, bool) {
	b, ok := m[id]
	return b, ok
}

type picoPins struct{}

func (picoPins) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 || n > maxGPIO {
		return nil, false
	}
	return picoPin(n), true
}

// picoPin is a GPIO with IRQ support. SetIRQ handlers run in interrupt
// context.
type picoPin machine.Pin

func (p picoPin) pin() machine.Pin { return machine.Pin(p) }

func (p picoPin) Number() int { return int(p) }

func (p picoPin) ConfigureInput(pull halcore.Pull) error {
	mode := machine.PinInput
	if pull == halcore.PullUp {
		mode = machine.PinInputPullup
	} else if pull == halcore.PullDown {
		mode = machine.PinInputPulldown
	}
	p.pin().Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (p picoPin) ConfigureOutput(initial bool) error {
	p.pin().Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin().Set(initial)
	return nil
}

func (p picoPin) Set(level bool) { p.pin().Set(level) }
func (p picoPin) Get() bool      { return p.pin().Get() }

func (p picoPin) SetIRQ(edge halcore.Edge, handler func()) error {
	var change machine.PinChange
	switch edge {
	case halcore.EdgeRising:
		change = machine.PinRising
	case halcore.EdgeFalling:
		change = machine.PinFalling
	case halcore.EdgeBoth:
		change = machine.PinToggle
	default:
		return p.ClearIRQ()
	}
	return p.pin().SetInterrupt(change, func(machine.Pin) { handler() })
}

func (p picoPin) ClearIRQ() error {
	var none machine.PinChange
	return p.pin().SetInterrupt(none, nil)
}

// services/imu/internal/halcore/types.go

// Package halcore holds the hardware seams the IMU service is built on:
// SPI buses by id and GPIO lines by number, with edge interrupts.
package halcore

import "tinygo.org/x/drivers"

// SPIBusFactory resolves a configured bus ("spi0", "SPI0.0", ...). Buses
// are tinygo drivers.SPI so MCU and host builds share one driver.
type SPIBusFactory interface {
	ByID(id string) (drivers.SPI, bool)
}

// PinFactory resolves GPIO lines by board number.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// Pull is the input bias.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIOPin is a plain line. Chip selects use it as an output; it also
// satisfies bmi270.Pin.
type GPIOPin interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
}

// Edge selects which transitions raise an interrupt.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

var edgeNames = [...]string{"none", "rising", "falling", "both"}

func (e Edge) String() string {
	if int(e) < len(edgeNames) {
		return edgeNames[e]
	}
	return "none"
}

// IRQPin is a line that can call back on edges, such as the sensor's INT
// output. On MCUs the handler runs in interrupt context and must only
// signal.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

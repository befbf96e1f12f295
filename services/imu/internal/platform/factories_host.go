// services/imu/internal/platform/factories_host.go
//go:build !linux && !rp2040 && !rp2350

package platform

import (
	"imucode-go/services/imu/internal/halcore"

	"tinygo.org/x/drivers"
)

// No spidev/gpiochip here: default to "not configured". Use a Sim instead.
func DefaultSPIFactory() halcore.SPIBusFactory { return noSPIFactory{} }
func DefaultPinFactory() halcore.PinFactory    { return noPinFactory{} }

type noSPIFactory struct{}

func (noSPIFactory) ByID(string) (drivers.SPI, bool) { return nil, false }

type noPinFactory struct{}

func (noPinFactory) ByNumber(int) (halcore.GPIOPin, bool) { return nil, false }

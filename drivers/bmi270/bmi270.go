// Package bmi270 provides a TinyGo-compatible driver for the Bosch BMI270
// 6-axis IMU over SPI.
//
// Bring-up is a single blocking call:
//
//	d := bmi270.New(spi, bmi270.Config{CS: cs, Peers: []bmi270.Pin{flashCS}})
//	err := d.Init(blob) // blob is the 8192-byte vendor configuration file
//
// After Init the device streams accelerometer and gyroscope frames into its
// 2 KB FIFO. Drain with FIFOLength + ReadFIFO and decode with NextFrame.
//
// Notes (datasheet):
//   - Reads carry one dummy byte after the address; data starts at the third
//     exchanged byte.
//   - Until the configuration is loaded the part sits in a low-power regime
//     that needs a long gap between accesses. Init switches to the short gap.
//   - The combined FIFO frame stores gyro before accel.
//
// The Device is single-owner. Bus transactions are serialised internally so a
// coordinator goroutine may drain the FIFO while another goroutine holds the
// handle, but configuration setters must not race each other.
package bmi270

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrInvalidLength    = errors.New("bmi270: invalid burst length")
	ErrSizeMismatch     = errors.New("bmi270: burst exceeds device buffer")
	ErrWrongChip        = errors.New("bmi270: unexpected chip id")
	ErrBlobSize         = errors.New("bmi270: config blob must be 8192 bytes")
	ErrUploadIncomplete = errors.New("bmi270: config upload incomplete")
	ErrInitTimeout      = errors.New("bmi270: init status timeout")
	ErrInitError        = errors.New("bmi270: device reported init error")
	ErrInvalidParam     = errors.New("bmi270: invalid parameter")
	ErrNoData           = errors.New("bmi270: no data")
)

// Pin is a chip-select style output. halcore GPIO pins and machine.Pin both
// satisfy it.
type Pin interface {
	Set(level bool)
}

// Config controls non-register behaviour. All fields are optional.
type Config struct {
	// CS is the device's own active-low select. Leave nil when the SPI
	// controller drives CS in hardware.
	CS Pin
	// Peers are select lines of other devices on the same bus. Every one is
	// driven high before each transaction.
	Peers []Pin
	// Lock serialises transactions. Share one Locker between all drivers on
	// a bus. Default: a private mutex.
	Lock sync.Locker

	// SuspendAccessDelay is the gap after each transaction before Init
	// completes. Default 1 ms.
	SuspendAccessDelay time.Duration
	// NormalAccessDelay is the gap once Init has completed. Default 2 µs.
	NormalAccessDelay time.Duration
	// ActivationDelay separates the two dummy reads that switch the part to
	// SPI mode. Default 5 ms.
	ActivationDelay time.Duration
	// SoftResetDelay is the settle time after a soft reset. Default 2 ms.
	SoftResetDelay time.Duration
	// PowerConfDelay follows the PWR_CONF write in ConfigPrepare. Default 450 µs.
	PowerConfDelay time.Duration
	// InitTimeout bounds ConfigVerify polling. Default 150 ms.
	InitTimeout time.Duration
	// InitPollInterval paces ConfigVerify polling. Default 1 ms.
	InitPollInterval time.Duration
	// UploadChunk is the config upload burst size in bytes. It is forced even
	// and clamped to [2, MaxBurstLen]. Default 256.
	UploadChunk int
}

const (
	defaultSuspendAccessDelay = 1000 * time.Microsecond
	defaultNormalAccessDelay  = 2 * time.Microsecond
	defaultActivationDelay    = 5 * time.Millisecond
	defaultSoftResetDelay     = 2 * time.Millisecond
	defaultPowerConfDelay     = 450 * time.Microsecond
	defaultInitTimeout        = 150 * time.Millisecond
	defaultInitPollInterval   = time.Millisecond
	defaultUploadChunk        = 256
)

// Device is a BMI270 on a SPI bus.
type Device struct {
	bus   drivers.SPI
	cs    Pin
	peers []Pin
	lock  sync.Locker
	cfg   Config

	// Set once by Init at the Ready transition; selects the access delay.
	initComplete bool
	state        InitState

	accelRange  AccelRange
	gyroRange   GyroRange
	accelODR    ODR
	gyroODR     ODR
	accelFilter FilterMode
	gyroFilter  FilterMode

	sleep func(time.Duration)

	// Fixed buffers to avoid per-call heap allocations.
	tx [MaxBurstLen + readPreamble]byte
	rx [MaxBurstLen + readPreamble]byte
}

// New creates a driver handle. The SPI bus must already be configured for
// mode 0 or 3. New does not touch the device.
func New(bus drivers.SPI, cfg Config) *Device {
	if cfg.Lock == nil {
		cfg.Lock = &sync.Mutex{}
	}
	if cfg.SuspendAccessDelay <= 0 {
		cfg.SuspendAccessDelay = defaultSuspendAccessDelay
	}
	if cfg.NormalAccessDelay <= 0 {
		cfg.NormalAccessDelay = defaultNormalAccessDelay
	}
	if cfg.ActivationDelay <= 0 {
		cfg.ActivationDelay = defaultActivationDelay
	}
	if cfg.SoftResetDelay <= 0 {
		cfg.SoftResetDelay = defaultSoftResetDelay
	}
	if cfg.PowerConfDelay <= 0 {
		cfg.PowerConfDelay = defaultPowerConfDelay
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaultInitTimeout
	}
	if cfg.InitPollInterval <= 0 {
		cfg.InitPollInterval = defaultInitPollInterval
	}
	if cfg.UploadChunk <= 0 {
		cfg.UploadChunk = defaultUploadChunk
	}
	return &Device{
		bus:   bus,
		cs:    cfg.CS,
		peers: cfg.Peers,
		lock:  cfg.Lock,
		cfg:   cfg,
		state: StateReset,
		// Power-on register defaults.
		accelRange:  Range8G,
		gyroRange:   Range2000DPS,
		accelODR:    ODR100Hz,
		gyroODR:     ODR200Hz,
		accelFilter: FilterPerformance,
		gyroFilter:  FilterPerformance,
		sleep:       time.Sleep,
	}
}

// Connected reports whether the chip id reads back as expected.
func (d *Device) Connected() bool {
	id, err := d.ChipID()
	return err == nil && id == ChipID
}

// ChipID performs the SPI activation sequence and returns CHIP_ID.
func (d *Device) ChipID() (byte, error) {
	if err := d.activate(); err != nil {
		return 0, err
	}
	return d.ReadRegister(RegChipID)
}

// activate issues the dummy reads that latch the interface into SPI mode
// after power-on or reset.
func (d *Device) activate() error {
	if _, err := d.ReadRegister(RegChipID); err != nil {
		return err
	}
	d.sleep(d.cfg.ActivationDelay)
	_, err := d.ReadRegister(RegChipID)
	return err
}

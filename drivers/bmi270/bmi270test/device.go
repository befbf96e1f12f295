// Package bmi270test provides an in-memory BMI270 register model that
// implements tinygo drivers.SPI. It is used by tests and by the host
// simulation backend.
package bmi270test

import (
	"errors"
	"sync"

	"imucode-go/drivers/bmi270"
)

// ErrShortBuffer is returned when a read transaction has mismatched buffers.
var ErrShortBuffer = errors.New("bmi270test: read buffer shorter than write buffer")

const fifoCapacity = 2048

// Device models the SPI-visible behaviour of a BMI270:
//   - register file with auto-increment, except on FIFO_DATA and INIT_DATA
//   - config RAM addressed through INIT_ADDR_0/1
//   - INTERNAL_STATUS driven by InitStatus after INIT_CTRL=1
//   - FIFO byte queue with live FIFO_LENGTH, soft reset and flush
type Device struct {
	mu sync.Mutex

	regs   [128]byte
	fifo   []byte
	config [bmi270.ConfigFileSize]byte
	cfgPos int

	initStarted bool
	polls       int

	// InitStatus is reported in INTERNAL_STATUS once the upload completes.
	// Default 0x01 (init ok).
	InitStatus byte
	// InitPolls is how many INTERNAL_STATUS reads return "not init" before
	// InitStatus appears.
	InitPolls int

	// Err, when set, fails every transaction.
	Err error
	// OnTx runs at the start of every transaction, before any state change.
	OnTx func(w []byte)
	// OnWatermark runs (outside the lock) when Push takes the FIFO length
	// from below the watermark to or past it while a watermark interrupt is
	// mapped. It models pulse mode: one call per crossing.
	OnWatermark func()

	// Recorded activity.
	Commands   []byte   // values written to CMD
	InitAddrs  []uint16 // word address in effect at each INIT_DATA burst
	InitBytes  int      // total bytes written to INIT_DATA
	PwrCtrl    []byte   // values written to PWR_CTRL
	StatusRead int      // INTERNAL_STATUS reads
	Txs        int
}

// New returns a device in its power-on state.
func New() *Device {
	d := &Device{InitStatus: 0x01}
	d.resetLocked()
	return d
}

func (d *Device) resetLocked() {
	d.regs = [128]byte{}
	d.regs[bmi270.RegChipID] = bmi270.ChipID
	d.regs[bmi270.RegAccConf] = 0xA8
	d.regs[bmi270.RegAccRange] = 0x02
	d.regs[bmi270.RegGyrConf] = 0xA9
	d.regs[bmi270.RegFIFOConfig0] = 0x02
	d.regs[bmi270.RegFIFOConfig1] = 0x10
	d.regs[bmi270.RegPwrConf] = 0x03
	d.regs[bmi270.RegTemperature+1] = 0x80
	d.fifo = d.fifo[:0]
	d.initStarted = false
	d.polls = 0
}

// Tx implements drivers.SPI.
func (d *Device) Tx(w, r []byte) error {
	d.mu.Lock()
	if d.OnTx != nil {
		d.OnTx(w)
	}
	if d.Err != nil {
		err := d.Err
		d.mu.Unlock()
		return err
	}
	if len(w) == 0 {
		d.mu.Unlock()
		return nil
	}
	d.Txs++
	addr := w[0] & 0x7F
	if w[0]&0x80 != 0 {
		if len(r) < len(w) {
			d.mu.Unlock()
			return ErrShortBuffer
		}
		r[0], r[1] = 0xFF, 0x00
		for i := 2; i < len(w); i++ {
			r[i] = d.readLocked(addr)
			if addr != bmi270.RegFIFOData {
				addr++
			}
		}
		d.mu.Unlock()
		return nil
	}
	if addr == bmi270.RegInitData {
		d.InitAddrs = append(d.InitAddrs, uint16(d.cfgPos/2))
	}
	for _, b := range w[1:] {
		d.writeLocked(addr, b)
		if addr != bmi270.RegInitData {
			addr++
		}
	}
	d.mu.Unlock()
	return nil
}

// Transfer implements drivers.SPI. Single-byte exchanges carry no framing,
// so the model just echoes.
func (d *Device) Transfer(b byte) (byte, error) { return b, nil }

func (d *Device) readLocked(addr byte) byte {
	switch addr {
	case bmi270.RegFIFOLength0:
		return byte(len(d.fifo))
	case bmi270.RegFIFOLength1:
		return byte(len(d.fifo)>>8) & 0x07
	case bmi270.RegFIFOData:
		if len(d.fifo) == 0 {
			return 0x80 // over-read marker
		}
		b := d.fifo[0]
		d.fifo = d.fifo[1:]
		return b
	case bmi270.RegInternalStatus:
		d.StatusRead++
		if d.initStarted {
			if d.polls >= d.InitPolls {
				d.regs[addr] = d.InitStatus
			}
			d.polls++
		}
	}
	return d.regs[addr&0x7F]
}

func (d *Device) writeLocked(addr, v byte) {
	switch addr {
	case bmi270.RegCmd:
		d.Commands = append(d.Commands, v)
		switch v {
		case bmi270.CmdSoftReset:
			d.resetLocked()
		case bmi270.CmdFIFOFlush:
			d.fifo = d.fifo[:0]
		}
		return
	case bmi270.RegInitData:
		if d.cfgPos < len(d.config) {
			d.config[d.cfgPos] = v
		}
		d.cfgPos++
		d.InitBytes++
		return
	case bmi270.RegInitAddr0:
		d.regs[addr] = v & 0x0F
		d.cfgPos = d.initWord() * 2
		return
	case bmi270.RegInitAddr1:
		d.regs[addr] = v
		d.cfgPos = d.initWord() * 2
		return
	case bmi270.RegInitCtrl:
		d.regs[addr] = v
		if v == 0x01 {
			d.initStarted = true
			d.polls = 0
		}
		return
	case bmi270.RegFIFOWTM1:
		d.regs[addr] = v & 0x1F
		return
	case bmi270.RegPwrCtrl:
		d.PwrCtrl = append(d.PwrCtrl, v)
	}
	d.regs[addr&0x7F] = v
}

func (d *Device) initWord() int {
	return int(d.regs[bmi270.RegInitAddr0]) | int(d.regs[bmi270.RegInitAddr1])<<4
}

// Reg returns a register value without side effects.
func (d *Device) Reg(addr byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr&0x7F]
}

// SetReg sets a register value without side effects.
func (d *Device) SetReg(addr, v byte) {
	d.mu.Lock()
	d.regs[addr&0x7F] = v
	d.mu.Unlock()
}

// ConfigRAM returns a copy of the uploaded configuration.
func (d *Device) ConfigRAM() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.config[:]...)
}

// FIFOLen returns the buffered byte count.
func (d *Device) FIFOLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fifo)
}

// Push appends raw bytes to the FIFO. In stream mode the oldest bytes are
// dropped once the FIFO is full.
func (d *Device) Push(b ...byte) {
	d.mu.Lock()
	before := len(d.fifo)
	d.fifo = append(d.fifo, b...)
	if over := len(d.fifo) - fifoCapacity; over > 0 {
		d.fifo = append(d.fifo[:0], d.fifo[over:]...)
	}
	wm := int(d.regs[bmi270.RegFIFOWTM0]) | int(d.regs[bmi270.RegFIFOWTM1])<<8
	mapped := d.regs[bmi270.RegIntMapData]&0x22 != 0
	fire := mapped && wm > 0 && before < wm && len(d.fifo) >= wm
	cb := d.OnWatermark
	d.mu.Unlock()
	if fire && cb != nil {
		cb()
	}
}

// SetAccel loads the accelerometer data registers.
func (d *Device) SetAccel(r bmi270.Raw) { d.setTriplet(bmi270.RegAccData, r) }

// SetGyro loads the gyroscope data registers.
func (d *Device) SetGyro(r bmi270.Raw) { d.setTriplet(bmi270.RegGyrData, r) }

// SetTemperature loads the raw temperature word.
func (d *Device) SetTemperature(raw int16) {
	d.mu.Lock()
	d.regs[bmi270.RegTemperature] = byte(raw)
	d.regs[bmi270.RegTemperature+1] = byte(uint16(raw) >> 8)
	d.mu.Unlock()
}

func (d *Device) setTriplet(reg byte, r bmi270.Raw) {
	d.mu.Lock()
	for i, v := range [3]int16{r.X, r.Y, r.Z} {
		d.regs[int(reg)+2*i] = byte(v)
		d.regs[int(reg)+2*i+1] = byte(uint16(v) >> 8)
	}
	d.mu.Unlock()
}

// AccelGyroFrame builds a header-mode combined frame (gyro first).
func AccelGyroFrame(acc, gyr bmi270.Raw) []byte {
	b := make([]byte, 0, 13)
	b = append(b, bmi270.HeaderAccelGyro)
	b = appendTriplet(b, gyr)
	return appendTriplet(b, acc)
}

// AccelFrame builds a header-mode accel-only frame.
func AccelFrame(acc bmi270.Raw) []byte {
	return appendTriplet([]byte{bmi270.HeaderAccel}, acc)
}

// GyroFrame builds a header-mode gyro-only frame.
func GyroFrame(gyr bmi270.Raw) []byte {
	return appendTriplet([]byte{bmi270.HeaderGyro}, gyr)
}

func appendTriplet(b []byte, r bmi270.Raw) []byte {
	for _, v := range [3]int16{r.X, r.Y, r.Z} {
		b = append(b, byte(v), byte(uint16(v)>>8))
	}
	return b
}

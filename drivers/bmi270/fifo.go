package bmi270

import "imucode-go/x/mathx"

// FIFOConfig selects what the FIFO records.
type FIFOConfig struct {
	Accel  bool
	Gyro   bool
	Header bool // header mode; NextFrame only decodes header-mode data
	// StopOnFull keeps the oldest data when full instead of overwriting it.
	StopOnFull bool
	// Watermark in bytes. Zero leaves the watermark registers alone.
	Watermark uint16
}

// ConfigureFIFO applies cfg. Unrelated FIFO_CONFIG bits are preserved.
func (d *Device) ConfigureFIFO(cfg FIFOConfig) error {
	var c0 byte
	if cfg.StopOnFull {
		c0 = fifoConfig0StopOnFull
	}
	if err := d.update(RegFIFOConfig0, fifoConfig0StopOnFull, c0); err != nil {
		return err
	}
	var c1 byte
	if cfg.Accel {
		c1 |= fifoConfig1AccEn
	}
	if cfg.Gyro {
		c1 |= fifoConfig1GyrEn
	}
	if cfg.Header {
		c1 |= fifoConfig1Header
	}
	if err := d.update(RegFIFOConfig1, fifoConfig1Mask, c1); err != nil {
		return err
	}
	if cfg.Watermark > 0 {
		if _, err := d.SetWatermark(cfg.Watermark); err != nil {
			return err
		}
	}
	return nil
}

// SetWatermark writes the FIFO watermark, clamped to MaxWatermark, and returns
// the value read back from the device.
func (d *Device) SetWatermark(n uint16) (uint16, error) {
	n = mathx.Clamp(n, 0, MaxWatermark)
	b := [2]byte{byte(n), byte(n>>8) & fifoWTM1Mask}
	if err := d.WriteBurst(RegFIFOWTM0, b[:]); err != nil {
		return 0, err
	}
	return d.Watermark()
}

// Watermark reads the effective FIFO watermark.
func (d *Device) Watermark() (uint16, error) {
	var b [2]byte
	if err := d.ReadBurst(RegFIFOWTM0, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1]&fifoWTM1Mask)<<8, nil
}

// FIFOLength returns the number of buffered bytes.
func (d *Device) FIFOLength() (uint16, error) {
	var b [2]byte
	if err := d.ReadBurst(RegFIFOLength0, b[:]); err != nil {
		return 0, err
	}
	return (uint16(b[0]) | uint16(b[1])<<8) & fifoLengthMask, nil
}

// ReadFIFO drains len(dst) bytes from FIFO_DATA in one burst. Size dst from a
// fresh FIFOLength.
func (d *Device) ReadFIFO(dst []byte) error {
	return d.ReadBurst(RegFIFOData, dst)
}

// FlushFIFO discards all buffered bytes. Use it to restart a stream only;
// bytes that arrive between a length read and a flush are lost.
func (d *Device) FlushFIFO() error {
	return d.WriteRegister(RegCmd, CmdFIFOFlush)
}

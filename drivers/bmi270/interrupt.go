package bmi270

// IntPin selects INT1 or INT2.
type IntPin uint8

const (
	IntPin1 IntPin = iota
	IntPin2
)

func (p IntPin) ioCtrlReg() byte {
	if p == IntPin2 {
		return RegInt2IOCtrl
	}
	return RegInt1IOCtrl
}

// mapBit shifts an INT1 map bit to the selected pin.
func (p IntPin) mapBit(int1 byte) byte {
	if p == IntPin2 {
		return int1 << intMapInt2Shift
	}
	return int1
}

func (p IntPin) valid() bool { return p <= IntPin2 }

// IntPinConfig is the electrical configuration of an interrupt output.
type IntPinConfig struct {
	OutputEnable bool
	ActiveHigh   bool
	OpenDrain    bool
}

// ConfigureIntPin writes the output enable, level and drive bits of
// INTx_IO_CTRL. The input-enable bit is preserved.
func (d *Device) ConfigureIntPin(p IntPin, c IntPinConfig) error {
	if !p.valid() {
		return ErrInvalidParam
	}
	var v byte
	if c.OutputEnable {
		v |= intIOOutEn
	}
	if c.ActiveHigh {
		v |= intIOLevel
	}
	if c.OpenDrain {
		v |= intIOOD
	}
	return d.update(p.ioCtrlReg(), intIOCtrlRW, v)
}

// SetIntLatch selects latched (true) or pulse (false) interrupt outputs.
func (d *Device) SetIntLatch(latched bool) error {
	var v byte
	if latched {
		v = intLatchBit
	}
	return d.update(RegIntLatch, intLatchBit, v)
}

// EnableFIFOWatermarkInterrupt routes the FIFO watermark interrupt to p.
func (d *Device) EnableFIFOWatermarkInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapFIFOWatermark, true)
}

// DisableFIFOWatermarkInterrupt removes the FIFO watermark route from p.
func (d *Device) DisableFIFOWatermarkInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapFIFOWatermark, false)
}

// EnableFIFOFullInterrupt routes the FIFO full interrupt to p.
func (d *Device) EnableFIFOFullInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapFIFOFull, true)
}

// DisableFIFOFullInterrupt removes the FIFO full route from p.
func (d *Device) DisableFIFOFullInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapFIFOFull, false)
}

// EnableDataReadyInterrupt routes the data-ready interrupt to p.
func (d *Device) EnableDataReadyInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapDataReady, true)
}

// DisableDataReadyInterrupt removes the data-ready route from p.
func (d *Device) DisableDataReadyInterrupt(p IntPin) error {
	return d.mapInterrupt(p, intMapDataReady, false)
}

func (d *Device) mapInterrupt(p IntPin, int1Bit byte, on bool) error {
	if !p.valid() {
		return ErrInvalidParam
	}
	bit := p.mapBit(int1Bit)
	var v byte
	if on {
		v = bit
	}
	return d.update(RegIntMapData, bit, v)
}

package bmi270

import "time"

// SPI register operations. Reads transmit addr|0x80 and a dummy byte; the
// register data follows in the same exchange. Writes transmit addr&0x7F and
// the payload.

// ReadRegister returns one register value.
func (d *Device) ReadRegister(addr byte) (byte, error) {
	var b [1]byte
	if err := d.ReadBurst(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteRegister writes one register value.
func (d *Device) WriteRegister(addr, v byte) error {
	b := [1]byte{v}
	return d.WriteBurst(addr, b[:])
}

// ReadBurst fills dst from consecutive registers starting at addr. FIFO_DATA
// does not auto-increment, so a burst there drains len(dst) FIFO bytes.
func (d *Device) ReadBurst(addr byte, dst []byte) error {
	n := len(dst)
	if err := checkBurst(n); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	w := d.tx[:n+readPreamble]
	r := d.rx[:n+readPreamble]
	w[0] = addr | spiRead
	for i := 1; i < len(w); i++ {
		w[i] = 0
	}
	if err := d.txLocked(w, r); err != nil {
		return err
	}
	copy(dst, r[readPreamble:])
	return nil
}

// WriteBurst writes src to consecutive registers starting at addr. INIT_DATA
// does not auto-increment, so a burst there streams src into the config RAM.
func (d *Device) WriteBurst(addr byte, src []byte) error {
	n := len(src)
	if err := checkBurst(n); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()

	w := d.tx[:n+1]
	w[0] = addr & spiAddrMask
	copy(w[1:], src)
	return d.txLocked(w, nil)
}

func checkBurst(n int) error {
	switch {
	case n == 0:
		return ErrInvalidLength
	case n > MaxBurstLen:
		return ErrSizeMismatch
	}
	return nil
}

// txLocked runs one bus transaction. Caller holds d.lock.
func (d *Device) txLocked(w, r []byte) error {
	for _, p := range d.peers {
		p.Set(true)
	}
	if d.cs != nil {
		d.cs.Set(false)
	}
	err := d.bus.Tx(w, r)
	if d.cs != nil {
		d.cs.Set(true)
	}
	d.sleep(d.accessDelay())
	return err
}

func (d *Device) accessDelay() time.Duration {
	if d.initComplete {
		return d.cfg.NormalAccessDelay
	}
	return d.cfg.SuspendAccessDelay
}

// update rewrites only the bits in mask.
func (d *Device) update(reg, mask, val byte) error {
	cur, err := d.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.WriteRegister(reg, (cur&^mask)|(val&mask))
}

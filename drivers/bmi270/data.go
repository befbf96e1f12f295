package bmi270

// Polled reads. Each axis group is fetched in one 6-byte burst so the
// shadowed data registers stay consistent.

// ReadAccelRaw returns the latest accelerometer sample.
func (d *Device) ReadAccelRaw() (Raw, error) { return d.readTriplet(RegAccData) }

// ReadGyroRaw returns the latest gyroscope sample.
func (d *Device) ReadGyroRaw() (Raw, error) { return d.readTriplet(RegGyrData) }

// ReadAccel returns the latest accelerometer sample in g.
func (d *Device) ReadAccel() (Vec3, error) {
	r, err := d.ReadAccelRaw()
	if err != nil {
		return Vec3{}, err
	}
	return d.ConvertAccel(r), nil
}

// ReadGyro returns the latest gyroscope sample in °/s.
func (d *Device) ReadGyro() (Vec3, error) {
	r, err := d.ReadGyroRaw()
	if err != nil {
		return Vec3{}, err
	}
	return d.ConvertGyro(r), nil
}

// ReadTemperature returns the die temperature in °C. ErrNoData is returned
// while the sensor is disabled or has not produced a value yet.
func (d *Device) ReadTemperature() (float32, error) {
	var b [2]byte
	if err := d.ReadBurst(RegTemperature, b[:]); err != nil {
		return 0, err
	}
	raw := le16(b[:])
	if uint16(raw) == 0x8000 {
		return 0, ErrNoData
	}
	return ConvertTemperature(raw), nil
}

func (d *Device) readTriplet(reg byte) (Raw, error) {
	var b [6]byte
	if err := d.ReadBurst(reg, b[:]); err != nil {
		return Raw{}, err
	}
	return triplet(b[:]), nil
}

func le16(b []byte) int16 { return int16(uint16(b[0]) | uint16(b[1])<<8) }

func triplet(b []byte) Raw {
	return Raw{X: le16(b[0:]), Y: le16(b[2:]), Z: le16(b[4:])}
}

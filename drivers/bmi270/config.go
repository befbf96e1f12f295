package bmi270

// AccelRange is the accelerometer full scale. Values are ACC_RANGE encodings.
type AccelRange uint8

const (
	Range2G AccelRange = iota
	Range4G
	Range8G
	Range16G
)

// LSBPerG is the sensitivity at this range.
func (r AccelRange) LSBPerG() float32 { return float32(int(16384) >> r) }

// G returns the full scale in g.
func (r AccelRange) G() int { return 2 << r }

// ToRaw inverts the conversion for one axis.
func (r AccelRange) ToRaw(g float32) float32 { return g * r.LSBPerG() }

func (r AccelRange) valid() bool { return r <= Range16G }

// AccelRangeFromG maps 2, 4, 8 or 16 to a range.
func AccelRangeFromG(g int) (AccelRange, bool) {
	for r := Range2G; r <= Range16G; r++ {
		if r.G() == g {
			return r, true
		}
	}
	return 0, false
}

// GyroRange is the gyroscope full scale. Values are GYR_RANGE encodings; the
// scale halves with each step.
type GyroRange uint8

const (
	Range2000DPS GyroRange = iota
	Range1000DPS
	Range500DPS
	Range250DPS
	Range125DPS
)

// LSBPerDPS is the sensitivity at this range.
func (r GyroRange) LSBPerDPS() float32 { return 16.4 * float32(uint32(1)<<r) }

// DPS returns the full scale in degrees per second.
func (r GyroRange) DPS() int { return 2000 >> r }

// ToRaw inverts the conversion for one axis.
func (r GyroRange) ToRaw(dps float32) float32 { return dps * r.LSBPerDPS() }

func (r GyroRange) valid() bool { return r <= Range125DPS }

// GyroRangeFromDPS maps 125, 250, 500, 1000 or 2000 to a range.
func GyroRangeFromDPS(dps int) (GyroRange, bool) {
	for r := Range2000DPS; r <= Range125DPS; r++ {
		if r.DPS() == dps {
			return r, true
		}
	}
	return 0, false
}

// ODR is an output data rate, encoded as in ACC_CONF/GYR_CONF bits 0..3.
type ODR uint8

const (
	ODR0p78Hz ODR = iota + 1
	ODR1p5Hz
	ODR3p1Hz
	ODR6p25Hz
	ODR12p5Hz
	ODR25Hz
	ODR50Hz
	ODR100Hz
	ODR200Hz
	ODR400Hz
	ODR800Hz
	ODR1600Hz
	ODR3200Hz
)

// Hz returns the nominal rate. Each code doubles the previous one, anchored
// at 100 Hz.
func (o ODR) Hz() float32 {
	if o < ODR0p78Hz || o > ODR3200Hz {
		return 0
	}
	if o >= ODR100Hz {
		return 100 * float32(uint32(1)<<(o-ODR100Hz))
	}
	return 100 / float32(uint32(1)<<(ODR100Hz-o))
}

// ODRFromHz returns the code whose nominal rate is closest to hz.
func ODRFromHz(hz float32) (ODR, bool) {
	if hz <= 0 {
		return 0, false
	}
	best, bestDiff := ODR(0), float32(0)
	for o := ODR0p78Hz; o <= ODR3200Hz; o++ {
		diff := o.Hz() - hz
		if diff < 0 {
			diff = -diff
		}
		if best == 0 || diff < bestDiff {
			best, bestDiff = o, diff
		}
	}
	// Accept only a near match (covers 0.78 vs 0.78125, 3.1 vs 3.125).
	if bestDiff > best.Hz()*0.05 {
		return 0, false
	}
	return best, true
}

func (o ODR) validAccel() bool { return o >= ODR0p78Hz && o <= ODR1600Hz }
func (o ODR) validGyro() bool  { return o >= ODR25Hz && o <= ODR3200Hz }

// FilterMode trades power for bandwidth.
type FilterMode uint8

const (
	FilterPowerOpt FilterMode = iota
	FilterPerformance
)

// Raw is one uncalibrated axis-group reading.
type Raw struct {
	X, Y, Z int16
}

// Vec3 is a reading in physical units (g or °/s).
type Vec3 struct {
	X, Y, Z float32
}

// ---------------- Range ----------------

// SetAccelRange writes ACC_RANGE and updates the conversion scale.
func (d *Device) SetAccelRange(r AccelRange) error {
	if !r.valid() {
		return ErrInvalidParam
	}
	if err := d.update(RegAccRange, accRangeMask, byte(r)); err != nil {
		return err
	}
	d.accelRange = r
	return nil
}

// AccelRange reads ACC_RANGE from the device and refreshes the cached scale.
func (d *Device) AccelRange() (AccelRange, error) {
	v, err := d.ReadRegister(RegAccRange)
	if err != nil {
		return 0, err
	}
	d.accelRange = AccelRange(v & accRangeMask)
	return d.accelRange, nil
}

// SetGyroRange writes GYR_RANGE and updates the conversion scale.
func (d *Device) SetGyroRange(r GyroRange) error {
	if !r.valid() {
		return ErrInvalidParam
	}
	if err := d.update(RegGyrRange, gyrRangeMask, byte(r)); err != nil {
		return err
	}
	d.gyroRange = r
	return nil
}

// GyroRange reads GYR_RANGE from the device and refreshes the cached scale.
func (d *Device) GyroRange() (GyroRange, error) {
	v, err := d.ReadRegister(RegGyrRange)
	if err != nil {
		return 0, err
	}
	r := GyroRange(v & gyrRangeMask)
	if !r.valid() {
		// 5..7 are reserved and behave as 125 dps.
		r = Range125DPS
	}
	d.gyroRange = r
	return r, nil
}

// ---------------- Rate and filter ----------------

// SetAccelConfig sets the accelerometer ODR and filter mode. Bandwidth bits
// are preserved.
func (d *Device) SetAccelConfig(odr ODR, f FilterMode) error {
	if !odr.validAccel() || f > FilterPerformance {
		return ErrInvalidParam
	}
	if err := d.update(RegAccConf, confODRMask|confFilterPerf, confByte(odr, f)); err != nil {
		return err
	}
	d.accelODR, d.accelFilter = odr, f
	return nil
}

// AccelConfig reads back the accelerometer ODR and filter mode.
func (d *Device) AccelConfig() (ODR, FilterMode, error) {
	v, err := d.ReadRegister(RegAccConf)
	if err != nil {
		return 0, 0, err
	}
	d.accelODR, d.accelFilter = splitConf(v)
	return d.accelODR, d.accelFilter, nil
}

// SetGyroConfig sets the gyroscope ODR and filter mode. Bandwidth and noise
// bits are preserved.
func (d *Device) SetGyroConfig(odr ODR, f FilterMode) error {
	if !odr.validGyro() || f > FilterPerformance {
		return ErrInvalidParam
	}
	if err := d.update(RegGyrConf, confODRMask|confFilterPerf, confByte(odr, f)); err != nil {
		return err
	}
	d.gyroODR, d.gyroFilter = odr, f
	return nil
}

// GyroConfig reads back the gyroscope ODR and filter mode.
func (d *Device) GyroConfig() (ODR, FilterMode, error) {
	v, err := d.ReadRegister(RegGyrConf)
	if err != nil {
		return 0, 0, err
	}
	d.gyroODR, d.gyroFilter = splitConf(v)
	return d.gyroODR, d.gyroFilter, nil
}

func confByte(odr ODR, f FilterMode) byte {
	v := byte(odr) & confODRMask
	if f == FilterPerformance {
		v |= confFilterPerf
	}
	return v
}

func splitConf(v byte) (ODR, FilterMode) {
	f := FilterPowerOpt
	if v&confFilterPerf != 0 {
		f = FilterPerformance
	}
	return ODR(v & confODRMask), f
}

// ---------------- Sensor enables ----------------

// EnableAccel toggles the accelerometer in PWR_CTRL.
func (d *Device) EnableAccel(on bool) error { return d.setPower(PwrCtrlAcc, on) }

// EnableGyro toggles the gyroscope in PWR_CTRL.
func (d *Device) EnableGyro(on bool) error { return d.setPower(PwrCtrlGyr, on) }

// EnableTemperature toggles the temperature sensor in PWR_CTRL.
func (d *Device) EnableTemperature(on bool) error { return d.setPower(PwrCtrlTemp, on) }

func (d *Device) setPower(bit byte, on bool) error {
	var v byte
	if on {
		v = bit
	}
	return d.update(RegPwrCtrl, bit, v)
}

// ---------------- Conversion ----------------

// ConvertAccel scales r by the cached accelerometer range. The range must be
// the one active when r was captured.
func (d *Device) ConvertAccel(r Raw) Vec3 {
	s := d.accelRange.LSBPerG()
	return Vec3{X: float32(r.X) / s, Y: float32(r.Y) / s, Z: float32(r.Z) / s}
}

// ConvertGyro scales r by the cached gyroscope range.
func (d *Device) ConvertGyro(r Raw) Vec3 {
	s := d.gyroRange.LSBPerDPS()
	return Vec3{X: float32(r.X) / s, Y: float32(r.Y) / s, Z: float32(r.Z) / s}
}

// ConvertTemperature maps a raw temperature word to °C (0 = 23 °C, 512 LSB/K).
func ConvertTemperature(raw int16) float32 {
	return float32(raw)/512 + 23
}

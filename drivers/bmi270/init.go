package bmi270

import (
	"time"

	"imucode-go/x/mathx"
)

// InitState tracks Init progress.
type InitState uint8

const (
	StateReset InitState = iota
	StateConfigPrepare
	StateConfigUpload
	StateConfigVerify
	StatePowerEnable
	StateReady
	StateFailed
)

func (s InitState) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateConfigPrepare:
		return "config_prepare"
	case StateConfigUpload:
		return "config_upload"
	case StateConfigVerify:
		return "config_verify"
	case StatePowerEnable:
		return "power_enable"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InitError reports the step that failed.
type InitError struct {
	State InitState
	Err   error
}

func (e *InitError) Error() string { return "bmi270: init " + e.State.String() + ": " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }

// State returns the current init state.
func (d *Device) State() InitState { return d.state }

// Ready reports whether Init has completed.
func (d *Device) Ready() bool { return d.state == StateReady }

// Init resets the device, uploads the configuration blob, waits for the
// device to accept it and powers up accel, gyro and temperature.
//
// On failure the state is StateFailed and the error is an *InitError naming
// the step. Init never retries; call it again to restart from reset.
func (d *Device) Init(blob []byte) error {
	if len(blob) != ConfigFileSize {
		return ErrBlobSize
	}
	// Back to the slow regime until the device confirms the new config.
	d.initComplete = false

	steps := [...]struct {
		state InitState
		run   func() error
	}{
		{StateReset, d.reset},
		{StateConfigPrepare, d.prepareUpload},
		{StateConfigUpload, func() error { return d.upload(blob) }},
		{StateConfigVerify, d.verifyUpload},
		{StatePowerEnable, d.powerEnable},
	}
	for _, s := range steps {
		d.state = s.state
		if err := s.run(); err != nil {
			d.state = StateFailed
			return &InitError{State: s.state, Err: err}
		}
	}
	d.initComplete = true
	d.state = StateReady
	return nil
}

func (d *Device) reset() error {
	id, err := d.ChipID()
	if err != nil {
		return err
	}
	if id != ChipID {
		return ErrWrongChip
	}
	if err := d.WriteRegister(RegCmd, CmdSoftReset); err != nil {
		return err
	}
	d.sleep(d.cfg.SoftResetDelay)
	// Reset drops the interface back to I2C; one read re-selects SPI.
	if _, err := d.ReadRegister(RegChipID); err != nil {
		return err
	}
	d.accelRange = Range8G
	d.gyroRange = Range2000DPS
	return nil
}

func (d *Device) prepareUpload() error {
	if err := d.WriteRegister(RegPwrConf, pwrConfAdvPowerSaveOff); err != nil {
		return err
	}
	d.sleep(d.cfg.PowerConfDelay)
	return d.WriteRegister(RegInitCtrl, initCtrlPrepare)
}

// uploadChunk returns the effective burst size: even, within [2, MaxBurstLen].
func (d *Device) uploadChunk() int {
	return mathx.Clamp(d.cfg.UploadChunk, 2, MaxBurstLen) &^ 1
}

func (d *Device) upload(blob []byte) error {
	chunk := d.uploadChunk()
	var addr [2]byte
	written := 0
	for off := 0; off < len(blob); off += chunk {
		end := min(off+chunk, len(blob))
		// INIT_ADDR counts 16-bit words: low nibble in ADDR_0, the rest in ADDR_1.
		word := off / 2
		addr[0] = byte(word & 0x0F)
		addr[1] = byte(word >> 4)
		if err := d.WriteBurst(RegInitAddr0, addr[:]); err != nil {
			return err
		}
		if err := d.WriteBurst(RegInitData, blob[off:end]); err != nil {
			return err
		}
		written += end - off
	}
	if written != len(blob) {
		return ErrUploadIncomplete
	}
	return nil
}

func (d *Device) verifyUpload() error {
	if err := d.WriteRegister(RegInitCtrl, initCtrlComplete); err != nil {
		return err
	}
	deadline := time.Now().Add(d.cfg.InitTimeout)
	for {
		st, err := d.ReadRegister(RegInternalStatus)
		if err != nil {
			return err
		}
		switch st & internalMsgMask {
		case internalMsgInitOK:
			return nil
		case internalMsgInitErr:
			return ErrInitError
		}
		if time.Now().After(deadline) {
			return ErrInitTimeout
		}
		d.sleep(d.cfg.InitPollInterval)
	}
}

func (d *Device) powerEnable() error {
	return d.WriteRegister(RegPwrCtrl, PwrCtrlAcc|PwrCtrlGyr|PwrCtrlTemp)
}

package imu

import (
	"encoding/json"
	"time"

	"imucode-go/drivers/bmi270"
	"imucode-go/errcode"
	"imucode-go/x/mathx"
)

// Config is the service configuration. Field tags match the JSON/YAML
// documents accepted by LoadConfig and the host command.
type Config struct {
	// Bus is the SPI bus id handed to the SPIBusFactory.
	Bus string `json:"bus" yaml:"bus"`
	// CSPin is the BMI270 chip-select GPIO; -1 when the controller drives CS.
	CSPin int `json:"cs_pin" yaml:"cs_pin"`
	// PeerPins are chip selects of other devices on the bus, held inactive.
	PeerPins []int `json:"peer_pins" yaml:"peer_pins"`
	// IntPin is the host GPIO wired to the sensor interrupt output.
	IntPin int `json:"int_pin" yaml:"int_pin"`
	// IntOutput selects the sensor output (1 or 2) wired to IntPin.
	IntOutput int `json:"int_output" yaml:"int_output"`

	AccelRangeG  int     `json:"accel_range_g" yaml:"accel_range_g"`
	GyroRangeDPS int     `json:"gyro_range_dps" yaml:"gyro_range_dps"`
	AccelODRHz   float32 `json:"accel_odr_hz" yaml:"accel_odr_hz"`
	GyroODRHz    float32 `json:"gyro_odr_hz" yaml:"gyro_odr_hz"`
	Performance  bool    `json:"performance" yaml:"performance"`

	// Watermark is the FIFO threshold in bytes (clamped to 2047 by the device).
	Watermark     int `json:"watermark" yaml:"watermark"`
	WaitTimeoutMS int `json:"wait_timeout_ms" yaml:"wait_timeout_ms"`
	QueueDepth    int `json:"queue_depth" yaml:"queue_depth"`

	UploadChunk    int `json:"upload_chunk" yaml:"upload_chunk"`
	SuspendDelayUS int `json:"suspend_delay_us" yaml:"suspend_delay_us"`
	NormalDelayUS  int `json:"normal_delay_us" yaml:"normal_delay_us"`

	// LogEvery prints a status line every N batches; 0 disables it.
	LogEvery int `json:"log_every" yaml:"log_every"`
	// Simulate runs against the in-memory sensor model instead of hardware.
	Simulate bool `json:"simulate" yaml:"simulate"`
}

// DefaultConfig returns the reference bring-up: ±4 g, ±1000 dps, 100 Hz in
// performance mode, 512-byte watermark on INT1, 2 s wait.
func DefaultConfig() Config {
	return Config{
		Bus:           "spi0",
		CSPin:         -1,
		IntPin:        -1,
		IntOutput:     1,
		AccelRangeG:   4,
		GyroRangeDPS:  1000,
		AccelODRHz:    100,
		GyroODRHz:     100,
		Performance:   true,
		Watermark:     512,
		WaitTimeoutMS: 2000,
		QueueDepth:    10,
		UploadChunk:   256,
		LogEvery:      0,
	}
}

// LoadConfig decodes src (JSON bytes, string, or a map) over DefaultConfig
// and validates the result.
func LoadConfig(src any) (Config, error) {
	return DefaultConfig().Overlay(src)
}

// Overlay decodes src over a copy of c and validates the result. Fields
// absent from src keep c's values; a present peer_pins list replaces c's.
func (c Config) Overlay(src any) (Config, error) {
	var doc []byte
	switch v := src.(type) {
	case []byte:
		doc = v
	case string:
		doc = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Err: err}
		}
		doc = b
	}
	if err := json.Unmarshal(doc, &c); err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Err: err}
	}
	if _, err := c.settings(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// settings is Config mapped onto driver enums.
type settings struct {
	accelRange bmi270.AccelRange
	gyroRange  bmi270.GyroRange
	accelODR   bmi270.ODR
	gyroODR    bmi270.ODR
	filter     bmi270.FilterMode
	intOut     bmi270.IntPin
	watermark  uint16
	wait       time.Duration
}

func invalid(field string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: field}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	_, err := c.settings()
	return err
}

func (c Config) settings() (settings, error) {
	var s settings
	var ok bool
	if s.accelRange, ok = bmi270.AccelRangeFromG(c.AccelRangeG); !ok {
		return s, invalid("accel_range_g")
	}
	if s.gyroRange, ok = bmi270.GyroRangeFromDPS(c.GyroRangeDPS); !ok {
		return s, invalid("gyro_range_dps")
	}
	if s.accelODR, ok = bmi270.ODRFromHz(c.AccelODRHz); !ok || s.accelODR > bmi270.ODR1600Hz {
		return s, invalid("accel_odr_hz")
	}
	if s.gyroODR, ok = bmi270.ODRFromHz(c.GyroODRHz); !ok || s.gyroODR < bmi270.ODR25Hz {
		return s, invalid("gyro_odr_hz")
	}
	if c.Performance {
		s.filter = bmi270.FilterPerformance
	}
	switch c.IntOutput {
	case 1:
		s.intOut = bmi270.IntPin1
	case 2:
		s.intOut = bmi270.IntPin2
	default:
		return s, invalid("int_output")
	}
	if c.Watermark < 0 {
		return s, invalid("watermark")
	}
	s.watermark = uint16(mathx.Clamp(c.Watermark, 0, bmi270.MaxWatermark))
	if !mathx.Between(c.QueueDepth, 0, 1024) {
		return s, invalid("queue_depth")
	}
	if c.WaitTimeoutMS < 0 {
		return s, invalid("wait_timeout_ms")
	}
	s.wait = time.Duration(c.WaitTimeoutMS) * time.Millisecond
	return s, nil
}

func (c Config) driverConfig() bmi270.Config {
	return bmi270.Config{
		SuspendAccessDelay: time.Duration(c.SuspendDelayUS) * time.Microsecond,
		NormalAccessDelay:  time.Duration(c.NormalDelayUS) * time.Microsecond,
		UploadChunk:        c.UploadChunk,
	}
}

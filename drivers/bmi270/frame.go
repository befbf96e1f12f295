package bmi270

import "errors"

// Decoder outcomes.
var (
	// ErrNoMoreFrames marks the normal end of a buffer.
	ErrNoMoreFrames = errors.New("bmi270: no more frames")
	// ErrInvalidFrameHeader means the header byte is not a known frame type.
	// Nothing is consumed; skip one byte to resynchronise.
	ErrInvalidFrameHeader = errors.New("bmi270: invalid frame header")
	// ErrIncompleteFrame means the buffer ends inside a frame. Nothing is
	// consumed.
	ErrIncompleteFrame = errors.New("bmi270: incomplete frame")
)

// FrameKind tags a decoded FIFO frame.
type FrameKind uint8

const (
	FrameUnknown FrameKind = iota
	FrameAccel
	FrameGyro
	FrameAccelGyro
	FrameSkip
	FrameSensorTime
	FrameConfigChange
)

func (k FrameKind) String() string {
	switch k {
	case FrameAccel:
		return "accel"
	case FrameGyro:
		return "gyro"
	case FrameAccelGyro:
		return "accel_gyro"
	case FrameSkip:
		return "skip"
	case FrameSensorTime:
		return "sensor_time"
	case FrameConfigChange:
		return "config_change"
	default:
		return "unknown"
	}
}

// HasAccel reports whether Accel carries a sample.
func (k FrameKind) HasAccel() bool { return k == FrameAccel || k == FrameAccelGyro }

// HasGyro reports whether Gyro carries a sample.
func (k FrameKind) HasGyro() bool { return k == FrameGyro || k == FrameAccelGyro }

// Frame is one decoded FIFO frame. Only the fields matching Kind are set.
type Frame struct {
	Kind   FrameKind
	Header byte
	Accel  Raw
	Gyro   Raw
	// SensorTime is the 24-bit sensor time counter.
	SensorTime uint32
	// Config is the config-change payload (bit0 accel, bit1 gyro).
	Config byte
}

// FrameSize returns the byte length, header included, of the frame that
// starts with header.
func FrameSize(header byte) (int, bool) {
	switch header {
	case HeaderAccel, HeaderGyro:
		return frameSizeSingle, true
	case HeaderAccelGyro:
		return frameSizeAccelGyro, true
	case HeaderSkip:
		return frameSizeSkip, true
	case HeaderSensorTime:
		return frameSizeSensorTime, true
	case HeaderConfigChange:
		return frameSizeConfigChange, true
	}
	return 0, false
}

// NextFrame decodes the frame at the start of *buf into f and advances *buf
// past it. It must be called at a frame boundary. On any error *buf is left
// unchanged.
func NextFrame(buf *[]byte, f *Frame) error {
	b := *buf
	if len(b) == 0 {
		return ErrNoMoreFrames
	}
	h := b[0]
	n, ok := FrameSize(h)
	if !ok {
		*f = Frame{Kind: FrameUnknown, Header: h}
		return ErrInvalidFrameHeader
	}
	if len(b) < n {
		return ErrIncompleteFrame
	}

	*f = Frame{Header: h}
	switch h {
	case HeaderAccel:
		f.Kind = FrameAccel
		f.Accel = triplet(b[1:7])
	case HeaderGyro:
		f.Kind = FrameGyro
		f.Gyro = triplet(b[1:7])
	case HeaderAccelGyro:
		// Gyro payload precedes accel in combined frames.
		f.Kind = FrameAccelGyro
		f.Gyro = triplet(b[1:7])
		f.Accel = triplet(b[7:13])
	case HeaderSkip:
		f.Kind = FrameSkip
	case HeaderSensorTime:
		f.Kind = FrameSensorTime
		f.SensorTime = uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16
	case HeaderConfigChange:
		f.Kind = FrameConfigChange
		f.Config = b[1]
	}
	*buf = b[n:]
	return nil
}

// DecodeResult summarises one Decode pass.
type DecodeResult struct {
	// Invalid counts bytes skipped after unknown headers.
	Invalid int
	// Incomplete is the length of a trailing partial frame, left undecoded.
	Incomplete int
}

// Decode appends every complete frame in buf to out. Unknown headers are
// skipped one byte at a time; a trailing partial frame stops decoding.
func Decode(buf []byte, out []Frame) ([]Frame, DecodeResult) {
	var res DecodeResult
	var f Frame
	for {
		err := NextFrame(&buf, &f)
		switch err {
		case nil:
			out = append(out, f)
		case ErrInvalidFrameHeader:
			res.Invalid++
			buf = buf[1:]
		case ErrIncompleteFrame:
			res.Incomplete = len(buf)
			return out, res
		default:
			return out, res
		}
	}
}

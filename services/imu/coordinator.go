package imu

import (
	"context"
	"sync"
	"time"

	"imucode-go/drivers/bmi270"
	"imucode-go/errcode"
	"imucode-go/services/imu/internal/gpioirq"
	"imucode-go/x/timex"
)

// FIFOSource is the part of the driver the coordinator drains.
type FIFOSource interface {
	FIFOLength() (uint16, error)
	ReadFIFO(dst []byte) error
}

// CoordinatorConfig tunes the wait loop.
type CoordinatorConfig struct {
	// Watermark is the configured FIFO threshold. After a wait timeout the
	// FIFO is drained only if it holds at least this many bytes; 0 disables
	// the timeout drain.
	Watermark uint16
	// WaitTimeout bounds each wait for a signal (default 2 s).
	WaitTimeout time.Duration
}

const defaultWaitTimeout = 2 * time.Second

// Trigger records what caused a drain.
type Trigger uint8

const (
	TriggerSignal Trigger = iota // watermark interrupt
	TriggerPoll                  // wait timed out but the FIFO was over watermark
)

func (t Trigger) String() string {
	if t == TriggerPoll {
		return "poll"
	}
	return "signal"
}

// Sample is one accel/gyro pair in physical units.
type Sample struct {
	Accel    bmi270.Vec3
	Gyro     bmi270.Vec3
	HasAccel bool
	HasGyro  bool
}

// Batch is the result of one FIFO drain. Frames and Samples alias
// coordinator-owned storage and are valid only until the next Step.
type Batch struct {
	Seq     uint32
	TsMs    int64
	Trigger Trigger
	// Length is the byte count read from FIFO_DATA.
	Length int
	// Carried is the partial frame kept from the previous drain and decoded
	// ahead of this one.
	Carried    int
	Frames     []bmi270.Frame
	Samples    []Sample
	Invalid    int
	Incomplete int
	// Err is set when the drain failed; the other fields are then empty.
	Err error
}

// Stats are cumulative coordinator counters.
type Stats struct {
	Signals       uint32
	Timeouts      uint32
	MissedSignals uint32 // timeout drains with FIFO at or over watermark
	Drains        uint32
	Empty         uint32 // signalled but FIFO_LENGTH was 0
	Bytes         uint64
	Frames        uint32
	Invalid       uint32
	Incomplete    uint32
	Errors        uint32
	ISRDrops      uint32
	LastErr       errcode.Code
}

// Coordinator waits for watermark signals and drains the FIFO. It owns no
// goroutine; Step and Run execute on the caller's.
type Coordinator struct {
	src FIFOSource
	sig *gpioirq.Signal
	cfg CoordinatorConfig

	buf    []byte
	tail   int // partial frame bytes at the front of buf
	frames []bmi270.Frame
	batch  Batch
	seq    uint32

	mu    sync.Mutex
	stats Stats
}

// NewCoordinator drains src whenever sig fires. buf is the drain buffer;
// it is grown to the maximum burst length if shorter.
func NewCoordinator(src FIFOSource, sig *gpioirq.Signal, buf []byte, cfg CoordinatorConfig) *Coordinator {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	if cap(buf) < bmi270.MaxBurstLen {
		buf = make([]byte, bmi270.MaxBurstLen)
	}
	return &Coordinator{
		src:    src,
		sig:    sig,
		cfg:    cfg,
		buf:    buf[:bmi270.MaxBurstLen],
		frames: make([]bmi270.Frame, 0, 64),
	}
}

// SetWatermark updates the timeout-drain threshold, normally to the value
// read back from the device.
func (c *Coordinator) SetWatermark(wm uint16) { c.cfg.Watermark = wm }

// Step waits for one signal or timeout and drains the FIFO if required.
// It returns (nil, nil) when there was nothing to drain. Errors other than
// ctx's are counted and wrapped with an errcode.
func (c *Coordinator) Step(ctx context.Context) (*Batch, error) {
	got, err := c.sig.Wait(ctx, c.cfg.WaitTimeout)
	if err != nil {
		return nil, err
	}
	trig := TriggerSignal
	c.mu.Lock()
	if got {
		c.stats.Signals++
	} else {
		c.stats.Timeouts++
		trig = TriggerPoll
	}
	c.mu.Unlock()

	n, err := c.src.FIFOLength()
	if err != nil {
		return nil, c.fail("fifo_length", err)
	}
	if !got {
		// A missed edge leaves the FIFO above watermark with no new edge
		// coming; drain it from the timeout path.
		if c.cfg.Watermark == 0 || n < c.cfg.Watermark {
			return nil, nil
		}
		c.mu.Lock()
		c.stats.MissedSignals++
		c.mu.Unlock()
	}
	if n == 0 {
		c.mu.Lock()
		c.stats.Empty++
		c.mu.Unlock()
		return nil, nil
	}
	return c.drain(trig, int(n))
}

// drain reads n bytes, capped so the carried tail plus the read fit one
// burst, and decodes them after the tail left by the previous drain. The
// FIFO is never flushed: frames written after FIFO_LENGTH was sampled stay
// for the next drain. A trailing partial frame has already left the device,
// so it is kept at the front of buf and completed by the next read.
func (c *Coordinator) drain(trig Trigger, n int) (*Batch, error) {
	n = min(n, len(c.buf)-c.tail)
	if err := c.src.ReadFIFO(c.buf[c.tail : c.tail+n]); err != nil {
		return nil, c.fail("fifo_read", err)
	}
	b := c.buf[:c.tail+n]
	frames, res := bmi270.Decode(b, c.frames[:0])
	c.frames = frames
	c.seq++
	c.batch = Batch{
		Seq:        c.seq,
		TsMs:       timex.NowMs(),
		Trigger:    trig,
		Length:     n,
		Carried:    c.tail,
		Frames:     frames,
		Samples:    c.batch.Samples[:0],
		Invalid:    res.Invalid,
		Incomplete: res.Incomplete,
	}
	// Frames hold copies of their payloads, so the tail can move.
	c.tail = copy(c.buf, b[len(b)-res.Incomplete:])

	c.mu.Lock()
	c.stats.Drains++
	c.stats.Bytes += uint64(n)
	c.stats.Frames += uint32(len(frames))
	c.stats.Invalid += uint32(res.Invalid)
	if res.Incomplete > 0 {
		c.stats.Incomplete++
	}
	c.mu.Unlock()
	return &c.batch, nil
}

func (c *Coordinator) fail(op string, err error) error {
	werr := errcode.Wrap(op, err)
	c.mu.Lock()
	c.stats.Errors++
	c.stats.LastErr = errcode.Of(werr)
	c.mu.Unlock()
	return werr
}

// Run calls Step until ctx ends. Drain failures are delivered to fn as a
// Batch with Err set and the loop continues.
func (c *Coordinator) Run(ctx context.Context, fn func(*Batch)) error {
	for {
		b, err := c.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.seq++
			c.batch = Batch{Seq: c.seq, TsMs: timex.NowMs(), Samples: c.batch.Samples[:0], Err: err}
			fn(&c.batch)
			continue
		}
		if b != nil {
			fn(b)
		}
	}
}

// Stats returns a snapshot of the counters. Safe from any goroutine.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()
	s.ISRDrops = c.sig.ISRDrops()
	return s
}

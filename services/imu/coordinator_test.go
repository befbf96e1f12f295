package imu

import (
	"context"
	"errors"
	"testing"
	"time"

	"imucode-go/drivers/bmi270"
	"imucode-go/drivers/bmi270/bmi270test"
	"imucode-go/errcode"
	"imucode-go/services/imu/internal/gpioirq"
)

// fakeFIFO serves data as FIFO contents. late is appended right after
// FIFOLength samples the length, as if the sensor kept writing.
type fakeFIFO struct {
	data    []byte
	late    []byte
	lenErr  error
	readErr error
	lenCall int
	reads   []int
}

func (f *fakeFIFO) FIFOLength() (uint16, error) {
	f.lenCall++
	if f.lenErr != nil {
		return 0, f.lenErr
	}
	n := len(f.data)
	f.data = append(f.data, f.late...)
	f.late = nil
	return uint16(n), nil
}

func (f *fakeFIFO) ReadFIFO(dst []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	f.reads = append(f.reads, len(dst))
	n := copy(dst, f.data)
	f.data = f.data[n:]
	return nil
}

func frames(n int) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, bmi270test.AccelGyroFrame(bmi270.Raw{X: int16(i)}, bmi270.Raw{Z: int16(-i)})...)
	}
	return b
}

func newTestCoordinator(src FIFOSource, wm uint16) (*Coordinator, *gpioirq.Signal) {
	sig := gpioirq.New(4)
	c := NewCoordinator(src, sig, nil, CoordinatorConfig{Watermark: wm, WaitTimeout: 5 * time.Millisecond})
	return c, sig
}

func TestStepDrainsOnSignal(t *testing.T) {
	src := &fakeFIFO{data: frames(3)}
	c, sig := newTestCoordinator(src, 26)
	sig.Notify()

	b, err := c.Step(context.Background())
	if err != nil || b == nil {
		t.Fatalf("Step = %v, %v", b, err)
	}
	if b.Trigger != TriggerSignal || b.Length != 39 || len(b.Frames) != 3 {
		t.Fatalf("batch = %+v", b)
	}
	if b.Frames[2].Accel.X != 2 || b.Frames[2].Gyro.Z != -2 {
		t.Fatalf("frame 2 = %+v", b.Frames[2])
	}
	if b.Seq != 1 || b.TsMs == 0 {
		t.Fatalf("seq/ts = %d/%d", b.Seq, b.TsMs)
	}
	st := c.Stats()
	if st.Signals != 1 || st.Drains != 1 || st.Bytes != 39 || st.Frames != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDrainReadsOnlySampledLength(t *testing.T) {
	src := &fakeFIFO{data: frames(2), late: frames(1)}
	c, sig := newTestCoordinator(src, 0)
	sig.Notify()

	b, err := c.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Length != 26 || len(src.reads) != 1 || src.reads[0] != 26 {
		t.Fatalf("length = %d reads = %v", b.Length, src.reads)
	}
	if len(src.data) != 13 {
		t.Fatalf("late frame lost: %d bytes left", len(src.data))
	}

	sig.Notify()
	b, err = c.Step(context.Background())
	if err != nil || b == nil || len(b.Frames) != 1 {
		t.Fatalf("second drain = %+v, %v", b, err)
	}
}

func TestTimeoutBelowWatermarkDoesNotDrain(t *testing.T) {
	src := &fakeFIFO{data: frames(1)}
	c, _ := newTestCoordinator(src, 26)

	b, err := c.Step(context.Background())
	if err != nil || b != nil {
		t.Fatalf("Step = %v, %v", b, err)
	}
	if src.lenCall != 1 || len(src.reads) != 0 {
		t.Fatalf("len calls %d reads %v", src.lenCall, src.reads)
	}
	if st := c.Stats(); st.Timeouts != 1 || st.Drains != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestTimeoutOverWatermarkDrains(t *testing.T) {
	src := &fakeFIFO{data: frames(4)}
	c, _ := newTestCoordinator(src, 26)

	b, err := c.Step(context.Background())
	if err != nil || b == nil {
		t.Fatalf("Step = %v, %v", b, err)
	}
	if b.Trigger != TriggerPoll || b.Length != 52 {
		t.Fatalf("batch = %+v", b)
	}
	if st := c.Stats(); st.MissedSignals != 1 || st.Drains != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSignalWithEmptyFIFO(t *testing.T) {
	src := &fakeFIFO{}
	c, sig := newTestCoordinator(src, 26)
	sig.Notify()

	b, err := c.Step(context.Background())
	if err != nil || b != nil {
		t.Fatalf("Step = %v, %v", b, err)
	}
	if len(src.reads) != 0 || c.Stats().Empty != 1 {
		t.Fatalf("reads %v stats %+v", src.reads, c.Stats())
	}
}

func TestDrainResyncsAndReportsTail(t *testing.T) {
	data := append([]byte{0x00, 0x13}, frames(1)...)
	data = append(data, bmi270.HeaderAccelGyro, 1, 2)
	src := &fakeFIFO{data: data}
	c, sig := newTestCoordinator(src, 0)
	sig.Notify()

	b, err := c.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Frames) != 1 || b.Invalid != 2 || b.Incomplete != 3 {
		t.Fatalf("batch = %+v", b)
	}
	st := c.Stats()
	if st.Invalid != 2 || st.Incomplete != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPartialFrameCarriedToNextDrain(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, bmi270.Config{
		SuspendAccessDelay: time.Nanosecond,
		NormalAccessDelay:  time.Nanosecond,
	})
	second := bmi270test.AccelGyroFrame(bmi270.Raw{X: 100, Y: 200, Z: 300}, bmi270.Raw{X: -1, Y: -2, Z: -3})
	dev.Push(frames(1)...)
	dev.Push(second[:4]...)
	c, sig := newTestCoordinator(d, 0)

	sig.Notify()
	b, err := c.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Frames) != 1 || b.Incomplete != 4 || dev.FIFOLen() != 0 {
		t.Fatalf("first drain = %+v, fifo %d", b, dev.FIFOLen())
	}

	dev.Push(second[4:]...)
	sig.Notify()
	b, err = c.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Length != 9 || b.Carried != 4 || b.Invalid != 0 || b.Incomplete != 0 || len(b.Frames) != 1 {
		t.Fatalf("second drain = %+v", b)
	}
	f := b.Frames[0]
	if f.Kind != bmi270.FrameAccelGyro || f.Accel != (bmi270.Raw{X: 100, Y: 200, Z: 300}) || f.Gyro != (bmi270.Raw{X: -1, Y: -2, Z: -3}) {
		t.Fatalf("frame = %+v", f)
	}
}

func TestCarriedTailCapsNextRead(t *testing.T) {
	data := append(frames(1), bmi270.HeaderAccelGyro, 1, 2)
	src := &fakeFIFO{data: data}
	c, sig := newTestCoordinator(src, 0)
	sig.Notify()
	if _, err := c.Step(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.data = make([]byte, bmi270.MaxWatermark)
	sig.Notify()
	b, err := c.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := bmi270.MaxBurstLen - 3; src.reads[1] != want || b.Length != want || b.Carried != 3 {
		t.Fatalf("reads %v, batch length %d carried %d", src.reads, b.Length, b.Carried)
	}
	if len(src.data) != int(bmi270.MaxWatermark)-(bmi270.MaxBurstLen-3) {
		t.Fatalf("%d bytes left in FIFO", len(src.data))
	}
}

func TestTransportErrorCounted(t *testing.T) {
	boom := errors.New("spi: bus fault")
	src := &fakeFIFO{data: frames(1), readErr: boom}
	c, sig := newTestCoordinator(src, 0)
	sig.Notify()

	_, err := c.Step(context.Background())
	if !errors.Is(err, boom) || errcode.Of(err) != errcode.Transport {
		t.Fatalf("err = %v (%s)", err, errcode.Of(err))
	}
	if st := c.Stats(); st.Errors != 1 || st.LastErr != errcode.Transport {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRunDeliversErrorsAndStopsOnCancel(t *testing.T) {
	src := &fakeFIFO{lenErr: errors.New("spi: nak")}
	c, sig := newTestCoordinator(src, 0)
	sig.Notify()

	ctx, cancel := context.WithCancel(context.Background())
	var got []*Batch
	err := c.Run(ctx, func(b *Batch) {
		cp := *b
		got = append(got, &cp)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if len(got) != 1 || got[0].Err == nil {
		t.Fatalf("batches = %+v", got)
	}
}

func TestCoordinatorNeverFlushes(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, bmi270.Config{
		SuspendAccessDelay: time.Nanosecond,
		NormalAccessDelay:  time.Nanosecond,
	})
	dev.Push(frames(5)...)
	c, sig := newTestCoordinator(d, 26)
	sig.Notify()

	b, err := c.Step(context.Background())
	if err != nil || b == nil || len(b.Frames) != 5 {
		t.Fatalf("Step = %+v, %v", b, err)
	}
	for _, cmd := range dev.Commands {
		if cmd == bmi270.CmdFIFOFlush {
			t.Fatal("FIFO flushed after drain")
		}
	}
	if dev.FIFOLen() != 0 {
		t.Fatalf("FIFO holds %d bytes", dev.FIFOLen())
	}
}

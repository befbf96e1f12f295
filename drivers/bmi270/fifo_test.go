package bmi270_test

import (
	"bytes"
	"testing"

	"imucode-go/drivers/bmi270"
	"imucode-go/drivers/bmi270/bmi270test"
)

func TestConfigureFIFO(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, fastConfig())

	err := d.ConfigureFIFO(bmi270.FIFOConfig{Accel: true, Gyro: true, Header: true, Watermark: 512})
	if err != nil {
		t.Fatalf("ConfigureFIFO: %v", err)
	}
	if got := dev.Reg(bmi270.RegFIFOConfig1); got != 0xD0 {
		t.Fatalf("FIFO_CONFIG_1 = %#x, want 0xd0", got)
	}
	// Stream mode clears stop-on-full and keeps the reserved bit 1.
	if got := dev.Reg(bmi270.RegFIFOConfig0); got != 0x02 {
		t.Fatalf("FIFO_CONFIG_0 = %#x, want 0x02", got)
	}
	if lo, hi := dev.Reg(bmi270.RegFIFOWTM0), dev.Reg(bmi270.RegFIFOWTM1); lo != 0x00 || hi != 0x02 {
		t.Fatalf("WTM = %#x %#x, want 0x00 0x02", lo, hi)
	}
}

func TestWatermarkClampedAndReadBack(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, fastConfig())

	got, err := d.SetWatermark(5000)
	if err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	if got != bmi270.MaxWatermark {
		t.Fatalf("effective = %d, want %d", got, bmi270.MaxWatermark)
	}
	rb, err := d.Watermark()
	if err != nil || rb != bmi270.MaxWatermark {
		t.Fatalf("Watermark() = %d, %v", rb, err)
	}

	got, err = d.SetWatermark(300)
	if err != nil || got != 300 {
		t.Fatalf("SetWatermark(300) = %d, %v", got, err)
	}
}

func TestDrainLengthAccounting(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, fastConfig())

	var want []byte
	for i := 0; i < 4; i++ {
		want = append(want, bmi270test.AccelGyroFrame(bmi270.Raw{X: int16(i)}, bmi270.Raw{Y: int16(i)})...)
	}
	dev.Push(want...)
	dev.Push(0x40)

	before, err := d.FIFOLength()
	if err != nil {
		t.Fatal(err)
	}
	n := 26
	buf := make([]byte, n)
	if err := d.ReadFIFO(buf); err != nil {
		t.Fatal(err)
	}
	after, err := d.FIFOLength()
	if err != nil {
		t.Fatal(err)
	}
	if int(before)-int(after) != n {
		t.Fatalf("length %d -> %d after draining %d", before, after, n)
	}
	if !bytes.Equal(buf, want[:n]) {
		t.Fatalf("drained % x", buf)
	}
	for _, c := range dev.Commands {
		if c == bmi270.CmdFIFOFlush {
			t.Fatal("drain issued a flush")
		}
	}
}

func TestFIFOLengthMasksElevenBits(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, fastConfig())
	dev.Push(make([]byte, 2000)...)

	n, err := d.FIFOLength()
	if err != nil || n != 2000 {
		t.Fatalf("FIFOLength = %d, %v", n, err)
	}
	if err := d.FlushFIFO(); err != nil {
		t.Fatal(err)
	}
	if n, _ := d.FIFOLength(); n != 0 {
		t.Fatalf("after flush = %d", n)
	}
}

func TestModelPulsesOncePerWatermarkCrossing(t *testing.T) {
	dev := bmi270test.New()
	d := bmi270.New(dev, fastConfig())
	if _, err := d.SetWatermark(26); err != nil {
		t.Fatal(err)
	}
	if err := d.EnableFIFOWatermarkInterrupt(bmi270.IntPin1); err != nil {
		t.Fatal(err)
	}
	pulses := 0
	dev.OnWatermark = func() { pulses++ }

	frame := bmi270test.AccelGyroFrame(bmi270.Raw{}, bmi270.Raw{})
	for i, want := range []int{0, 1, 1, 1} {
		dev.Push(frame...)
		if pulses != want {
			t.Fatalf("push %d: %d pulses, want %d", i, pulses, want)
		}
	}

	buf := make([]byte, dev.FIFOLen())
	if err := d.ReadFIFO(buf); err != nil {
		t.Fatal(err)
	}
	dev.Push(frame...)
	dev.Push(frame...)
	if pulses != 2 {
		t.Fatalf("after drain: %d pulses, want 2", pulses)
	}
}

//go:build rp2040 || rp2350

// Command pico-imu streams BMI270 samples from a Pico over UART0 as
// teleplot lines. The 8192-byte configuration blob is received on UART0 at
// boot, optionally followed by one JSON line overriding the board settings,
// e.g. {"accel_odr_hz":400,"watermark":260}.
package main

import (
	"bytes"
	"context"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"imucode-go/drivers/bmi270"
	"imucode-go/services/imu"
	"imucode-go/x/conv"
)

const (
	baud       = 115200
	csPin      = 17 // SPI0 CSn
	intPin     = 20
	blobWait   = 30 * time.Second
	configWait = 3 * time.Second
	maxConfig  = 512
)

func main() {
	println("[imu] boot …")
	time.Sleep(1500 * time.Millisecond)

	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	blob := make([]byte, bmi270.ConfigFileSize)
	for {
		if err := receiveBlob(u, blob); err != nil {
			println("[imu] blob:", err.Error())
			continue
		}
		break
	}

	cfg := imu.DefaultConfig()
	cfg.Bus = "spi0"
	cfg.CSPin = csPin
	cfg.IntPin = intPin
	cfg.LogEvery = 50
	cfg = receiveConfig(u, cfg)

	var line []byte
	for {
		err := imu.Run(context.Background(), cfg, blob, func(b *imu.Batch) {
			if b.Err != nil {
				println("[imu] batch", b.Seq, b.Err.Error())
				return
			}
			for _, s := range b.Samples {
				line = imu.AppendTeleplot(line[:0], s)
				_, _ = u.Write(line)
			}
		})
		if err != nil {
			println("[imu] stopped:", err.Error(), "; retrying")
		}
		time.Sleep(time.Second)
	}
}

// receiveBlob prompts on u and reads exactly len(dst) bytes, then echoes
// an XOR checksum so the sender can verify the transfer.
func receiveBlob(u *uartx.UART, dst []byte) error {
	var msg []byte
	msg = append(msg, "blob? send "...)
	msg = conv.AppendInt(msg, int64(len(dst)))
	msg = append(msg, " bytes\n"...)
	_, _ = u.Write(msg)

	ctx, cancel := context.WithTimeout(context.Background(), blobWait)
	defer cancel()
	for n := 0; n < len(dst); {
		k, err := u.RecvSomeContext(ctx, dst[n:])
		if err != nil {
			return err
		}
		n += k
	}
	var sum byte
	for _, b := range dst {
		sum ^= b
	}
	msg = append(msg[:0], "blob ok xor=0x"...)
	msg = conv.AppendHex8(msg, sum)
	_, _ = u.Write(append(msg, '\n'))
	return nil
}

// receiveConfig waits briefly for one JSON line and overlays it on base.
// No line, a timeout or an invalid document leaves base in effect.
func receiveConfig(u *uartx.UART, base imu.Config) imu.Config {
	_, _ = u.Write([]byte("config? send one JSON line\n"))
	ctx, cancel := context.WithTimeout(context.Background(), configWait)
	defer cancel()

	buf := make([]byte, maxConfig)
	n := 0
	for n < len(buf) {
		k, err := u.RecvSomeContext(ctx, buf[n:])
		if err != nil {
			println("[imu] config: defaults")
			return base
		}
		if i := bytes.IndexByte(buf[n:n+k], '\n'); i >= 0 {
			n += i
			break
		}
		n += k
	}
	line := bytes.TrimSpace(buf[:n])
	if len(line) == 0 {
		return base
	}
	cfg, err := base.Overlay(line)
	if err != nil {
		println("[imu] config:", err.Error())
		return base
	}
	println("[imu] config applied")
	return cfg
}

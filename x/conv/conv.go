// Package conv appends numbers to byte slices without fmt or strconv, for
// telemetry on MCU builds.
package conv

// AppendUint appends the base-10 form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

// AppendInt appends the base-10 form of n.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000}

// AppendFixed appends v rounded to dec decimal places (0..6), half away
// from zero.
func AppendFixed(dst []byte, v float32, dec int) []byte {
	if dec < 0 {
		dec = 0
	}
	if dec >= len(pow10) {
		dec = len(pow10) - 1
	}
	scale := pow10[dec]
	f := float64(v) * float64(scale)
	if f < 0 {
		f -= 0.5
	} else {
		f += 0.5
	}
	n := int64(f)
	if n < 0 {
		dst = append(dst, '-')
		n = -n
	}
	dst = AppendUint(dst, uint64(n/scale))
	if dec == 0 {
		return dst
	}
	dst = append(dst, '.')
	frac := n % scale
	for p := scale / 10; p > 0; p /= 10 {
		dst = append(dst, byte('0'+frac/p))
		frac %= p
	}
	return dst
}

// AppendHex8 appends b as two uppercase hex digits.
func AppendHex8(dst []byte, b byte) []byte {
	const hexd = "0123456789ABCDEF"
	return append(dst, hexd[b>>4], hexd[b&0x0F])
}

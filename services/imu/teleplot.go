package imu

import "imucode-go/x/conv"

// AppendTeleplot appends s as teleplot lines (">name:value\n"): ax..az in g
// with 4 decimals, gx..gz in °/s with 3.
func AppendTeleplot(dst []byte, s Sample) []byte {
	if s.HasAccel {
		dst = appendVar(dst, "ax", s.Accel.X, 4)
		dst = appendVar(dst, "ay", s.Accel.Y, 4)
		dst = appendVar(dst, "az", s.Accel.Z, 4)
	}
	if s.HasGyro {
		dst = appendVar(dst, "gx", s.Gyro.X, 3)
		dst = appendVar(dst, "gy", s.Gyro.Y, 3)
		dst = appendVar(dst, "gz", s.Gyro.Z, 3)
	}
	return dst
}

func appendVar(dst []byte, name string, v float32, dec int) []byte {
	dst = append(dst, '>')
	dst = append(dst, name...)
	dst = append(dst, ':')
	dst = conv.AppendFixed(dst, v, dec)
	return append(dst, '\n')
}

package bmi270

import "time"

// SetSleep replaces the delay function so tests can observe delays.
func SetSleep(d *Device, f func(time.Duration)) { d.sleep = f }

package errcode

import (
	"errors"
	"testing"

	"imucode-go/drivers/bmi270"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"ok":                   OK,
		"busy":                 Busy,
		"invalid_params":       InvalidParams,
		"unknown_bus":          UnknownBus,
		"unknown_pin":          UnknownPin,
		"timeout":              Timeout,
		"canceled":             Canceled,
		"transport":            Transport,
		"size_mismatch":        SizeMismatch,
		"wrong_chip":           WrongChip,
		"init_error":           InitError,
		"invalid_frame_header": InvalidFrameHeader,
		"incomplete_frame":     IncompleteFrame,
		"error":                Error,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c)
		}
	}
}

func TestMapDriverErr(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{&bmi270.InitError{State: bmi270.StateConfigVerify, Err: bmi270.ErrInitTimeout}, Timeout},
		{&bmi270.InitError{State: bmi270.StateConfigVerify, Err: bmi270.ErrInitError}, InitError},
		{&bmi270.InitError{State: bmi270.StateReset, Err: bmi270.ErrWrongChip}, WrongChip},
		{bmi270.ErrSizeMismatch, SizeMismatch},
		{bmi270.ErrInvalidLength, Transport},
		{bmi270.ErrIncompleteFrame, IncompleteFrame},
		{bmi270.ErrInvalidFrameHeader, InvalidFrameHeader},
		{bmi270.ErrBlobSize, InvalidParams},
		{errors.New("spi: fifo underrun"), Transport},
		{&E{C: UnknownPin}, UnknownPin},
	}
	for _, c := range cases {
		if got := MapDriverErr(c.err); got != c.want {
			t.Fatalf("MapDriverErr(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	if Wrap("x", nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}
	err := Wrap("bringup/init", &bmi270.InitError{State: bmi270.StateConfigVerify, Err: bmi270.ErrInitTimeout})
	if Of(err) != Timeout {
		t.Fatalf("code = %q", Of(err))
	}
	if !errors.Is(err, bmi270.ErrInitTimeout) {
		t.Fatal("cause lost")
	}
	if got := err.Error(); got != "bringup/init: timeout: bmi270: init config_verify: bmi270: init status timeout" {
		t.Fatalf("message = %q", got)
	}
}

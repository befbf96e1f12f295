package conv

import "testing"

func TestAppendInt(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0"}, {7, "7"}, {-42, "-42"}, {1234567890, "1234567890"},
	}
	for _, c := range cases {
		if got := string(AppendInt(nil, c.n)); got != c.want {
			t.Errorf("AppendInt(%d) = %q", c.n, got)
		}
	}
	if got := string(AppendUint([]byte("n="), 18446744073709551615)); got != "n=18446744073709551615" {
		t.Errorf("AppendUint max = %q", got)
	}
}

func TestAppendFixed(t *testing.T) {
	cases := []struct {
		v    float32
		dec  int
		want string
	}{
		{1, 3, "1.000"},
		{-0.5, 2, "-0.50"},
		{0.0005, 3, "0.001"},
		{12.3456, 2, "12.35"},
		{-0.004, 2, "0.00"},
		{3.7, 0, "4"},
		{60.9756, 3, "60.976"},
	}
	for _, c := range cases {
		if got := string(AppendFixed(nil, c.v, c.dec)); got != c.want {
			t.Errorf("AppendFixed(%v, %d) = %q, want %q", c.v, c.dec, got, c.want)
		}
	}
}

func TestAppendHex8(t *testing.T) {
	if got := string(AppendHex8([]byte("0x"), 0x24)); got != "0x24" {
		t.Fatalf("got %q", got)
	}
	if got := string(AppendHex8(nil, 0xB6)); got != "B6" {
		t.Fatalf("got %q", got)
	}
}

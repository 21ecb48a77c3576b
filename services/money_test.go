package services

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"$250.00", 250, true},
		{"1,250.50", 1250.5, true},
		{" $ 1,000 ", 1000, true},
		{"75", 75, true},
		{"", 0, false},
		{"$", 0, false},
		{"about fifty", 0, false},
		{"-20", -20, true},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"Infinity", 0, false},
		{"-inf", 0, false},
		{"0x1p4", 0, false},
		{"1e3", 0, false},
		{"12.", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseAmount(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseAmount(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

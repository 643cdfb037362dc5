package utils

import (
	"math"
	"strings"
	"testing"
)

func TestParseUserAgent(t *testing.T) {
	iphone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	info := ParseUserAgent(iphone)
	if info.DeviceType != "mobile" {
		t.Errorf("expected mobile, got %q", info.DeviceType)
	}
	if !strings.HasPrefix(info.Browser, "Safari") {
		t.Errorf("expected Safari browser, got %q", info.Browser)
	}

	desktop := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	info = ParseUserAgent(desktop)
	if info.DeviceType != "desktop" {
		t.Errorf("expected desktop, got %q", info.DeviceType)
	}
	if !strings.HasPrefix(info.Browser, "Chrome") {
		t.Errorf("expected Chrome browser, got %q", info.Browser)
	}
	if !strings.Contains(info.String(), "desktop") {
		t.Errorf("String() should include device type: %s", info.String())
	}

	if ParseUserAgent("").DeviceType != "unknown" {
		t.Error("empty header gives unknown device")
	}
}

func TestClampInt32(t *testing.T) {
	cases := []struct {
		in   float64
		want int32
	}{
		{1234, 1234},
		{15234.7, 15235},
		{-0.4, 0},
		{1e20, math.MaxInt32},
		{-1e20, math.MinInt32},
		{math.MaxInt64, math.MaxInt32},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tc := range cases {
		if got := ClampInt32(tc.in); got != tc.want {
			t.Errorf("ClampInt32(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

package utils

import (
	"math"
	"strings"

	"github.com/mssola/useragent"
)

// DeviceInfo is what we keep about a signer's browser
type DeviceInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

// ParseUserAgent derives device type, browser and OS from a User-Agent header
func ParseUserAgent(header string) DeviceInfo {
	if strings.TrimSpace(header) == "" {
		return DeviceInfo{DeviceType: "unknown"}
	}
	ua := useragent.New(header)

	info := DeviceInfo{OS: ua.OS()}
	name, version := ua.Browser()
	info.Browser = strings.TrimSpace(name + " " + version)

	switch {
	case ua.Bot():
		info.DeviceType = "bot"
	case strings.Contains(header, "iPad") || strings.Contains(header, "Tablet"):
		info.DeviceType = "tablet"
	case ua.Mobile():
		info.DeviceType = "mobile"
	default:
		info.DeviceType = "desktop"
	}
	return info
}

// String formats the info for display
func (d DeviceInfo) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.DeviceType, d.Browser, d.OS} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ClampInt32 rounds v into the int32 range of the analytics columns.
// NaN and infinities give 0.
func ClampInt32(v float64) int32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Round(v)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// Package fingerprint derives a low-entropy client-device identifier from
// browser environment signals. The value is a heuristic session key, not a
// security boundary: a browser update changes the fingerprint and the flow
// falls back to OTP.
package fingerprint

import (
	"strconv"
	"strings"
)

// Signals are the environment values a client reports on page load.
type Signals struct {
	UserAgent        string
	ScreenResolution string
	Timezone         string
	Language         string
	Platform         string
	CookiesEnabled   bool
	DoNotTrack       string
	ColorDepth       int
	PixelRatio       float64
}

// Generate reduces the signals to a base-36 identifier. Pure and
// deterministic: identical signals always produce the same fingerprint.
func Generate(s Signals) string {
	joined := strings.Join([]string{
		s.UserAgent,
		s.ScreenResolution,
		s.Timezone,
		s.Language,
		s.Platform,
		strconv.FormatBool(s.CookiesEnabled),
		s.DoNotTrack,
		strconv.Itoa(s.ColorDepth),
		strconv.FormatFloat(s.PixelRatio, 'f', -1, 64),
	}, "|")

	// Multiply-add rolling hash with 32-bit wraparound.
	var h int32
	for _, ch := range joined {
		h = h*31 + int32(ch)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

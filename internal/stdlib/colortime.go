package stdlib

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pepl/internal/value"
)

// parseHexColor accepts "#rrggbb" or "#rrggbbaa".
func parseHexColor(s string) (value.Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return value.Color{}, fmt.Errorf("invalid hex color: %q", s)
	}
	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return value.Color{}, fmt.Errorf("invalid hex color: %q", s)
	}
	a := uint64(255)
	if len(s) == 8 {
		var err4 error
		a, err4 = strconv.ParseUint(s[6:8], 16, 8)
		if err4 != nil {
			return value.Color{}, fmt.Errorf("invalid hex color: %q", s)
		}
	}
	return value.Color{
		R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: float64(a) / 255,
	}, nil
}

func colorToHex(c value.Color) string {
	to255 := func(f float64) uint8 {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return uint8(f*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", to255(c.R), to255(c.G), to255(c.B), to255(c.A))
}

// formatEpochMillis renders a millisecond epoch timestamp with a small
// strftime-like layout subset (%Y %m %d %H %M %S), avoiding Go's reference
// date syntax inside PEPL source.
func formatEpochMillis(ms float64, layout string) string {
	t := time.UnixMilli(int64(ms)).UTC()
	replacer := strings.NewReplacer(
		"%Y", fmt.Sprintf("%04d", t.Year()),
		"%m", fmt.Sprintf("%02d", int(t.Month())),
		"%d", fmt.Sprintf("%02d", t.Day()),
		"%H", fmt.Sprintf("%02d", t.Hour()),
		"%M", fmt.Sprintf("%02d", t.Minute()),
		"%S", fmt.Sprintf("%02d", t.Second()),
	)
	return replacer.Replace(layout)
}

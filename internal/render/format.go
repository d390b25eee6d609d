package render

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// timestampLayout is the fixed display format for timestamps.
const timestampLayout = "2006-01-02 15:04"

// formatValue renders a payload value for display. Byte-count fields are
// shown in binary-prefixed units and RFC 3339 timestamps in a fixed
// YYYY-MM-DD HH:mm form.
func formatValue(key string, v any) string {
	switch val := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			return ts.UTC().Format(timestampLayout)
		}
		return val
	case float64:
		if isByteField(key) {
			return formatBytes(val)
		}
		if val == math.Trunc(val) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isByteField reports whether a field name denotes a byte count.
func isByteField(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "bytes") || strings.HasSuffix(k, "size") ||
		strings.Contains(k, "usage") || strings.Contains(k, "quota")
}

// formatBytes renders a byte count with binary prefixes at 1024 boundaries.
func formatBytes(n float64) string {
	abs := math.Abs(n)
	switch {
	case abs >= 1<<40:
		return trimUnit(n/(1<<40), "TiB")
	case abs >= 1<<30:
		return trimUnit(n/(1<<30), "GiB")
	case abs >= 1<<20:
		return trimUnit(n/(1<<20), "MiB")
	case abs >= 1<<10:
		return trimUnit(n/(1<<10), "KiB")
	default:
		return fmt.Sprintf("%d B", int64(n))
	}
}

func trimUnit(v float64, unit string) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + unit
}

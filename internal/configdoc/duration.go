package configdoc

import (
	"strconv"
	"time"
)

// Duration is a time span bound by the configuration engine's special
// dual-form rule: either a mapping under the field's
// base name summing any subset of named units, or a bare scalar integer
// under "<base>_<unit>" for exactly one unit. Both forms produce the
// same Duration; only the document shape differs.
type Duration time.Duration

// durationUnits maps the document's unit names to their time.Duration
// scale.
var durationUnits = map[string]time.Duration{
	"weeks":   7 * 24 * time.Hour,
	"days":    24 * time.Hour,
	"hours":   time.Hour,
	"minutes": time.Minute,
	"seconds": time.Second,
	"msecs":   time.Millisecond,
	"usecs":   time.Microsecond,
	"hnsecs":  100 * time.Nanosecond,
	"nsecs":   time.Nanosecond,
}

// sumDurationMapping adds up a mapping's named-unit entries into a
// single Duration. Keys not in durationUnits are skipped, under every
// strict mode.
func sumDurationMapping(units map[string]string) (Duration, error) {
	var total time.Duration
	for name, raw := range units {
		scale, ok := durationUnits[name]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		total += time.Duration(n) * scale
	}
	return Duration(total), nil
}

func scalarDuration(scale time.Duration, raw string) (Duration, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return Duration(time.Duration(n) * scale), nil
}

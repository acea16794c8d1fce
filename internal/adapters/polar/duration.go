package polar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseISODuration parses the time part of an ISO-8601 duration such as
// "PT2H30M15.5S". Day designators ("P1DT2H") are accepted; years, months and
// weeks are not, since an activity day never spans them.
func parseISODuration(s string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(s, "P")
	if !ok || rest == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total time.Duration
	inTime := false
	for rest != "" {
		if rest[0] == 'T' {
			inTime = true
			rest = rest[1:]
			continue
		}

		i := strings.IndexAny(rest, "DHMS")
		if i <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		value, err := strconv.ParseFloat(rest[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}

		var unit time.Duration
		switch rest[i] {
		case 'D':
			if inTime {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			unit = 24 * time.Hour
		case 'H':
			unit = time.Hour
		case 'M':
			unit = time.Minute
		case 'S':
			unit = time.Second
		}
		if unit != 24*time.Hour && !inTime {
			return 0, fmt.Errorf("unsupported duration %q", s)
		}

		total += time.Duration(value * float64(unit))
		rest = rest[i+1:]
	}

	return total, nil
}

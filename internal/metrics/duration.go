package metrics

import "strconv"

// ParseISODuration converts a platform duration string like "PT1H2M30S" into
// total seconds. Any subset of the hour/minute/second components may appear.
// Malformed input and day-scale durations ("P1DT...") yield 0.
func ParseISODuration(s string) int {
	if len(s) < 3 || s[0] != 'P' || s[1] != 'T' {
		return 0
	}

	total := 0
	num := ""
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			if num == "" {
				return 0
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			switch r {
			case 'H':
				total += n * 3600
			case 'M':
				total += n * 60
			case 'S':
				total += n
			}
			num = ""
		default:
			return 0
		}
	}
	if num != "" {
		// Trailing digits without a unit.
		return 0
	}
	return total
}

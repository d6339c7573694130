package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// tailTimeFromStr parses the --tail/--tail-end shorthand ("min", ":sec",
// "min:sec", "hour:min:sec") and returns now minus that duration, ported
// from the original CLI's tail_time_from_str.
func tailTimeFromStr(a string) (time.Time, error) {
	parts := strings.Split(a, ":")

	var hours, minutes, seconds string
	switch len(parts) {
	case 1:
		hours, minutes, seconds = "0", parts[0], "0"
	case 2:
		if parts[0] == "" {
			hours, minutes, seconds = "0", "0", parts[1]
		} else {
			hours, minutes, seconds = "0", parts[0], parts[1]
		}
	case 3:
		hours, minutes, seconds = parts[0], parts[1], parts[2]
	default:
		return time.Time{}, fmt.Errorf("invalid tail time format: %q", a)
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid tail time format: %q", a)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid tail time format: %q", a)
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid tail time format: %q", a)
	}

	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	return time.Now().Add(-d), nil
}

package osc

import (
	"strconv"
	"strings"
)

// isIntString reports whether s is an optional sign followed by one or more
// digits, with no trailing space tolerated (a deliberate local refinement
// over a lenient integer parser).
func isIntString(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isFloatString reports whether s is an isIntString-shaped value with at
// most one embedded '.'.
func isFloatString(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	dots := 0
	sawDigit := false
	for ; i < len(s); i++ {
		switch {
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		case s[i] >= '0' && s[i] <= '9':
			sawDigit = true
		default:
			return false
		}
	}
	return sawDigit
}

// MessageFromString builds a Message from a human-typed string of the form
// "/a/b/c" or "/a/b/c=arg1,arg2". Each argument is added as int32 if it
// looks like an integer, float32 if it looks like a float, else string.
func MessageFromString(s string) Message {
	path := s
	var argsPart string
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		path = s[:idx]
		argsPart = s[idx+1:]
	}

	msg := Message{Address: path}
	if argsPart == "" {
		return msg
	}

	for _, raw := range strings.Split(argsPart, ",") {
		switch {
		case isIntString(raw):
			v, _ := strconv.ParseInt(raw, 10, 32)
			msg.Arguments = append(msg.Arguments, int32(v))
		case isFloatString(raw):
			v, _ := strconv.ParseFloat(raw, 32)
			msg.Arguments = append(msg.Arguments, float32(v))
		default:
			msg.Arguments = append(msg.Arguments, raw)
		}
	}
	return msg
}

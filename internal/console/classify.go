package console

import (
	"regexp"
	"strings"
)

// LogLine is one classified console line.
type LogLine struct {
	Code      Code
	Timestamp string
	Content   string
}

var (
	prefixedLine = regexp.MustCompile(`(?s)^([^|]{2})\|(\d\d:\d\d:\d\d\.\d\d\d) (.*)$`)
	legacyLine   = regexp.MustCompile(`(?s)^(?:(\d\d:\d\d:\d\d\.\d\d\d) )?(.*)$`)
)

// Classify parses one raw line. It never fails: input matching neither the
// prefixed nor the legacy timestamp format becomes plain content.
func Classify(raw string) LogLine {
	raw = strings.TrimSuffix(raw, "\r")
	if m := prefixedLine.FindStringSubmatch(raw); m != nil {
		return LogLine{Code: Code(m[1]), Timestamp: m[2], Content: m[3]}
	}
	if m := legacyLine.FindStringSubmatch(raw); m != nil {
		return LogLine{Timestamp: m[1], Content: m[2]}
	}
	return LogLine{Content: raw}
}

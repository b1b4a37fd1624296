package usecase

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*((?:\d+:)+\d+(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=\s*((?:\d+:)+\d+(?:\.\d+)?)`)
)

// ProgressParser extracts a completion ratio from ffmpeg log output. The
// first Duration header establishes the total length; subsequent progress
// lines carrying time= report the transcoded position. Ratios are clamped
// to [0,1] and anomalies are logged rather than propagated.
type ProgressParser struct {
	log *slog.Logger

	totalMs int64
	onRatio func(float64)
}

func NewProgressParser(log *slog.Logger, onRatio func(float64)) *ProgressParser {
	return &ProgressParser{log: log, onRatio: onRatio}
}

// Parse consumes one log line. Lines that carry neither a duration header
// nor a progress timestamp are ignored.
func (p *ProgressParser) Parse(line string) {
	if p.totalMs == 0 {
		if m := durationPattern.FindStringSubmatch(line); m != nil {
			ms, ok := parseTimestampMs(m[1])
			if !ok || ms == 0 {
				p.log.Warn("unparseable duration header", "line", line)
				return
			}
			p.totalMs = ms
		}
		return
	}

	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	ms, ok := parseTimestampMs(m[1])
	if !ok {
		p.log.Warn("unparseable progress timestamp", "line", line)
		return
	}

	ratio := float64(ms) / float64(p.totalMs)
	if ratio < 0 || ratio > 1 {
		p.log.Warn("progress ratio out of range", "ratio", ratio)
		if ratio < 0 {
			ratio = 0
		} else {
			ratio = 1
		}
	}
	if p.onRatio != nil {
		p.onRatio(ratio)
	}
}

// parseTimestampMs converts an h:m:s[.cc] timestamp to milliseconds. Any
// number of leading colon-separated fields is accepted.
func parseTimestampMs(ts string) (int64, bool) {
	fields := strings.Split(ts, ":")
	var total float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return int64(total * 1000), true
}

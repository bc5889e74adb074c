// Package cron implements the Scheduler: cron-expression parsing,
// a 60-second tick loop, and the message/tool/agent action runners
// that re-enter the Agent Loop with synthesized sessions.
package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions plus the
// @hourly/@daily/... descriptors. @reboot is not a parser descriptor:
// Next handles it before parsing, and the Scheduler does not
// reschedule an @reboot job after its first run.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// maxHorizon bounds how far into the future Next will search, so a
// pathological expression (e.g. Feb 30) cannot spin forever.
const maxHorizon = 4 * 365 * 24 * time.Hour

// Next computes the next occurrence of expr strictly after now with
// the library's schedule solver, and reports an error for an empty or
// malformed expression or an occurrence beyond maxHorizon. @reboot
// yields now plus one minute.
func Next(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("cron: empty expression")
	}
	if expr == "@reboot" {
		return now.Add(time.Minute), nil
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron: invalid expression %q: %w", expr, err)
	}

	next := schedule.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron: no next occurrence for %q", expr)
	}
	if next.Sub(now) > maxHorizon {
		return time.Time{}, fmt.Errorf("cron: next occurrence for %q exceeds horizon", expr)
	}
	return next, nil
}

// Validate reports whether expr parses as a legal cron expression or
// recognized descriptor.
func Validate(expr string) error {
	_, err := Next(expr, time.Now())
	return err
}

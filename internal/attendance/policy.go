package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Default policy values.
const (
	DefaultDuplicateWindowMinutes = 10
	DefaultMinimumStayMinutes     = 30
	DefaultEarlyDismissalHour     = 14
)

// Policy holds the load-bearing values of the scan state machine and the
// absence classifier.
type Policy struct {
	LateThreshold          ClockTime
	AbsenceCutoff          ClockTime
	DuplicateWindowMinutes int
	MinimumStayMinutes     int
	EarlyDismissalHour     int
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		LateThreshold:          ClockTime{Hour: 9, Minute: 1},
		AbsenceCutoff:          ClockTime{Hour: 9, Minute: 10},
		DuplicateWindowMinutes: DefaultDuplicateWindowMinutes,
		MinimumStayMinutes:     DefaultMinimumStayMinutes,
		EarlyDismissalHour:     DefaultEarlyDismissalHour,
	}
}

// Validate rejects policies the state machine cannot honour.
func (p Policy) Validate() error {
	if err := p.LateThreshold.Validate(); err != nil {
		return fmt.Errorf("late threshold: %w", err)
	}
	if err := p.AbsenceCutoff.Validate(); err != nil {
		return fmt.Errorf("absence cutoff: %w", err)
	}
	if p.DuplicateWindowMinutes <= 0 {
		return errors.New("duplicate scan window must be positive")
	}
	if p.MinimumStayMinutes < p.DuplicateWindowMinutes {
		return errors.New("minimum stay must not be shorter than the duplicate scan window")
	}
	if p.EarlyDismissalHour < 0 || p.EarlyDismissalHour > 24 {
		return fmt.Errorf("invalid early dismissal hour %d", p.EarlyDismissalHour)
	}
	return nil
}

// IsLate reports whether a check-in at now is after the late threshold on the
// same local day. The threshold instant itself is on time.
func (p Policy) IsLate(now time.Time, loc *time.Location) bool {
	threshold := DayOf(now, loc).At(p.LateThreshold, loc)
	return now.After(threshold)
}

// IsEarlyDismissal reports whether a checkout at now happens before the early
// dismissal hour, local time.
func (p Policy) IsEarlyDismissal(now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Hour() < p.EarlyDismissalHour
}

// CutoffPassed reports whether the absence cutoff for day has been reached at
// now. The comparison is inclusive.
func (p Policy) CutoffPassed(day Day, cutoff ClockTime, now time.Time, loc *time.Location) bool {
	return !now.Before(day.At(cutoff, loc))
}

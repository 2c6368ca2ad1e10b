package attendance

import "time"

// Action is the outcome the state machine selects for a scan.
type Action string

const (
	ActionCheckin                 Action = "checkin"
	ActionCheckout                Action = "checkout"
	ActionRejectedDuplicate       Action = "duplicate_scan"
	ActionRejectedTooEarly        Action = "too_early_checkout"
	ActionRejectedAlreadyComplete Action = "already_completed"
)

// RecordState is the persisted part of a student's day the decision depends on.
type RecordState struct {
	CheckinAt  time.Time
	CheckoutAt *time.Time
}

// Completed reports whether checkout has been recorded.
func (s RecordState) Completed() bool {
	return s.CheckoutAt != nil
}

// Decision is the pure result of applying the policy to a scan.
type Decision struct {
	Action           Action
	IsLate           bool
	IsEarlyDismissal bool
	ElapsedMinutes   int
	MinutesRemaining int
}

// Mutates reports whether the decision writes to the store.
func (d Decision) Mutates() bool {
	return d.Action == ActionCheckin || d.Action == ActionCheckout
}

// Decide runs the transition function for a scan at now. A nil state means no
// record exists yet for the day.
func (p Policy) Decide(state *RecordState, now time.Time, loc *time.Location) Decision {
	if state == nil {
		return Decision{Action: ActionCheckin, IsLate: p.IsLate(now, loc)}
	}

	elapsed := ElapsedMinutes(state.CheckinAt, now)
	if state.Completed() {
		return Decision{Action: ActionRejectedAlreadyComplete, ElapsedMinutes: elapsed}
	}

	switch {
	case elapsed < p.DuplicateWindowMinutes:
		return Decision{Action: ActionRejectedDuplicate, ElapsedMinutes: elapsed}
	case elapsed < p.MinimumStayMinutes:
		return Decision{
			Action:           ActionRejectedTooEarly,
			ElapsedMinutes:   elapsed,
			MinutesRemaining: p.MinimumStayMinutes - elapsed,
		}
	default:
		return Decision{
			Action:           ActionCheckout,
			ElapsedMinutes:   elapsed,
			IsEarlyDismissal: p.IsEarlyDismissal(now, loc),
		}
	}
}

// ElapsedMinutes returns whole minutes from start to end, truncated. A clock
// that runs backwards yields zero.
func ElapsedMinutes(start, end time.Time) int {
	diff := end.Sub(start)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Minute)
}

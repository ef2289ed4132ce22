package room

import "time"

// TimerSet holds the scheduled callbacks armed for one room, at most one per
// category. Entering a new phase must call CancelAll before arming anything,
// so a stale countdown, ticker or deadline can never fire into a later phase.
// The cleanup timer is outside that rule: it outlives the final phase change.
type TimerSet struct {
	countdown *time.Timer
	ticker    *time.Timer
	deadline  *time.Timer
	cleanup   *time.Timer
}

// CancelAll stops every round-scoped timer. A callback that already fired and
// is sitting in the inbox is handled by the phase guards on delivery.
func (t *TimerSet) CancelAll() {
	for _, tm := range []**time.Timer{&t.countdown, &t.ticker, &t.deadline} {
		if *tm != nil {
			(*tm).Stop()
			*tm = nil
		}
	}
}

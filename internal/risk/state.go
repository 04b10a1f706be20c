package risk

import "time"

// State tracks the per-day rate-limiting counters consulted by the gate.
// It belongs to the agent owning the strategy loop; the gate reads it but
// never mutates it. Callers invoke ResetIfNewDay at the top of each cycle
// and RecordTrade/RecordLoss after a confirmed fill.
type State struct {
	Day             time.Time
	DailyTradeCount int
	LastTradeTime   time.Time
	LastLossTime    time.Time
}

// ResetIfNewDay zeroes the daily counters when the calendar day (in now's
// location) has rolled over since the last recorded activity.
func (s *State) ResetIfNewDay(now time.Time) bool {
	day := truncateToDay(now)
	if s.Day.Equal(day) {
		return false
	}
	s.Day = day
	s.DailyTradeCount = 0
	return true
}

// RecordTrade bumps the daily counter and stamps the trade time.
func (s *State) RecordTrade(now time.Time) {
	s.DailyTradeCount++
	s.LastTradeTime = now
}

// RecordLoss stamps the time of a realized loss, starting the post-loss
// cooldown window consulted by the scorer.
func (s *State) RecordLoss(now time.Time) {
	s.LastLossTime = now
}

// InCooldown reports whether a realized loss occurred within the window.
func (s *State) InCooldown(now time.Time, window time.Duration) bool {
	if s.LastLossTime.IsZero() {
		return false
	}
	return now.Sub(s.LastLossTime) < window
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

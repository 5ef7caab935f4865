package domain

import (
	"time"
)

// TimeWindow is a recency filter applied to rankings
type TimeWindow string

const (
	TimeWindowAllTime   TimeWindow = "all_time"
	TimeWindowToday     TimeWindow = "today"
	TimeWindowPastWeek  TimeWindow = "past_week"
	TimeWindowPastMonth TimeWindow = "past_month"
)

// TimeWindows lists every supported window
var TimeWindows = []TimeWindow{TimeWindowAllTime, TimeWindowToday, TimeWindowPastWeek, TimeWindowPastMonth}

// ParseTimeWindow parses a window name; an empty string means all time
func ParseTimeWindow(s string) (TimeWindow, error) {
	switch w := TimeWindow(s); w {
	case "":
		return TimeWindowAllTime, nil
	case TimeWindowAllTime, TimeWindowToday, TimeWindowPastWeek, TimeWindowPastMonth:
		return w, nil
	}
	return "", &ValidationError{Field: "window", Reason: "window \"" + s + "\" is not one of all_time, today, past_week, past_month"}
}

// Cutoff returns the minimum updated_at a record needs to fall inside the
// window. ok is false when the window has no cutoff.
func (w TimeWindow) Cutoff(now time.Time, loc *time.Location) (cutoff time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch w {
	case TimeWindowToday:
		local := now.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), true
	case TimeWindowPastWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case TimeWindowPastMonth:
		return now.Add(-30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}

// UpsertMode selects how writes that carry an id are applied
type UpsertMode string

const (
	// UpsertOnConflict inserts or fully replaces the row keyed by id
	UpsertOnConflict UpsertMode = "upsert_on_conflict"
	// InsertThenExplicitUpdate inserts new rows and updates existing ids,
	// failing with NotFound when the id is unknown
	InsertThenExplicitUpdate UpsertMode = "insert_then_update"
)

// ParseUpsertMode parses a configured mode; empty means UpsertOnConflict
func ParseUpsertMode(s string) (UpsertMode, error) {
	switch m := UpsertMode(s); m {
	case "":
		return UpsertOnConflict, nil
	case UpsertOnConflict, InsertThenExplicitUpdate:
		return m, nil
	}
	return "", &ValidationError{Field: "upsert_mode", Reason: "unknown upsert mode \"" + s + "\""}
}

// RankRequest asks for the ranked players of one edition
type RankRequest struct {
	Edition  Edition
	Window   TimeWindow
	Ordering Ordering
}

// PlayerQuery is the read handed to a player store
type PlayerQuery struct {
	Game     Edition
	Since    time.Time // zero means no cutoff
	Ordering Ordering
}

// HasCutoff reports whether the query filters on updated_at
func (q PlayerQuery) HasCutoff() bool {
	return !q.Since.IsZero()
}

// Matches reports whether a record passes the query filter
func (q PlayerQuery) Matches(p *PlayerRecord) bool {
	if p.Game != q.Game {
		return false
	}
	return !q.HasCutoff() || !p.UpdatedAt.Before(q.Since)
}

// Column is a consumer-facing leaderboard column
type Column struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// EditionSummary describes an edition for leaderboard consumers
type EditionSummary struct {
	Edition     Edition           `json:"edition"`
	DisplayName string            `json:"display_name"`
	TotalCards  int               `json:"total_cards"`
	Challenges  int               `json:"challenges"`
	Categories  map[string]string `json:"categories"`
	Columns     []Column          `json:"columns"`
}

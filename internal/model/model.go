package model

import "time"

// EventType classifies a schedule event from its feed description.
type EventType string

const (
	EventTypeGame     EventType = "Game"
	EventTypePractice EventType = "Practice"
	EventTypeOther    EventType = "Other"
	EventTypeUnknown  EventType = "Unknown"
)

// Team is the static descriptor for one subscribed schedule feed.
// Its grouping labels (Sex, Age, Level) identify the team; the feed URL
// is where the upstream provider publishes its iCalendar schedule.
type Team struct {
	// Sex is the division label, e.g. "Boys".
	Sex string
	// Age is the age bracket label, e.g. "Bantam", "Peewee".
	Age string
	// Level is the competitive level label, e.g. "AA", "B1 Gray".
	Level string
	// FeedURL is the schedule feed address; webcal:// scheme allowed.
	FeedURL string
	// RosterURL optionally links to the team's roster page.
	RosterURL string
}

// Label is the display label composed from age bracket and level,
// e.g. "Bantam B1 Gray".
func (t Team) Label() string {
	return t.Age + " " + t.Level
}

// Entry is a single calendar item as parsed from one feed document.
// Entries are ephemeral: they exist only between parsing and
// normalization and are never persisted.
type Entry struct {
	// UID is the feed-local identifier of the calendar item.
	UID string

	// Start is the absolute start instant, timezone-aware. A zero Start
	// marks an entry whose DTSTART was missing or unparsable; such
	// entries are dropped during normalization.
	Start time.Time

	// StartTZ is the TZID parameter on DTSTART, if any ("" means the
	// value carried its own zone, typically UTC).
	StartTZ string

	Summary     string
	Location    string
	Description string
}

// Event is a normalized schedule event, the unit of aggregation.
// Immutable once built. Field names in JSON match the calendar UI's
// contract.
type Event struct {
	// ID is stable across aggregation cycles for unchanged input:
	// feed UID + computed date + computed time + level, underscore
	// joined, with all whitespace collapsed to underscores.
	ID string `json:"id"`

	// Team is the display label "{age} {level}".
	Team string `json:"team"`
	Age  string `json:"age"`
	Sex  string `json:"sex"`

	// Date is the civil calendar day in the display timezone, YYYY-MM-DD.
	Date string `json:"date"`
	// Time is the civil time of day in the display timezone, 12-hour
	// clock with meridiem, e.g. "7:30 PM".
	Time string `json:"time"`

	Summary     string    `json:"summary"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	EventType   EventType `json:"eventType"`

	Debug Debug `json:"debug"`
}

// Debug carries the intermediate values used to derive Date/Time.
// Retained for auditability in the UI's expandable debug row; never
// used for business logic.
type Debug struct {
	OriginalISOString string `json:"originalISOString"`
	OriginalTimezone  string `json:"originalTimezone"`
	ParsedLocalTime   string `json:"parsedLocalTime"`
	ComputedDate      string `json:"computedDate"`
	ComputedTime      string `json:"computedTime"`
}

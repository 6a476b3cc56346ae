package schedule

import (
	"regexp"
	"strings"
	"time"

	"rinkcal/internal/model"
)

// Marker substrings the upstream provider embeds (percent-encoded) in
// event descriptions. The game marker wins when both are present.
const (
	gameMarker     = "sportsengine%3A%2F%2Fgame"
	practiceMarker = "sportsengine%3A%2F%2Fevent"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "3:04 PM"

	// isoLayout matches the millisecond-precision UTC form the UI's
	// debug row has always displayed.
	isoLayout = "2006-01-02T15:04:05.000Z07:00"

	locationPlaceholder = "TBD"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize converts one parsed feed entry plus its team descriptor into
// a normalized event rendered in the display timezone loc.
//
// The second return value is false when the entry cannot produce a valid
// record (missing or unparsable start instant); such entries are excluded
// rather than given a fabricated date.
func Normalize(entry model.Entry, team model.Team, loc *time.Location) (model.Event, bool) {
	if entry.Start.IsZero() {
		return model.Event{}, false
	}

	local := entry.Start.In(loc)
	date := local.Format(dateLayout)
	clock := local.Format(clockLayout)

	location := entry.Location
	if location == "" {
		location = locationPlaceholder
	}

	originalTZ := entry.StartTZ
	if originalTZ == "" {
		originalTZ = "UTC"
	}

	return model.Event{
		ID:          eventID(entry.UID, date, clock, team.Level),
		Team:        team.Label(),
		Age:         team.Age,
		Sex:         team.Sex,
		Date:        date,
		Time:        clock,
		Summary:     entry.Summary,
		Location:    location,
		Description: entry.Description,
		EventType:   Classify(entry.Description),
		Debug: model.Debug{
			OriginalISOString: entry.Start.UTC().Format(isoLayout),
			OriginalTimezone:  originalTZ,
			ParsedLocalTime:   local.Format("2006-01-02 15:04:05 MST"),
			ComputedDate:      date,
			ComputedTime:      clock,
		},
	}, true
}

// Classify derives the event type from the percent-encoded description.
func Classify(description string) model.EventType {
	switch {
	case description == "":
		return model.EventTypeUnknown
	case strings.Contains(description, gameMarker):
		return model.EventTypeGame
	case strings.Contains(description, practiceMarker):
		return model.EventTypePractice
	default:
		return model.EventTypeOther
	}
}

// eventID joins the feed-local UID with the computed date, time and
// level label. Whitespace runs in the joined string collapse to single
// underscores so a level like "B1 Gray" (or the space before AM/PM)
// never leaks a literal space into the id.
func eventID(uid, date, clock, level string) string {
	joined := strings.Join([]string{uid, date, clock, level}, "_")
	return whitespaceRe.ReplaceAllString(joined, "_")
}

package ics

import (
	"bytes"
	"errors"

	ical "github.com/arran4/golang-ical"

	appLog "rinkcal/internal/log"
	"rinkcal/internal/model"
)

// Parse decodes a raw iCalendar payload into feed entries.
//
// Only VEVENT components are considered; VTIMEZONE and any other record
// kinds the format carries are ignored. The underlying library's
// VTIMEZONE/TZID handling is relied on to construct proper time.Time
// values for DTSTART. A malformed document returns an error and is
// degraded to "no events" by the caller.
func Parse(body []byte) ([]model.Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]model.Entry, 0, len(cal.Events()))

	for _, ve := range cal.Events() {
		entry, perr := parseVEvent(ve)
		if perr != nil {
			// Log and skip this item, but keep parsing the rest.
			appLog.Warn("skipping unparsable calendar item", "reason", perr.Error())
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseVEvent(ve *ical.VEvent) (model.Entry, error) {
	var out model.Entry

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	// DTSTART via the library's timezone-aware helper. A failed parse
	// leaves Start zero; normalization drops zero-start entries rather
	// than fabricating a date.
	if start, err := ve.GetStartAt(); err == nil {
		out.Start = start
	}

	// Record the DTSTART TZID parameter for the diagnostic sub-record.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
				out.StartTZ = tzs[0]
			}
		}
	}

	return out, nil
}

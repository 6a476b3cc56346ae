package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"rinkcal/internal/ics"
	appLog "rinkcal/internal/log"
	"rinkcal/internal/metrics"
	"rinkcal/internal/model"
)

// Aggregator runs one full fetch -> parse -> normalize -> sort pass
// across all configured feeds.
//
// Feeds are independent, so the per-feed work fans out concurrently with
// a fan-in join before sorting. A feed whose fetch or parse fails
// contributes zero events for the cycle and never aborts the others.
type Aggregator struct {
	teams   []model.Team
	fetcher *ics.Fetcher
	loc     *time.Location
}

// NewAggregator builds an Aggregator over the given team descriptors.
// loc is the display timezone all dates and times are rendered in.
func NewAggregator(teams []model.Team, fetcher *ics.Fetcher, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		teams:   teams,
		fetcher: fetcher,
		loc:     loc,
	}
}

// Run executes one aggregation cycle and returns the sorted aggregate.
// Every feed failing still yields an empty (non-nil) aggregate; Run only
// errors when the cycle itself cannot complete, e.g. context cancellation.
func (a *Aggregator) Run(ctx context.Context) ([]model.Event, error) {
	perTeam := make([][]model.Event, len(a.teams))

	var wg sync.WaitGroup
	for i, team := range a.teams {
		wg.Add(1)
		go func(i int, team model.Team) {
			defer wg.Done()
			perTeam[i] = a.collect(ctx, team)
		}(i, team)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Concatenate in config order, then stable-sort; equal (date, time)
	// pairs keep their source-iteration order.
	events := make([]model.Event, 0)
	for _, evs := range perTeam {
		events = append(events, evs...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return MinutesOfDay(events[i].Time) < MinutesOfDay(events[j].Time)
	})

	metrics.ObserveAggregate(len(events))
	return events, nil
}

// collect fetches, parses and normalizes a single feed. Any failure
// degrades this one feed to zero events.
func (a *Aggregator) collect(ctx context.Context, team model.Team) []model.Event {
	body, err := a.fetcher.Fetch(ctx, team.FeedURL)
	if err != nil {
		appLog.Error("feed fetch failed; skipping source", err, "team", team.Label())
		metrics.RecordSourceFailure(team.Label())
		return nil
	}

	entries, err := ics.Parse(body)
	if err != nil {
		appLog.Error("feed parse failed; skipping source", err, "team", team.Label())
		metrics.RecordSourceFailure(team.Label())
		return nil
	}

	events := make([]model.Event, 0, len(entries))
	for _, entry := range entries {
		ev, ok := Normalize(entry, team, a.loc)
		if !ok {
			appLog.Warn("dropping entry without a valid start", "team", team.Label(), "uid", entry.UID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("feed collected", "team", team.Label(), "events", len(events))
	return events
}

// MinutesOfDay converts a 12-hour clock string ("7:30 PM") to minutes
// since midnight: "12:00 AM" -> 0, "12:00 PM" -> 720, "11:59 PM" -> 1439.
// Malformed input sorts first as 0; normalized events always carry a
// well-formed time.
func MinutesOfDay(clock string) int {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

package schedule_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"rinkcal/internal/ics"
	"rinkcal/internal/model"
	"rinkcal/internal/schedule"
)

func TestMinutesOfDay(t *testing.T) {
	Convey("Given 12-hour clock strings", t, func() {
		cases := []struct {
			clock string
			want  int
		}{
			{"12:00 AM", 0},
			{"12:30 AM", 30},
			{"1:00 AM", 60},
			{"11:59 AM", 719},
			{"12:00 PM", 720},
			{"12:01 PM", 721},
			{"1:00 PM", 780},
			{"11:59 PM", 1439},
		}

		Convey("Then minutes-since-midnight maps noon and midnight correctly", func() {
			for _, tc := range cases {
				So(schedule.MinutesOfDay(tc.clock), ShouldEqual, tc.want)
			}
		})
	})
}

// vevent renders one VEVENT block for the test feed bodies.
func vevent(uid, dtstart, summary, description string) string {
	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTART:" + dtstart,
		"SUMMARY:" + summary,
	}
	if description != "" {
		lines = append(lines, "DESCRIPTION:"+description)
	}
	lines = append(lines, "END:VEVENT")
	return strings.Join(lines, "\r\n")
}

func feedBody(events ...string) string {
	parts := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//SportsEngine//Calendar//EN",
	}
	parts = append(parts, events...)
	parts = append(parts, "END:VCALENDAR", "")
	return strings.Join(parts, "\r\n")
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAggregatorRun(t *testing.T) {
	loc := chicago(t)

	// Winter instants; America/Chicago is UTC-6, so these land on
	// Jan 15 local at 7:00 PM, 9:00 AM, 8:00 PM (feed A) and
	// 12:00 PM, 12:00 AM, 8:00 PM (feed B).
	feedA := feedServer(t, feedBody(
		vevent("a-evening", "20240116T010000Z", "vs West Fargo", "sportsengine%3A%2F%2Fgame%2F1"),
		vevent("a-morning", "20240115T150000Z", "Morning skate", "sportsengine%3A%2F%2Fevent%2F2"),
		vevent("a-tied", "20240116T020000Z", "Scrimmage", ""),
	))
	feedB := feedServer(t, feedBody(
		vevent("b-noon", "20240115T180000Z", "vs Moorhead", "sportsengine%3A%2F%2Fgame%2F3"),
		vevent("b-midnight", "20240115T060000Z", "Late ice", ""),
		vevent("b-tied", "20240116T020000Z", "Scrimmage", ""),
	))
	feedDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	t.Cleanup(feedDown.Close)

	teams := []model.Team{
		{Sex: "Boys", Age: "Bantam", Level: "AA", FeedURL: feedA.URL},
		{Sex: "Boys", Age: "Peewee", Level: "A", FeedURL: feedB.URL},
		{Sex: "Boys", Age: "Peewee", Level: "B1 Navy", FeedURL: feedDown.URL},
	}

	Convey("Given three feeds where one upstream is failing", t, func() {
		agg := schedule.NewAggregator(teams, ics.NewFetcher(0), loc)

		Convey("When one aggregation cycle runs", func() {
			events, err := agg.Run(context.Background())

			Convey("Then the failing feed degrades without aborting the cycle", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 6)
				for _, ev := range events {
					So(ev.Team, ShouldNotEqual, "Peewee B1 Navy")
				}
			})

			Convey("Then the aggregate is ordered by date and clock minutes", func() {
				So(err, ShouldBeNil)
				for i := 1; i < len(events); i++ {
					prev, cur := events[i-1], events[i]
					So(prev.Date, ShouldBeLessThanOrEqualTo, cur.Date)
					if prev.Date == cur.Date {
						So(schedule.MinutesOfDay(prev.Time), ShouldBeLessThanOrEqualTo, schedule.MinutesOfDay(cur.Time))
					}
				}

				// Noon/midnight trap: midnight first, noon after the
				// morning event despite "12:00 PM" < "9:00 AM" as strings.
				So(events[0].Time, ShouldEqual, "12:00 AM")
				So(events[1].Time, ShouldEqual, "9:00 AM")
				So(events[2].Time, ShouldEqual, "12:00 PM")
			})

			Convey("Then equal (date, time) pairs keep source-iteration order", func() {
				So(err, ShouldBeNil)
				tied := make([]model.Event, 0, 2)
				for _, ev := range events {
					if ev.Time == "8:00 PM" {
						tied = append(tied, ev)
					}
				}
				So(len(tied), ShouldEqual, 2)
				So(tied[0].Team, ShouldEqual, "Bantam AA")
				So(tied[1].Team, ShouldEqual, "Peewee A")
			})
		})
	})

	Convey("Given only failing feeds", t, func() {
		agg := schedule.NewAggregator([]model.Team{
			{Sex: "Boys", Age: "Bantam", Level: "A", FeedURL: feedDown.URL},
		}, ics.NewFetcher(0), loc)

		Convey("Then the cycle yields an empty aggregate, not an error", func() {
			events, err := agg.Run(context.Background())
			So(err, ShouldBeNil)
			So(events, ShouldNotBeNil)
			So(len(events), ShouldEqual, 0)
		})
	})
}

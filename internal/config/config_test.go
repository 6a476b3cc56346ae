package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"rinkcal/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.DefaultConfig()

		Convey("Then the display timezone is the league's civil zone", func() {
			So(cfg.Timezone, ShouldEqual, "America/Chicago")
		})

		Convey("Then the shipped team table covers both age brackets", func() {
			So(len(cfg.Teams), ShouldEqual, 8)
			ages := map[string]bool{}
			for _, team := range cfg.Teams {
				ages[team.Age] = true
				So(team.FeedURL, ShouldStartWith, "webcal://")
				So(team.RosterURL, ShouldStartWith, "https://")
			}
			So(ages, ShouldResemble, map[string]bool{"Bantam": true, "Peewee": true})
		})

		Convey("Then the freshness window has a sane default", func() {
			So(cfg.FreshnessMinutes, ShouldEqual, 5)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a sparse config", t, func() {
		cfg := &config.Config{}
		cfg.Normalize()

		Convey("Then zero values are filled with defaults", func() {
			So(cfg.Listen, ShouldNotBeEmpty)
			So(cfg.Timezone, ShouldEqual, "America/Chicago")
			So(cfg.RefreshCron, ShouldNotBeEmpty)
			So(cfg.FreshnessMinutes, ShouldBeGreaterThan, 0)
			So(cfg.FetchTimeoutSeconds, ShouldBeGreaterThan, 0)
			So(cfg.Teams, ShouldNotBeNil)
			So(cfg.AllowedOrigins, ShouldNotBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a config path that does not exist yet", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")

		Convey("When loaded", func() {
			cfg, err := config.Load(path)

			Convey("Then defaults are returned and the file is created 0600", func() {
				So(err, ShouldBeNil)
				So(cfg.Timezone, ShouldEqual, "America/Chicago")

				info, statErr := os.Stat(path)
				So(statErr, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o600))
			})
		})
	})

	Convey("Given an existing config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "listen: \"0.0.0.0:9000\"\n" +
			"freshness_minutes: 30\n" +
			"teams:\n" +
			"  - sex: Boys\n" +
			"    age: Bantam\n" +
			"    level: B1 Gray\n" +
			"    feed_url: webcal://example.com/feed\n"
		So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)

		Convey("When loaded", func() {
			cfg, err := config.Load(path)

			Convey("Then file values win over defaults and gaps are normalized", func() {
				So(err, ShouldBeNil)
				So(cfg.Listen, ShouldEqual, "0.0.0.0:9000")
				So(cfg.FreshnessMinutes, ShouldEqual, 30)
				So(cfg.Timezone, ShouldEqual, "America/Chicago")
				So(len(cfg.Teams), ShouldEqual, 1)
				So(cfg.Teams[0].Level, ShouldEqual, "B1 Gray")
			})
		})
	})

	Convey("Given RINKCAL_ environment overrides", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("listen: \"127.0.0.1:3001\"\n"), 0o600), ShouldBeNil)

		t.Setenv("RINKCAL_LISTEN", "0.0.0.0:8080")
		t.Setenv("RINKCAL_FRESHNESS_MINUTES", "2")

		Convey("Then env values win over the file", func() {
			cfg, err := config.Load(path)
			So(err, ShouldBeNil)
			So(cfg.Listen, ShouldEqual, "0.0.0.0:8080")
			So(cfg.FreshnessMinutes, ShouldEqual, 2)
		})
	})
}

func TestSources(t *testing.T) {
	Convey("Given a config with a URL-less team", t, func() {
		cfg := &config.Config{
			Teams: []config.TeamConfig{
				{Sex: "Boys", Age: "Bantam", Level: "AA", FeedURL: "webcal://example.com/a"},
				{Sex: "Boys", Age: "Bantam", Level: "A"},
			},
		}

		Convey("Then descriptors are built only for fetchable feeds", func() {
			teams := cfg.Sources()
			So(len(teams), ShouldEqual, 1)
			So(teams[0].Label(), ShouldEqual, "Bantam AA")
		})
	})
}

// Package fixtures provides reusable roster test data generators for
// integration tests. Generated rosters are deterministic so assertions can
// name specific recipients.
package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"birthday-courier/internal/usecase/roster"
)

// RosterOptions configures a generated roster.
type RosterOptions struct {
	// Count is the number of recipients to generate.
	Count int

	// BirthdayOn assigns this month/day to every generated recipient.
	// Zero leaves birthdays spread across the year.
	BirthdayOn time.Time

	// Language applies to every recipient. Empty cycles through a small
	// set of roster languages.
	Language string

	// IncludeInvalid appends rows that fail validation (bad phone, bad
	// date) for exercising row-level error handling.
	IncludeInvalid bool
}

var fixtureNames = []string{
	"Mina Harker", "Jonathan Harker", "Lucy Westenra", "Arthur Holmwood",
	"John Seward", "Quincey Morris", "Abraham Van Helsing", "Renfield",
}

var fixtureLanguages = []string{"en", "es", "fr", "de", "ja"}

var fixtureCountries = []string{"US", "GB", "ES", "FR", "DE", "JP", "BR", "AU"}

// GenerateRoster generates raw roster rows per the options.
func GenerateRoster(opts RosterOptions) []roster.RawRow {
	rows := make([]roster.RawRow, 0, opts.Count)

	for i := 0; i < opts.Count; i++ {
		birthDate := time.Date(1980+i%30, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC)
		if !opts.BirthdayOn.IsZero() {
			birthDate = time.Date(1980+i%30, opts.BirthdayOn.Month(), opts.BirthdayOn.Day(), 0, 0, 0, 0, time.UTC)
		}

		language := opts.Language
		if language == "" {
			language = fixtureLanguages[i%len(fixtureLanguages)]
		}

		rows = append(rows, roster.RawRow{
			ID:        fmt.Sprintf("r-%03d", i+1),
			Name:      fixtureNames[i%len(fixtureNames)],
			BirthDate: birthDate.Format("2006-01-02"),
			Language:  language,
			Phone:     fmt.Sprintf("+1555123%04d", i+1),
			Country:   fixtureCountries[i%len(fixtureCountries)],
		})
	}

	if opts.IncludeInvalid {
		rows = append(rows,
			roster.RawRow{
				ID:        "bad-phone",
				Name:      "No Plus Sign",
				BirthDate: "1990-01-01",
				Language:  "en",
				Phone:     "5551234567",
				Country:   "US",
			},
			roster.RawRow{
				ID:        "bad-date",
				Name:      "Wrong Layout",
				BirthDate: "01/01/1990",
				Language:  "en",
				Phone:     "+15559876543",
				Country:   "US",
			},
		)
	}

	return rows
}

// GenerateRosterJSON generates a roster document as the roster endpoint
// would serve it.
func GenerateRosterJSON(opts RosterOptions) []byte {
	data, err := json.Marshal(GenerateRoster(opts))
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal roster: %v", err))
	}
	return data
}

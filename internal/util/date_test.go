package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		year  int
		month time.Month
		day   int
	}{
		{name: "slash dmy", input: "17/02/2026", year: 2026, month: time.February, day: 17},
		{name: "iso ymd", input: "2026-02-17", year: 2026, month: time.February, day: 17},
		{name: "dash dmy", input: "Fecha: 05-01-2026", year: 2026, month: time.January, day: 5},
		{name: "two digit year", input: "03/04/25", year: 2025, month: time.April, day: 3},
		{name: "third group above 31", input: "1/2/45", year: 2045, month: time.February, day: 1},
		{name: "month name", input: "Pagado el 17 feb 2026", year: 2026, month: time.February, day: 17},
		{name: "month name full with period", input: "3 Sept. 24", year: 2024, month: time.September, day: 3},
		{name: "month name upper", input: "1 DIC 2025", year: 2025, month: time.December, day: 1},
		{name: "leading group above 31 kept as year", input: "32/01/15", year: 32, month: time.January, day: 15},
		{name: "iso with time", input: "2026-01-05T10:00:00Z", year: 2026, month: time.January, day: 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.year, got.Year())
			assert.Equal(t, tc.month, got.Month())
			assert.Equal(t, tc.day, got.Day())
		})
	}
}

func TestParseDateRejectsImpossibleDates(t *testing.T) {
	for _, input := range []string{"31/04/2026", "30/02/2026", "12/13/2026", "31 feb 2026"} {
		_, ok := ParseDate(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestParseDateNoMatch(t *testing.T) {
	for _, input := range []string{"", "   ", "sin fecha", "Total 1,200.00"} {
		_, ok := ParseDate(input)
		assert.False(t, ok, "input %q", input)
	}
}

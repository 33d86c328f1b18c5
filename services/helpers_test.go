package services

import (
	"testing"
	"time"

	"github.com/bekzhan-dev/tournament-platform/models"
)

func TestIsValidStatusTransition(t *testing.T) {
	cases := []struct {
		from models.TournamentStatus
		to   models.TournamentStatus
		want bool
	}{
		{models.StatusSoon, models.StatusRegistration, true},
		{models.StatusSoon, models.StatusCanceled, true},
		{models.StatusSoon, models.StatusActive, false},
		{models.StatusRegistration, models.StatusActive, true},
		{models.StatusRegistration, models.StatusCompleted, false},
		{models.StatusActive, models.StatusCompleted, true},
		{models.StatusActive, models.StatusRegistration, false},
		{models.StatusCompleted, models.StatusActive, false},
		{models.StatusCanceled, models.StatusRegistration, false},
		{models.StatusActive, models.StatusActive, true},
	}

	for _, tc := range cases {
		if got := isValidStatusTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("isValidStatusTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidateTournamentDates(t *testing.T) {
	base := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	if err := validateTournamentDates(base, base.Add(24*time.Hour), base.Add(48*time.Hour)); err != nil {
		t.Errorf("valid dates rejected: %v", err)
	}
	if err := validateTournamentDates(time.Time{}, base, base.Add(time.Hour)); err == nil {
		t.Error("zero registration date accepted")
	}
	if err := validateTournamentDates(base.Add(time.Hour), base, base.Add(48*time.Hour)); err == nil {
		t.Error("registration after start accepted")
	}
	if err := validateTournamentDates(base, base.Add(time.Hour), base.Add(time.Hour)); err == nil {
		t.Error("end equal to start accepted")
	}
}

func TestParseScore(t *testing.T) {
	str := func(s string) *string { return &s }

	cases := []struct {
		in     *string
		p1, p2 int
		ok     bool
	}{
		{str("21-15"), 21, 15, true},
		{str("0-0"), 0, 0, true},
		{str(" 3-2 "), 3, 2, true},
		{str("abc"), 0, 0, false},
		{str(""), 0, 0, false},
		{nil, 0, 0, false},
	}

	for _, tc := range cases {
		p1, p2, ok := parseScore(tc.in)
		if ok != tc.ok || p1 != tc.p1 || p2 != tc.p2 {
			in := "<nil>"
			if tc.in != nil {
				in = *tc.in
			}
			t.Errorf("parseScore(%q) = (%d, %d, %v), want (%d, %d, %v)", in, p1, p2, ok, tc.p1, tc.p2, tc.ok)
		}
	}
}

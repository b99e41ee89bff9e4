package site

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSiteNotFound  = errors.New("testing site not found")
	ErrUnknownFilter = errors.New("unknown site filter")
)

// clockLayout is the HH:MM format of open and close times.
const clockLayout = "15:04"

type Site struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Suburb       string    `json:"suburb"`
	DriveThrough bool      `json:"drive_through"`
	WalkIn       bool      `json:"walk_in"`
	Hospital     bool      `json:"hospital"`
	GP           bool      `json:"gp"`
	HomeTesting  bool      `json:"home_testing"`
	OpenTime     string    `json:"open_time"`
	CloseTime    string    `json:"close_time"`
	CreatedAt    time.Time `json:"created_at"`
}

type State string

const (
	StateOpen   State = "Open"
	StateClosed State = "Closed"
)

// State reports whether the site is open at now, compared at minute
// precision in now's location. Both boundaries count as closed, and an
// unparsable open or close time leaves the site closed.
func (s Site) State(now time.Time) State {
	open, err := time.Parse(clockLayout, s.OpenTime)
	if err != nil {
		return StateClosed
	}
	closing, err := time.Parse(clockLayout, s.CloseTime)
	if err != nil {
		return StateClosed
	}

	minute := now.Hour()*60 + now.Minute()
	if minute > minutesOf(open) && minute < minutesOf(closing) {
		return StateOpen
	}
	return StateClosed
}

func minutesOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

type Filter string

const (
	FilterDriveThrough Filter = "drive-through"
	FilterWalkIn       Filter = "walk-in"
	FilterClinic       Filter = "clinic"
	FilterHospital     Filter = "hospital"
	FilterGP           Filter = "gp"
	FilterHomeTesting  Filter = "home-testing"
)

func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FilterDriveThrough, FilterWalkIn, FilterClinic, FilterHospital, FilterGP, FilterHomeTesting:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, raw)
}

// Match reports whether s offers the facility f names. Every site that is
// not a hospital counts as a clinic.
func (f Filter) Match(s Site) bool {
	switch f {
	case FilterDriveThrough:
		return s.DriveThrough
	case FilterWalkIn:
		return s.WalkIn
	case FilterClinic:
		return !s.Hospital
	case FilterHospital:
		return s.Hospital
	case FilterGP:
		return s.GP
	case FilterHomeTesting:
		return s.HomeTesting
	}
	return false
}

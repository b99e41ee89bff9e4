// Package access maps the three kinds of users to the booking operations
// they may reach.
package access

import (
	"errors"
	"fmt"
)

var ErrUnknownRole = errors.New("unknown role")

type Role string

const (
	Resident     Role = "resident"
	Receptionist Role = "receptionist"
	HealthWorker Role = "health_worker"
)

type Capability string

const (
	Book           Capability = "book"
	BookHome       Capability = "book_home"
	SearchSites    Capability = "search_sites"
	CheckStatus    Capability = "check_status"
	Modify         Capability = "modify"
	Cancel         Capability = "cancel"
	Revert         Capability = "revert"
	View           Capability = "view"
	Delete         Capability = "delete"
	Notifications  Capability = "notifications"
	CollectRATKit  Capability = "collect_rat_kit"
	ActiveBookings Capability = "active_bookings"
	Triage         Capability = "triage"
)

var capabilities = map[Role]map[Capability]bool{
	Resident: set(
		SearchSites, Book, BookHome, CheckStatus, Modify, Cancel, Revert, ActiveBookings, View,
	),
	Receptionist: set(
		Book, CheckStatus, CollectRATKit, Modify, Cancel, Revert, Notifications, View, Delete,
	),
	HealthWorker: set(
		Triage,
	),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// Can reports whether r may perform c. Unknown roles can do nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

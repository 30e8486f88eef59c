package models

import "strings"

// Tenant is a restaurant account whose calls are tracked.
type Tenant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// DisplayName returns the name, falling back to the ID.
func (t Tenant) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Initials returns up to two upper-case initials of the name ("SG").
func (t Tenant) Initials() string {
	var b strings.Builder
	for _, w := range strings.Fields(t.DisplayName()) {
		b.WriteString(strings.ToUpper(w[:1]))
		if b.Len() == 2 {
			break
		}
	}
	return b.String()
}

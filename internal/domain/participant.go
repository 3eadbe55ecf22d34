// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxNameLen = 64

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

// Role distinguishes the two ends of a session. The initiator creates it,
// the responder joins it.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

// Participant is the identity a connection presented on login.
type Participant struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(name string, role Role) (Participant, error) {
	if len(name) == 0 {
		return Participant{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return Participant{}, ErrNameTooLong
	}
	return Participant{Name: name, Role: role}, nil
}

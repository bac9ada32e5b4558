package model

import "time"

type SessionStatus string

const (
	SessionStatusPending       SessionStatus = "pending"
	SessionStatusAuthenticated SessionStatus = "authenticated"

	// Not stored; reported to clients when a session is absent or torn down.
	SessionStatusExpired SessionStatus = "expired"
	SessionStatusLogout  SessionStatus = "logout"
)

// Session correlates a login attempt on one device with confirmation from
// another. CreatedAt is reset on authentication so the authenticated grace
// window runs independently of the pending one.
type Session struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	User      string        `json:"user,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scangate/qrlogin-server-go/internal/model"
	"github.com/scangate/qrlogin-server-go/internal/store"
	"github.com/scangate/qrlogin-server-go/internal/token"
	"github.com/scangate/qrlogin-server-go/internal/ws"
)

// StartLoginResult is a fresh login session plus the payload the browser
// renders as a QR code.
type StartLoginResult struct {
	SessionID string `json:"sessionId"`
	QRPayload string `json:"qrPayload"`
}

// ConfirmResult is returned to the confirming device.
type ConfirmResult struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// SessionStatusResult is the check-session snapshot.
type SessionStatusResult struct {
	Status model.SessionStatus `json:"status"`
	User   string              `json:"user,omitempty"`
}

// LoginService orchestrates the QR login handshake: session creation,
// cross-device confirmation, notification dispatch, and logout. It is the
// only caller that transitions session status. Store mutation always happens
// before the best-effort channel push; a push that fails leaves the session
// correctly authenticated but un-notified, recoverable by the next poll.
type LoginService struct {
	store    *store.SessionStore
	registry *ws.Registry
	tokens   *token.Service

	defaultUser     string
	pollTokenTTL    time.Duration
	confirmTokenTTL time.Duration
	pendingTTL      time.Duration
	authedTTL       time.Duration
}

func NewLoginService(
	sessionStore *store.SessionStore,
	registry *ws.Registry,
	tokens *token.Service,
	defaultUser string,
	pollTokenTTL, confirmTokenTTL time.Duration,
	pendingTTL, authedTTL time.Duration,
) *LoginService {
	return &LoginService{
		store:           sessionStore,
		registry:        registry,
		tokens:          tokens,
		defaultUser:     defaultUser,
		pollTokenTTL:    pollTokenTTL,
		confirmTokenTTL: confirmTokenTTL,
		pendingTTL:      pendingTTL,
		authedTTL:       authedTTL,
	}
}

// StartLogin creates a pending session and the QR payload embedding its id.
func (s *LoginService) StartLogin() *StartLoginResult {
	session := s.store.Create()

	payload, _ := json.Marshal(map[string]string{"session_id": session.ID})

	log.Info().Str("sessionId", session.ID).Msg("login session created")

	return &StartLoginResult{
		SessionID: session.ID,
		QRPayload: string(payload),
	}
}

// Exists reports whether a session is currently known to the store.
func (s *LoginService) Exists(id string) bool {
	_, ok := s.store.Get(id)
	return ok
}

// Snapshot builds the poll reply for a session: its current status, plus a
// freshly issued poll-window token once authenticated. An absent session
// yields a terminal expired event.
func (s *LoginService) Snapshot(id string) ws.Event {
	session, ok := s.store.Get(id)
	if !ok {
		return ws.Event{Status: model.SessionStatusExpired, Terminal: true}
	}

	if session.Status == model.SessionStatusAuthenticated {
		tok, err := s.tokens.Issue(session.User, s.pollTokenTTL)
		if err != nil {
			log.Error().Err(err).Str("sessionId", id).Msg("failed to issue poll token")
			return ws.Event{Status: model.SessionStatusPending}
		}
		return ws.Event{
			Status: model.SessionStatusAuthenticated,
			User:   session.User,
			Token:  tok,
		}
	}

	return ws.Event{Status: session.Status}
}

// Confirm authenticates the session on behalf of the scanning device and
// pushes the result to any bound browser connection. Push failures are
// logged, never surfaced: the confirmation itself already succeeded.
// An empty user falls back to the configured default subject.
func (s *LoginService) Confirm(id, user string) (*ConfirmResult, error) {
	if user == "" {
		user = s.defaultUser
	}

	session, err := s.store.Authenticate(id, user)
	if err != nil {
		return nil, err
	}

	tok, err := s.tokens.Issue(session.User, s.confirmTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	delivered := s.registry.Send(id, ws.Event{
		Status: model.SessionStatusAuthenticated,
		User:   session.User,
		Token:  tok,
	})
	if !delivered {
		log.Debug().Str("sessionId", id).Msg("no live connection for confirm push")
	}

	log.Info().Str("sessionId", id).Str("user", session.User).Msg("session confirmed")

	return &ConfirmResult{Username: session.User, Token: tok}, nil
}

// Logout removes the session and tears down its connection. It always
// succeeds, even when nothing existed.
func (s *LoginService) Logout(id string) {
	existed := s.store.Remove(id)
	s.registry.Drop(id, ws.Event{Status: model.SessionStatusLogout})

	log.Info().Str("sessionId", id).Bool("existed", existed).Msg("session logged out")
}

// CheckSession reports the current status and bound user.
func (s *LoginService) CheckSession(id string) (*SessionStatusResult, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &SessionStatusResult{Status: session.Status, User: session.User}, nil
}

// SweepExpired evicts sessions past their TTL, notifying and closing any
// bound connection per evicted id. Returns the number evicted.
func (s *LoginService) SweepExpired(now time.Time) int {
	evicted := s.store.Sweep(now, s.pendingTTL, s.authedTTL)
	for _, id := range evicted {
		s.registry.Drop(id, ws.Event{Status: model.SessionStatusExpired})
	}
	return len(evicted)
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scangate/qrlogin-server-go/internal/model"
	"github.com/scangate/qrlogin-server-go/internal/store"
	"github.com/scangate/qrlogin-server-go/internal/token"
	"github.com/scangate/qrlogin-server-go/internal/ws"
)

const (
	testPendingTTL = 5 * time.Minute
	testAuthedTTL  = time.Hour
)

func newTestLoginService() (*LoginService, *store.SessionStore, *ws.Registry, *token.Service) {
	sessions := store.NewSessionStore()
	registry := ws.NewRegistry()
	tokens := token.NewService("test-secret")

	svc := NewLoginService(
		sessions, registry, tokens,
		"user1",
		30*time.Minute, time.Hour,
		testPendingTTL, testAuthedTTL,
	)
	return svc, sessions, registry, tokens
}

func TestStartLogin(t *testing.T) {
	svc, sessions, _, _ := newTestLoginService()

	result := svc.StartLogin()

	assert.NotEmpty(t, result.SessionID)
	assert.JSONEq(t, `{"session_id":"`+result.SessionID+`"}`, result.QRPayload)

	status, err := svc.CheckSession(result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusPending, status.Status)
	assert.Empty(t, status.User)
	assert.Equal(t, 1, sessions.Len())
}

func TestSnapshot(t *testing.T) {
	t.Run("pending session", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		result := svc.StartLogin()

		ev := svc.Snapshot(result.SessionID)
		assert.Equal(t, model.SessionStatusPending, ev.Status)
		assert.Empty(t, ev.Token)
		assert.False(t, ev.Terminal)
	})

	t.Run("authenticated session carries a fresh token", func(t *testing.T) {
		svc, _, _, tokens := newTestLoginService()
		result := svc.StartLogin()
		_, err := svc.Confirm(result.SessionID, "alice")
		require.NoError(t, err)

		ev := svc.Snapshot(result.SessionID)
		assert.Equal(t, model.SessionStatusAuthenticated, ev.Status)
		assert.Equal(t, "alice", ev.User)

		subject, err := tokens.Verify(ev.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("unknown session is terminal expired", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()

		ev := svc.Snapshot("no-such-session")
		assert.Equal(t, model.SessionStatusExpired, ev.Status)
		assert.True(t, ev.Terminal)
	})
}

func TestConfirm(t *testing.T) {
	t.Run("authenticates and pushes to the bound connection", func(t *testing.T) {
		svc, _, registry, tokens := newTestLoginService()
		result := svc.StartLogin()
		conn := registry.Bind(result.SessionID)

		confirmed, err := svc.Confirm(result.SessionID, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", confirmed.Username)

		subject, err := tokens.Verify(confirmed.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)

		select {
		case ev := <-conn.Send:
			assert.Equal(t, model.SessionStatusAuthenticated, ev.Status)
			assert.Equal(t, "alice", ev.User)
			assert.NotEmpty(t, ev.Token)
		default:
			t.Fatal("confirm should push to the bound connection")
		}

		status, err := svc.CheckSession(result.SessionID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusAuthenticated, status.Status)
		assert.Equal(t, "alice", status.User)
	})

	t.Run("empty user falls back to the default subject", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		result := svc.StartLogin()

		confirmed, err := svc.Confirm(result.SessionID, "")
		require.NoError(t, err)
		assert.Equal(t, "user1", confirmed.Username)
	})

	t.Run("succeeds without a bound connection", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		result := svc.StartLogin()

		_, err := svc.Confirm(result.SessionID, "alice")
		assert.NoError(t, err)
	})

	t.Run("unknown session fails with no side effects", func(t *testing.T) {
		svc, sessions, registry, _ := newTestLoginService()
		result := svc.StartLogin()
		conn := registry.Bind(result.SessionID)
		size := sessions.Len()

		_, err := svc.Confirm("no-such-session", "alice")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, size, sessions.Len())

		select {
		case <-conn.Send:
			t.Fatal("no channel event should be sent for a failed confirm")
		default:
		}
	})
}

func TestLogout(t *testing.T) {
	t.Run("removes the session and notifies the connection", func(t *testing.T) {
		svc, _, registry, _ := newTestLoginService()
		result := svc.StartLogin()
		conn := registry.Bind(result.SessionID)

		svc.Logout(result.SessionID)

		_, err := svc.CheckSession(result.SessionID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, 0, registry.Count())

		ev := <-conn.Send
		assert.Equal(t, model.SessionStatusLogout, ev.Status)
		assert.True(t, ev.Terminal)
	})

	t.Run("nonexistent session still succeeds", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		svc.Logout("no-such-session")
	})
}

func TestSweepExpired(t *testing.T) {
	t.Run("evicts stale pending sessions and closes connections", func(t *testing.T) {
		svc, _, registry, _ := newTestLoginService()
		result := svc.StartLogin()
		conn := registry.Bind(result.SessionID)

		count := svc.SweepExpired(time.Now().UTC().Add(testPendingTTL + time.Second))
		assert.Equal(t, 1, count)

		_, err := svc.CheckSession(result.SessionID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		ev := <-conn.Send
		assert.Equal(t, model.SessionStatusExpired, ev.Status)
		assert.True(t, ev.Terminal)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("authenticated sessions survive the pending window", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		result := svc.StartLogin()
		_, err := svc.Confirm(result.SessionID, "alice")
		require.NoError(t, err)

		count := svc.SweepExpired(time.Now().UTC().Add(testPendingTTL + time.Second))
		assert.Equal(t, 0, count)

		status, err := svc.CheckSession(result.SessionID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusAuthenticated, status.Status)
	})

	t.Run("fresh sessions are untouched", func(t *testing.T) {
		svc, _, _, _ := newTestLoginService()
		svc.StartLogin()

		assert.Equal(t, 0, svc.SweepExpired(time.Now().UTC()))
	})
}

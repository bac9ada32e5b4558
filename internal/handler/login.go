package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/scangate/qrlogin-server-go/internal/errors"
	"github.com/scangate/qrlogin-server-go/internal/qr"
	"github.com/scangate/qrlogin-server-go/internal/service"
	"github.com/scangate/qrlogin-server-go/internal/store"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>QR Login</title></head>
<body>
  <h1>Scan to log in</h1>
  <img src="{{.QRCode}}" alt="login QR code">
  <p id="status">Waiting for confirmation...</p>
  <script>
    const sessionId = {{.SessionID}};
    const proto = location.protocol === "https:" ? "wss:" : "ws:";
    const ws = new WebSocket(proto + "//" + location.host + "/ws/" + sessionId);
    let poll;
    ws.onopen = () => { poll = setInterval(() => ws.send("poll"), 2000); };
    ws.onmessage = (msg) => {
      const data = JSON.parse(msg.data);
      document.getElementById("status").textContent = data.status;
      if (data.status === "authenticated") {
        localStorage.setItem("token", data.token);
      }
    };
    ws.onclose = () => clearInterval(poll);
  </script>
</body>
</html>
`))

type loginPageData struct {
	SessionID string
	QRCode    template.URL
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username,omitempty"`
}

type LoginHandler struct {
	login *service.LoginService
}

func NewLoginHandler(login *service.LoginService) *LoginHandler {
	return &LoginHandler{login: login}
}

// GET /
// Issues a new session and renders the login page with its QR code.
func (h *LoginHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	result := h.login.StartLogin()

	qrCode, err := qr.DataURI(result.QRPayload)
	if err != nil {
		log.Error().Err(err).Msg("failed to render qr code")
		writeError(w, apperrors.Internal("Failed to render QR code"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPage.Execute(w, loginPageData{
		SessionID: result.SessionID,
		QRCode:    template.URL(qrCode),
	}); err != nil {
		log.Error().Err(err).Msg("failed to render login page")
	}
}

// POST /api/qr-login
// Confirmation from the scanning device.
func (h *LoginHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.SessionID == "" {
		writeError(w, apperrors.MissingRequired("session_id"))
		return
	}

	result, err := h.login.Confirm(req.SessionID, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NotFound("Session"))
			return
		}
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("failed to confirm session")
		writeError(w, apperrors.Internal("Failed to confirm session"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/logout
// Always succeeds, even when the session is already gone.
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.SessionID == "" {
		writeError(w, apperrors.MissingRequired("session_id"))
		return
	}

	h.login.Logout(req.SessionID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GET /api/check-session/{sessionID}
func (h *LoginHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.login.CheckSession(sessionID)
	if err != nil {
		writeError(w, apperrors.NotFound("Session"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

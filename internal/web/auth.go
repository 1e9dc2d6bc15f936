package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"portalkit/internal/model"

	"go.uber.org/zap"
)

const (
	sessionCookieName = "portal_session"
	remoteUserHeader  = "X-Remote-User"
	sessionTTL        = 12 * time.Hour
)

var (
	errSessionInvalid = errors.New("invalid session token")
	errSessionExpired = errors.New("session expired")
)

// session is the signed cookie payload.
type session struct {
	User  string `json:"u"`
	Exp   int64  `json:"exp"`
	Nonce string `json:"n,omitempty"`
}

func randomSecret() ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
}

func sessionMAC(secret []byte, payload string) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// issueSession returns "<payload>.<mac>", both base64url.
func issueSession(secret []byte, user string, ttl time.Duration) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", errors.New("missing user")
	}
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	b, err := json.Marshal(session{
		User:  user,
		Exp:   time.Now().Add(ttl).Unix(),
		Nonce: base64.RawURLEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + base64.RawURLEncoding.EncodeToString(sessionMAC(secret, payload)), nil
}

func readSession(secret []byte, token string) (session, error) {
	payload, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return session{}, errSessionInvalid
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(sessionMAC(secret, payload), got) {
		return session{}, errSessionInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return session{}, errSessionInvalid
	}
	var sess session
	if err := json.Unmarshal(raw, &sess); err != nil || strings.TrimSpace(sess.User) == "" {
		return session{}, errSessionInvalid
	}
	if time.Now().Unix() > sess.Exp {
		return session{}, errSessionExpired
	}
	return sess, nil
}

// userForRequest picks the session cookie first, then the proxy header when trusted.
func (s *Server) userForRequest(r *http.Request) model.User {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		sess, err := readSession(s.secret, c.Value)
		if err == nil {
			return model.User{Name: sess.User}
		}
		s.log.Debug("ignoring session cookie", zap.Error(err))
	}
	if s.cfg.TrustRemoteUser {
		if name := strings.TrimSpace(r.Header.Get(remoteUserHeader)); name != "" {
			return model.User{Name: name}
		}
	}
	return model.GuestUser()
}

// handleLogin starts a session for the posted user name. It is only routed in dev auth mode;
// no password is checked.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	token, err := issueSession(s.secret, r.Form.Get("user"), sessionTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
	redirectBack(w, r, s.cfg.Prefix+"/home")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	redirectBack(w, r, s.cfg.Prefix+"/home")
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/models"
)

// authResponse is returned by signup, login and wallet login. The token is
// included for clients that send it as a Bearer header instead of a cookie.
type authResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// selfView strips the password hash from the caller's own user document.
func selfView(u *models.User) *models.User {
	c := u.Clone()
	c.PasswordHash = ""
	if c.Portfolios == nil {
		c.Portfolios = []models.Portfolio{}
	}
	return c
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cfg := s.app.Config.Auth
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(cfg.GetSessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	cfg := s.app.Config.Auth
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleAuth handles POST /api/auth: signup, login or logout by action.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action      string `json:"action"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	var (
		result *models.AuthResult
		err    error
	)

	switch strings.ToLower(req.Action) {
	case "signup":
		result, err = s.app.AuthService.Signup(ctx, req.Username, req.Password, req.DisplayName)
	case "login":
		result, err = s.app.AuthService.Login(ctx, req.Username, req.Password)
	case "logout":
		for _, token := range sessionTokens(r, s.app.Config.Auth.CookieName) {
			if err := s.app.AuthService.Logout(ctx, token); err != nil {
				s.writeServiceError(w, r, err, "Failed to log out")
				return
			}
		}
		s.clearSessionCookie(w)
		WriteData(w, nil)
		return
	default:
		WriteError(w, http.StatusBadRequest, "action must be signup, login or logout")
		return
	}

	if err != nil {
		s.writeServiceError(w, r, err, "Authentication failed")
		return
	}

	s.logger.Info().
		Str("action", req.Action).
		Str("user", result.User.Key()).
		Msg("User authenticated")

	s.setSessionCookie(w, result.Token, result.ExpiresAt)
	WriteData(w, authResponse{User: selfView(result.User), Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// handleAuthSession handles GET /api/auth: the current session's user.
func (s *Server) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	s.handleUserGet(w, r)
}

// handleWalletAuth handles POST /api/auth/wallet. The Privy access token
// comes in the body or as a Bearer header.
func (s *Server) handleWalletAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken   string `json:"access_token"`
		WalletAddress string `json:"wallet_address"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	token := req.AccessToken
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "access token required")
		return
	}

	result, err := s.app.AuthService.WalletLogin(r.Context(), token, req.WalletAddress)
	if err != nil {
		s.writeServiceError(w, r, err, "Wallet login failed")
		return
	}

	s.logger.Info().Str("user", result.User.Key()).Msg("Wallet authenticated")

	s.setSessionCookie(w, result.Token, result.ExpiresAt)
	WriteData(w, authResponse{User: selfView(result.User), Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// currentUser loads the caller's user document, writing 401 when there is
// no session.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*common.UserContext, *models.User, bool) {
	uc, ok := requireUser(w, r)
	if !ok {
		return nil, nil, false
	}
	user, err := s.app.Storage.UserStore().GetUser(r.Context(), uc.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load user")
		return nil, nil, false
	}
	return uc, user, true
}

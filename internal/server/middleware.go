package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// responseWriter wraps http.ResponseWriter to capture status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// recoveryMiddleware catches panics and returns 500.
func recoveryMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Str("panic", fmt.Sprintf("%v", rec)).
						Str("path", r.URL.Path).
						Msg("Panic recovered in HTTP handler")
					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows the configured browser origins to call the API with
// the session cookie.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// correlationIDMiddleware extracts or generates a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Request-ID")
		if corrID == "" {
			corrID = r.Header.Get("X-Correlation-ID")
		}
		if corrID == "" {
			corrID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			dur := time.Since(start)
			corrID := w.Header().Get("X-Correlation-ID")

			event := logger.Trace()
			if rw.statusCode >= 500 {
				event = logger.Error()
			} else if rw.statusCode >= 400 {
				event = logger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytesWritten).
				Dur("duration", dur).
				Str("correlation_id", corrID).
				Str("user", common.ResolveUserID(r.Context())).
				Msg("HTTP request")
		})
	}
}

// sessionTokens returns every distinct token the request carries, cookie
// first. A stale cookie must not hide a valid Bearer token.
func sessionTokens(r *http.Request, cookieName string) []string {
	var tokens []string
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		tokens = append(tokens, c.Value)
	}
	if b := bearerToken(r); b != "" && (len(tokens) == 0 || tokens[0] != b) {
		tokens = append(tokens, b)
	}
	return tokens
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// sessionMiddleware resolves the session token to a UserContext. Requests
// without a valid session pass through anonymously; handlers that need a
// user call requireUser.
func sessionMiddleware(authService interfaces.AuthService, cookieName string, logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				user    *models.User
				session *models.Session
			)
			for _, token := range sessionTokens(r, cookieName) {
				u, sess, err := authService.Authenticate(r.Context(), token)
				if err == nil {
					user, session = u, sess
					break
				}
				if !errors.Is(err, models.ErrUnauthorized) {
					logger.Warn().Err(err).Msg("Session lookup failed")
				}
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			uc := &common.UserContext{
				UserID:      session.UserID,
				Username:    user.Username,
				AccountType: user.AccountType,
				TokenHash:   session.TokenHash,
			}
			next.ServeHTTP(w, r.WithContext(common.WithUserContext(r.Context(), uc)))
		})
	}
}

// requireUser returns the caller's UserContext, or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*common.UserContext, bool) {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil || uc.UserID == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return uc, true
}

// applyMiddleware installs the middleware stack on the router.
// Order: recovery, CORS, correlation ID, session, logging.
func (s *Server) applyMiddleware(r chi.Router) {
	r.Use(recoveryMiddleware(s.logger))
	r.Use(corsMiddleware(s.app.Config.Server.CORSOrigins))
	r.Use(correlationIDMiddleware)
	r.Use(sessionMiddleware(s.app.AuthService, s.app.Config.Auth.CookieName, s.logger))
	r.Use(loggingMiddleware(s.logger))
}

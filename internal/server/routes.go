package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/bagboard/internal/common"
)

// registerRoutes sets up all REST API routes on the router.
func (s *Server) registerRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		// System
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Auth
		r.Get("/auth", s.handleAuthSession)
		r.Post("/auth", s.handleAuth)
		r.Post("/auth/wallet", s.handleWalletAuth)

		// Users
		r.Get("/user", s.handleUserGet)
		r.Put("/user/settings", s.handleUserSettings)
		r.Put("/user/profile-picture", s.handleProfilePictureSet)
		r.Delete("/user/profile-picture", s.handleProfilePictureDelete)
		r.Get("/user-by-username", s.handleUserByUsername)

		// Own portfolios
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", s.handlePortfolioList)
			r.Post("/", s.handlePortfolioCreate)
			r.Put("/", s.handlePortfolioReplace)
			r.Put("/{id}", s.handlePortfolioRename)
			r.Delete("/{id}", s.handlePortfolioDelete)
			r.Post("/{id}/rows", s.handleRowAdd)
			r.Delete("/{id}/rows/{address}", s.handleRowRemove)
		})

		// Public portfolios
		r.Get("/portfolio", s.handlePortfolioPublic)
		r.Post("/portfolio/view", s.handlePortfolioView)
		r.Post("/portfolio/share", s.handlePortfolioShare)
		r.Get("/portfolio/card", s.handlePortfolioCard)
		r.Get("/leaderboard", s.handleLeaderboard)

		// Market data
		r.Get("/token-metadata", s.handleTokenMetadata)
		r.Post("/resolve-address", s.handleResolveAddress)
		r.Get("/four-meme", s.handleFourMeme)
		r.Get("/image-proxy", s.handleImageProxy)
		r.Get("/pump-image", s.handlePumpImage)
	})
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteData(w, map[string]interface{}{
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteData(w, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

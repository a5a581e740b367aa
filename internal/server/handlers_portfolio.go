package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/bagboard/internal/models"
)

// portfolioOwner is the slice of the owner's profile shown with a public portfolio.
type portfolioOwner struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

type portfolioRef struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// handlePortfolioList handles GET /api/portfolios.
func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.app.PortfolioService.List(r.Context(), uc.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to list portfolios")
		return
	}
	WriteData(w, map[string]interface{}{"portfolios": list})
}

// handlePortfolioCreate handles POST /api/portfolios.
func (s *Server) handlePortfolioCreate(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	p, err := s.app.PortfolioService.Create(r.Context(), uc.UserID, req.Name, req.ID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to create portfolio")
		return
	}
	WriteJSON(w, http.StatusCreated, DataResponse{Status: "ok", Data: map[string]interface{}{"portfolio": p}})
}

// handlePortfolioReplace handles PUT /api/portfolios: the body is either a
// bare array or {"portfolios": [...]}.
func (s *Server) handlePortfolioReplace(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var raw json.RawMessage
	if !DecodeJSON(w, r, &raw) {
		return
	}
	var portfolios []models.Portfolio
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &portfolios); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}
	} else {
		var wrapped struct {
			Portfolios []models.Portfolio `json:"portfolios"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}
		portfolios = wrapped.Portfolios
	}

	out, err := s.app.PortfolioService.ReplaceAll(r.Context(), uc.UserID, portfolios)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to save portfolios")
		return
	}
	WriteData(w, map[string]interface{}{"portfolios": out})
}

// handlePortfolioRename handles PUT /api/portfolios/{id}.
func (s *Server) handlePortfolioRename(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	p, err := s.app.PortfolioService.Rename(r.Context(), uc.UserID, pathParam(r, "id"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to rename portfolio")
		return
	}
	WriteData(w, map[string]interface{}{"portfolio": p})
}

// handlePortfolioDelete handles DELETE /api/portfolios/{id}.
func (s *Server) handlePortfolioDelete(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.app.PortfolioService.Delete(r.Context(), uc.UserID, pathParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err, "Failed to delete portfolio")
		return
	}
	WriteData(w, nil)
}

// handleRowAdd handles POST /api/portfolios/{id}/rows. The input may be a
// bare address, a URL or pasted text containing one.
func (s *Server) handleRowAdd(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Input   string `json:"input"`
		Address string `json:"address"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	input := req.Input
	if input == "" {
		input = req.Address
	}
	if strings.TrimSpace(input) == "" {
		WriteError(w, http.StatusBadRequest, "input is required")
		return
	}

	p, err := s.app.PortfolioService.AddRow(r.Context(), uc.UserID, pathParam(r, "id"), input)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to add token")
		return
	}
	WriteData(w, map[string]interface{}{"portfolio": p})
}

// handleRowRemove handles DELETE /api/portfolios/{id}/rows/{address}.
func (s *Server) handleRowRemove(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := s.app.PortfolioService.RemoveRow(r.Context(), uc.UserID, pathParam(r, "id"), pathParam(r, "address"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to remove token")
		return
	}
	WriteData(w, map[string]interface{}{"portfolio": p})
}

// refFromQuery reads username and id query parameters, writing 400 when
// either is missing.
func refFromQuery(w http.ResponseWriter, r *http.Request) (portfolioRef, bool) {
	ref := portfolioRef{
		Username: strings.TrimSpace(r.URL.Query().Get("username")),
		ID:       strings.TrimSpace(r.URL.Query().Get("id")),
	}
	if ref.Username == "" || ref.ID == "" {
		WriteError(w, http.StatusBadRequest, "username and id are required")
		return ref, false
	}
	return ref, true
}

// handlePortfolioPublic handles GET /api/portfolio?username=&id=: another
// user's portfolio with live token stats.
func (s *Server) handlePortfolioPublic(w http.ResponseWriter, r *http.Request) {
	ref, ok := refFromQuery(w, r)
	if !ok {
		return
	}

	owner, p, err := s.app.PortfolioService.Get(r.Context(), ref.Username, ref.ID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load portfolio")
		return
	}
	stats, err := s.app.PortfolioService.Stats(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load token data")
		return
	}

	WriteData(w, map[string]interface{}{
		"owner": portfolioOwner{
			Username:       owner.Username,
			DisplayName:    owner.DisplayName,
			ProfilePicture: owner.ProfilePicture,
		},
		"portfolio": p,
		"stats":     stats,
	})
}

// handlePortfolioView handles POST /api/portfolio/view.
func (s *Server) handlePortfolioView(w http.ResponseWriter, r *http.Request) {
	var ref portfolioRef
	if !DecodeJSON(w, r, &ref) {
		return
	}
	if ref.Username == "" || ref.ID == "" {
		WriteError(w, http.StatusBadRequest, "username and id are required")
		return
	}
	p, err := s.app.PortfolioService.RecordView(r.Context(), ref.Username, ref.ID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to record view")
		return
	}
	WriteData(w, map[string]interface{}{"views": p.Views, "shares": p.Shares})
}

// handlePortfolioShare handles POST /api/portfolio/share.
func (s *Server) handlePortfolioShare(w http.ResponseWriter, r *http.Request) {
	var ref portfolioRef
	if !DecodeJSON(w, r, &ref) {
		return
	}
	if ref.Username == "" || ref.ID == "" {
		WriteError(w, http.StatusBadRequest, "username and id are required")
		return
	}
	p, err := s.app.PortfolioService.RecordShare(r.Context(), ref.Username, ref.ID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to record share")
		return
	}
	WriteData(w, map[string]interface{}{"views": p.Views, "shares": p.Shares})
}

// handlePortfolioCard handles GET /api/portfolio/card?username=&id=: the
// share card PNG.
func (s *Server) handlePortfolioCard(w http.ResponseWriter, r *http.Request) {
	ref, ok := refFromQuery(w, r)
	if !ok {
		return
	}

	_, p, err := s.app.PortfolioService.Get(r.Context(), ref.Username, ref.ID)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load portfolio")
		return
	}
	stats, err := s.app.PortfolioService.Stats(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load token data")
		return
	}
	png, err := s.app.ShareCard.Render(p, stats)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to render share card")
		return
	}
	WriteImage(w, "image/png", png, 5*time.Minute)
}

// handleLeaderboard handles GET /api/leaderboard.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.app.LeaderboardService.Compute(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to compute leaderboard")
		return
	}
	WriteData(w, board)
}

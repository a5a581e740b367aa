package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/bagboard/internal/interfaces"
)

// handleUserGet handles GET /api/user: the caller's own user document.
func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	_, user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	WriteData(w, map[string]interface{}{"user": selfView(user)})
}

// handleUserSettings handles PUT /api/user/settings.
func (s *Server) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		DisplayName     *string `json:"display_name"`
		CurrentPassword string  `json:"current_password"`
		NewPassword     *string `json:"new_password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword != nil && *req.NewPassword == "" {
		req.NewPassword = nil
	}

	user, err := s.app.AuthService.UpdateSettings(r.Context(), uc.UserID, interfaces.SettingsUpdate{
		DisplayName:     req.DisplayName,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to update settings")
		return
	}
	WriteData(w, map[string]interface{}{"user": selfView(user)})
}

// handleProfilePictureSet handles PUT /api/user/profile-picture.
func (s *Server) handleProfilePictureSet(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		WriteError(w, http.StatusBadRequest, "image is required")
		return
	}

	user, err := s.app.AuthService.SetProfilePicture(r.Context(), uc.UserID, req.Image)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to save profile picture")
		return
	}
	WriteData(w, map[string]interface{}{"user": selfView(user)})
}

// handleProfilePictureDelete handles DELETE /api/user/profile-picture.
func (s *Server) handleProfilePictureDelete(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.app.AuthService.SetProfilePicture(r.Context(), uc.UserID, "")
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to remove profile picture")
		return
	}
	WriteData(w, map[string]interface{}{"user": selfView(user)})
}

// handleUserByUsername handles GET /api/user-by-username?username=.
func (s *Server) handleUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		WriteError(w, http.StatusBadRequest, "username is required")
		return
	}
	user, err := s.app.AuthService.GetProfile(r.Context(), username)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load user")
		return
	}
	WriteData(w, map[string]interface{}{"user": user.Public()})
}

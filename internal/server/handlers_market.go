package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/bagboard/internal/address"
)

const imageMaxAge = 24 * time.Hour

// handleTokenMetadata handles GET /api/token-metadata?addresses=a,b,c.
func (s *Server) handleTokenMetadata(w http.ResponseWriter, r *http.Request) {
	addrs := splitList(r.URL.Query().Get("addresses"))
	if len(addrs) == 0 {
		WriteError(w, http.StatusBadRequest, "addresses is required")
		return
	}
	if limit := s.app.Config.Metadata.MaxAddresses; limit > 0 && len(addrs) > limit {
		WriteError(w, http.StatusBadRequest, "too many addresses")
		return
	}

	tokens, err := s.app.MetadataService.ResolveMany(r.Context(), addrs)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to resolve token metadata")
		return
	}
	WriteData(w, map[string]interface{}{"tokens": tokens})
}

// handleResolveAddress handles POST /api/resolve-address: extracts a token
// address and its chain from free-form input.
func (s *Server) handleResolveAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	addr, ok := address.Classify(req.Input)
	if !ok {
		WriteError(w, http.StatusBadRequest, "no token address found")
		return
	}
	WriteData(w, addr)
}

// handleFourMeme handles GET /api/four-meme?address=.
func (s *Server) handleFourMeme(w http.ResponseWriter, r *http.Request) {
	if s.app.FourMeme == nil {
		WriteError(w, http.StatusServiceUnavailable, "four.meme data is not configured")
		return
	}
	addr := strings.TrimSpace(r.URL.Query().Get("address"))
	if !address.IsEVM(addr) {
		WriteError(w, http.StatusBadRequest, "address must be a BSC contract address")
		return
	}

	snap, err := s.app.FourMeme.MarketData(r.Context(), address.Normalize(addr))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load four.meme data")
		return
	}
	WriteData(w, snap)
}

// handleImageProxy handles GET /api/image-proxy?url=.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "url is required")
		return
	}
	img, err := s.app.ImageProxy.Fetch(r.Context(), raw)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch image")
		return
	}
	WriteImage(w, img.ContentType, img.Data, imageMaxAge)
}

// handlePumpImage handles GET /api/pump-image?mint=.
func (s *Server) handlePumpImage(w http.ResponseWriter, r *http.Request) {
	mint := strings.TrimSpace(r.URL.Query().Get("mint"))
	if mint == "" {
		WriteError(w, http.StatusBadRequest, "mint is required")
		return
	}
	img, err := s.app.ImageProxy.PumpImage(r.Context(), mint)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch image")
		return
	}
	WriteImage(w, img.ContentType, img.Data, imageMaxAge)
}

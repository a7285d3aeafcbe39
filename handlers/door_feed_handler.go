package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"runClubAPI/internal/identity"
	"runClubAPI/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DoorFeedHandler streams redemptions to scanning stations. Browsers cannot
// set headers on websocket upgrades, so the token comes in the query string.
type DoorFeedHandler struct {
	feed     *services.DoorFeed
	verifier identity.Verifier
}

func NewDoorFeedHandler(feed *services.DoorFeed, verifier identity.Verifier) *DoorFeedHandler {
	return &DoorFeedHandler{
		feed:     feed,
		verifier: verifier,
	}
}

// GET /api/v1/admin/door-feed?token=...&station=...
func (h *DoorFeedHandler) Join(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "token is required")
		return
	}

	id, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if !id.Admin {
		respondWithError(w, http.StatusForbidden, "Admin access required")
		return
	}

	station := r.URL.Query().Get("station")
	if station == "" {
		station = id.UID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnf("door feed: could not upgrade connection: %v", err)
		return
	}

	h.feed.Attach(conn, station)
}

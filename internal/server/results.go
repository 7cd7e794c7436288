package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/repository"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// ResultsReader is the read side of the match-result store.
type ResultsReader interface {
	Recent(ctx context.Context, limit int) ([]repository.MatchResult, error)
	Standing(ctx context.Context, name string) (repository.Standing, error)
}

// ResultView is one finished match as served over HTTP.
type ResultView struct {
	MatchID      string    `json:"matchId"`
	WinnerName   string    `json:"winnerName"`
	LoserName    string    `json:"loserName"`
	Reason       string    `json:"reason"`
	Turns        int       `json:"turns"`
	SinglePlayer bool      `json:"singlePlayer"`
	EndedAt      time.Time `json:"endedAt"`
}

// StandingView is a player's win/loss tally as served over HTTP.
type StandingView struct {
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ResultsHandler serves match history, standings and saved replays.
type ResultsHandler struct {
	store     ResultsReader
	replayDir string
	mux       *http.ServeMux
	logger    *zap.Logger
}

// NewResultsHandler creates the read-only HTTP API. Replays are served only
// when replayDir is set.
func NewResultsHandler(store ResultsReader, replayDir string, logger *zap.Logger) *ResultsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ResultsHandler{
		store:     store,
		replayDir: replayDir,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	h.mux.HandleFunc("GET /results", h.recent)
	h.mux.HandleFunc("GET /standings/{name}", h.standing)
	h.mux.HandleFunc("GET /replays/{matchID}", h.replay)
	return h
}

// Register mounts every route on mux.
func (h *ResultsHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /results", h)
	mux.Handle("GET /standings/{name}", h)
	mux.Handle("GET /replays/{matchID}", h)
}

func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *ResultsHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxResultsLimit)
	}

	results, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list match results", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "results unavailable"})
		return
	}
	views := make([]ResultView, 0, len(results))
	for _, res := range results {
		views = append(views, ResultView{
			MatchID:      res.MatchID,
			WinnerName:   res.WinnerName,
			LoserName:    res.LoserName,
			Reason:       res.Reason,
			Turns:        res.Turns,
			SinglePlayer: res.SinglePlayer,
			EndedAt:      res.EndedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ResultsHandler) standing(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	st, err := h.store.Standing(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to load standing", zap.String("name", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "standing unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, StandingView{Name: st.Name, Wins: st.Wins, Losses: st.Losses})
}

func (h *ResultsHandler) replay(w http.ResponseWriter, r *http.Request) {
	if h.replayDir == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "replays are disabled"})
		return
	}
	// Match ids are uuids; anything else could escape the replay directory.
	id, err := uuid.Parse(r.PathValue("matchID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid match id"})
		return
	}

	replay, err := game.LoadReplayFromFile(h.replayDir, id.String())
	switch {
	case errors.Is(err, os.ErrNotExist):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "replay not found"})
	case err != nil:
		h.logger.Error("failed to load replay", zap.String("match_id", id.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "replay unavailable"})
	default:
		writeJSON(w, http.StatusOK, replay)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

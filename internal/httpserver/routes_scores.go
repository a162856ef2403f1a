package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/ledger"
)

// ------------------------------ SCORES -------------------------------------

func (s *Server) mountScores(r chi.Router) {
	r.Get("/scores", s.handleGetScores)
	r.Post("/scores", s.handleRecordScores)
	r.Post("/scores/reset", s.handleResetScores)
}

type scoresRes struct {
	Single  map[string]int       `json:"single,omitempty"`
	Matches []ledger.MatchRecord `json:"matches,omitempty"`
}

// handleGetScores returns one mode's ledger, or both when mode is omitted.
func (s *Server) handleGetScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		writeJSON(w, http.StatusOK, scoresRes{
			Single:  s.games.SingleScores(ctx),
			Matches: s.games.MatchHistory(ctx),
		})
		return
	}
	mode, err := game.ParseMode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mode == game.ModeMulti {
		writeJSON(w, http.StatusOK, map[string]any{"matches": s.games.MatchHistory(ctx)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"single": s.games.SingleScores(ctx)})
}

// recordScoresReq accepts either a {player: score} map or explicit fields.
type recordScoresReq struct {
	Mode    string         `json:"mode"`
	Scores  map[string]int `json:"scores"`
	Player1 string         `json:"player1"`
	Player2 string         `json:"player2"`
	Score1  int            `json:"score1"`
	Score2  int            `json:"score2"`
}

func (req recordScoresReq) record() (ledger.MatchRecord, bool) {
	if len(req.Scores) == 0 {
		return ledger.MatchRecord{
			Player1: strings.TrimSpace(req.Player1),
			Player2: strings.TrimSpace(req.Player2),
			Score1:  req.Score1,
			Score2:  req.Score2,
		}, true
	}
	if len(req.Scores) != 2 {
		return ledger.MatchRecord{}, false
	}
	names := make([]string, 0, 2)
	for name := range req.Scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return ledger.MatchRecord{
		Player1: strings.TrimSpace(names[0]),
		Player2: strings.TrimSpace(names[1]),
		Score1:  req.Scores[names[0]],
		Score2:  req.Scores[names[1]],
	}, true
}

// handleRecordScores appends a client-reported match. Single-player bests are
// only ever written by the server when a game is won.
func (s *Server) handleRecordScores(w http.ResponseWriter, r *http.Request) {
	var req recordScoresReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if game.Mode(req.Mode) != game.ModeMulti {
		writeError(w, http.StatusBadRequest, "only multi scores can be recorded")
		return
	}
	rec, ok := req.record()
	if !ok {
		writeError(w, http.StatusBadRequest, "exactly two players are required")
		return
	}
	rec, err := s.games.RecordMatch(r.Context(), rec)
	if err != nil {
		s.writeGameError(w, r, err, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type resetReq struct {
	Mode     string `json:"mode"`
	Password string `json:"password"`
}

// handleResetScores clears a mode's ledger behind the admin password.
func (s *Server) handleResetScores(w http.ResponseWriter, r *http.Request) {
	if len(s.adminHash) == 0 {
		writeError(w, http.StatusForbidden, "reset_disabled")
		return
	}
	var req resetReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)) != nil {
		hlog.FromRequest(r).Warn().Msg("score reset with bad password")
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.games.ResetScores(r.Context(), mode); err != nil {
		s.writeGameError(w, r, err, "reset_failed")
		return
	}
	hlog.FromRequest(r).Info().Str("mode", string(mode)).Msg("scores reset")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scores reset"})
}

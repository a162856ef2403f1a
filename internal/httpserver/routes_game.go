package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/guessmaster/internal/game"
)

// ------------------------------ GAME ---------------------------------------

func (s *Server) mountGame(r chi.Router) {
	r.Post("/start-game", s.handleStartGame)
	r.Post("/set-target", s.handleSetTarget)
	r.Post("/guess", s.handleGuess)
	r.Post("/end-game", s.handleEndGame)
	r.Get("/game", s.handleGameState)
}

// startGameReq is the payload for POST /api/start-game.
type startGameReq struct {
	Mode       string      `json:"mode"` // "single" | "multi"
	Difficulty string      `json:"difficulty"`
	Range      *game.Range `json:"range"` // custom difficulty only, [low, high]
	Player1    string      `json:"player1"`
	Player2    string      `json:"player2"`
}

// numberReq carries a guess or a chooser's secret number.
type numberReq struct {
	GameID string          `json:"gameId"`
	Guess  json.RawMessage `json:"guess"`
	Number json.RawMessage `json:"number"`
}

type gameIDReq struct {
	GameID string `json:"gameId"`
}

// currentGame picks the body's gameId over the cookie.
func (s *Server) currentGame(r *http.Request, bodyID string) string {
	if id := strings.TrimSpace(bodyID); id != "" {
		return id
	}
	return s.cookies.gameID(r)
}

// parseWhole accepts JSON numbers with a whole value (42, 42.0). Strings,
// fractions and other JSON types are invalid guesses.
func parseWhole(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: a number is required", game.ErrInvalidGuess)
	}
	if raw[0] == '"' {
		return 0, fmt.Errorf("%w: %s is a string, not a number", game.ErrInvalidGuess, raw)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s is not a whole number", game.ErrInvalidGuess, raw)
	}
	return int(f), nil
}

// handleStartGame registers a new game and hands its ID back in the cookie.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	var started any
	var gameID string
	switch mode {
	case game.ModeMulti:
		st, err := s.games.StartMulti(ctx, req.Player1, req.Player2)
		if err != nil {
			s.writeGameError(w, r, err, "start_failed")
			return
		}
		started, gameID = st, st.GameID
	default:
		st, err := s.games.StartSingle(ctx, strings.ToLower(strings.TrimSpace(req.Difficulty)), req.Range)
		if err != nil {
			s.writeGameError(w, r, err, "start_failed")
			return
		}
		started, gameID = st, st.GameID
	}

	if err := s.cookies.set(w, gameID); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign game cookie")
		_ = s.games.End(ctx, gameID)
		writeError(w, http.StatusInternalServerError, "cookie_failed")
		return
	}
	// The new game replaces whatever this client was playing. A rejected
	// start leaves the old game untouched.
	if old := s.cookies.gameID(r); old != "" && old != gameID {
		_ = s.games.End(ctx, old)
	}
	writeJSON(w, http.StatusCreated, started)
}

// handleSetTarget stores the chooser's secret number for the current round.
func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req numberReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	n, err := parseWhole(req.Number)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.games.SetTarget(r.Context(), s.currentGame(r, req.GameID), n)
	if err != nil {
		s.writeGameError(w, r, err, "set_target_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match": st})
}

// handleGuess evaluates a guess. Finished games also clear the cookie.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req numberReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	n, err := parseWhole(req.Guess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.games.Guess(r.Context(), s.currentGame(r, req.GameID), n)
	if err != nil {
		s.writeGameError(w, r, err, "guess_failed")
		return
	}
	finished := res.Finished()
	if res.Match != nil {
		finished = res.Match.Status == game.PhaseFinished
	}
	if finished {
		s.cookies.clear(w)
	}
	writeJSON(w, http.StatusOK, res)
}

// handleEndGame abandons the current game; ending nothing is fine.
func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	var req gameIDReq
	_ = readJSON(r, &req) // body is optional
	if err := s.games.End(r.Context(), s.currentGame(r, req.GameID)); err != nil {
		s.writeGameError(w, r, err, "end_failed")
		return
	}
	s.cookies.clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game session ended"})
}

// handleGameState lets a reloaded page resume its game.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.games.State(r.Context(), s.currentGame(r, r.URL.Query().Get("gameId")))
	if err != nil {
		s.writeGameError(w, r, err, "state_failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

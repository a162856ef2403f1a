package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/ledger"
	"github.com/robalobadob/guessmaster/internal/manager"
	"github.com/robalobadob/guessmaster/internal/store"
)

type testClient struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func newTestServer(t *testing.T, adminHash string) (*testClient, ledger.Ledger) {
	t.Helper()
	lg, err := ledger.OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	games := manager.New(store.NewMemoryStore(), lg, manager.Options{
		Target: func(game.Range) int { return 42 },
	})
	srv, err := New(games, Options{SessionSecret: "test-secret", AdminPasswordHash: adminHash})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testClient{t: t, h: srv.Router()}, lg
}

// do sends a request, carrying the game cookie between calls like a browser.
func (c *testClient) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name != gameCookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t, "")
	rec, body := c.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("health = %d %v", rec.Code, body)
	}
}

func TestPagesAndStatic(t *testing.T) {
	c, _ := newTestServer(t, "")
	for _, path := range []string{"/", "/singleplayer", "/multiplayer", "/static/style.css", "/static/app.js"} {
		rec, _ := c.do(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
	rec, _ := c.do(http.MethodGet, "/singleplayer", "")
	if !strings.Contains(rec.Body.String(), `value="medium"`) {
		t.Errorf("difficulty menu missing from page:\n%s", rec.Body.String())
	}
}

func TestSinglePlayerFlow(t *testing.T) {
	c, lg := newTestServer(t, "")

	rec, body := c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"medium"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}
	if body["max_attempts"] != float64(7) || c.cookie == nil {
		t.Fatalf("start body = %v cookie = %v", body, c.cookie)
	}

	_, body = c.do(http.MethodPost, "/api/guess", `{"guess":50}`)
	if body["result"] != "continue" || body["hint"] != "lower" || body["remaining"] != float64(6) {
		t.Fatalf("guess 50 = %v", body)
	}

	rec, _ = c.do(http.MethodGet, "/api/game", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"attempts":1`) {
		t.Fatalf("state = %d %s", rec.Code, rec.Body)
	}

	_, body = c.do(http.MethodPost, "/api/guess", `{"guess":42.0}`)
	if body["result"] != "win" || body["attempts"] != float64(2) || body["message"] != "Correct! The number was 42" {
		t.Fatalf("guess 42 = %v", body)
	}
	if c.cookie != nil {
		t.Fatal("cookie kept after the game finished")
	}

	rec, _ = c.do(http.MethodPost, "/api/guess", `{"guess":42}`)
	if rec.Code != statusSessionExpired {
		t.Fatalf("guess after win = %d", rec.Code)
	}

	_, body = c.do(http.MethodGet, "/api/scores?mode=single", "")
	single, _ := body["single"].(map[string]any)
	if single["medium"] != float64(2) {
		t.Fatalf("scores = %v", body)
	}
	if best, ok, _ := lg.Best(context.Background(), "medium"); !ok || best != 2 {
		t.Fatalf("ledger best = %d %v", best, ok)
	}
}

func TestGuessValidation(t *testing.T) {
	c, _ := newTestServer(t, "")
	c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"easy"}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not a number", `{"guess":"abc"}`, http.StatusBadRequest},
		{"quoted number", `{"guess":"10"}`, http.StatusBadRequest},
		{"boolean", `{"guess":true}`, http.StatusBadRequest},
		{"null", `{"guess":null}`, http.StatusBadRequest},
		{"fraction", `{"guess":4.5}`, http.StatusBadRequest},
		{"missing", `{}`, http.StatusBadRequest},
		{"out of range", `{"guess":51}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"valid", `{"guess":10}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := c.do(http.MethodPost, "/api/guess", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
	// Only the valid guess counted.
	_, body := c.do(http.MethodGet, "/api/game", "")
	if body["attempts"] != float64(1) {
		t.Fatalf("state = %v", body)
	}
}

func TestStartGameErrors(t *testing.T) {
	c, _ := newTestServer(t, "")
	tests := []struct {
		name string
		body string
	}{
		{"unknown mode", `{"mode":"solo"}`},
		{"unknown difficulty", `{"mode":"single","difficulty":"insane"}`},
		{"custom without range", `{"mode":"single","difficulty":"custom"}`},
		{"custom inverted", `{"mode":"single","difficulty":"custom","range":[50,10]}`},
		{"same players", `{"mode":"multi","player1":"Ann","player2":"Ann"}`},
		{"digits in name", `{"mode":"multi","player1":"R2D2","player2":"Ann"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := c.do(http.MethodPost, "/api/start-game", tt.body)
			if rec.Code != http.StatusBadRequest || body["error"] == nil {
				t.Fatalf("status = %d body = %v", rec.Code, body)
			}
		})
	}
}

func TestParseWhole(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"42.0", 42, false},
		{"4.2e1", 42, false},
		{" -3 ", -3, false},
		{`"42"`, 0, true},
		{"42.5", 0, true},
		{"1e20", 0, true},
		{"[]", 0, true},
		{"null", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseWhole(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseWhole(%q) = %d, %v", tt.raw, got, err)
		}
		if err != nil && !errors.Is(err, game.ErrInvalidGuess) {
			t.Errorf("parseWhole(%q) error %v is not ErrInvalidGuess", tt.raw, err)
		}
	}
}

func TestRejectedStartKeepsCurrentGame(t *testing.T) {
	c, _ := newTestServer(t, "")
	rec, _ := c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"easy"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}

	for _, bad := range []string{`{"mode":"solo"}`, `{"mode":"single","difficulty":"insane"}`, `{`} {
		rec, _ = c.do(http.MethodPost, "/api/start-game", bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("start %s = %d", bad, rec.Code)
		}
	}

	rec, body := c.do(http.MethodPost, "/api/guess", `{"guess":10}`)
	if rec.Code != http.StatusOK || body["result"] != "continue" {
		t.Fatalf("guess after rejected start = %d %v", rec.Code, body)
	}
}

func TestStartGameReplacesPrevious(t *testing.T) {
	c, _ := newTestServer(t, "")
	c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"easy"}`)
	first := c.cookie
	rec, _ := c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"hard"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("restart = %d", rec.Code)
	}

	c.cookie = first
	rec, _ = c.do(http.MethodPost, "/api/guess", `{"guess":10}`)
	if rec.Code != statusSessionExpired {
		t.Fatalf("old game guess = %d, want %d", rec.Code, statusSessionExpired)
	}
}

func TestNoSession(t *testing.T) {
	c, _ := newTestServer(t, "")
	rec, _ := c.do(http.MethodPost, "/api/guess", `{"guess":5}`)
	if rec.Code != statusSessionExpired {
		t.Fatalf("guess = %d", rec.Code)
	}
	// A forged cookie is ignored.
	c.cookie = &http.Cookie{Name: gameCookieName, Value: "not-a-token"}
	rec, _ = c.do(http.MethodPost, "/api/guess", `{"guess":5}`)
	if rec.Code != statusSessionExpired {
		t.Fatalf("forged guess = %d", rec.Code)
	}
}

func TestEndGame(t *testing.T) {
	c, _ := newTestServer(t, "")
	c.do(http.MethodPost, "/api/start-game", `{"mode":"single","difficulty":"easy"}`)
	for i := 0; i < 2; i++ {
		rec, _ := c.do(http.MethodPost, "/api/end-game", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("end %d = %d", i, rec.Code)
		}
	}
	rec, _ := c.do(http.MethodGet, "/api/game", "")
	if rec.Code != statusSessionExpired {
		t.Fatalf("state after end = %d", rec.Code)
	}
}

func TestTwoPlayerFlowWithGameID(t *testing.T) {
	c, _ := newTestServer(t, "")
	_, body := c.do(http.MethodPost, "/api/start-game", `{"mode":"multi","player1":"Alice","player2":"Bob"}`)
	id, _ := body["game_id"].(string)
	if id == "" {
		t.Fatalf("start = %v", body)
	}
	c.cookie = nil // API client without cookies

	post := func(path, payload string) map[string]any {
		t.Helper()
		rec, out := c.do(http.MethodPost, path, payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s = %d %s", path, payload, rec.Code, rec.Body)
		}
		return out
	}
	withID := func(field string, n int) string {
		b, _ := json.Marshal(map[string]any{"gameId": id, field: n})
		return string(b)
	}

	post("/api/set-target", withID("number", 40))
	for _, g := range []int{10, 20, 30, 50, 40} {
		post("/api/guess", withID("guess", g))
	}
	post("/api/set-target", withID("number", 70))
	post("/api/guess", withID("guess", 50))
	post("/api/guess", withID("guess", 80))
	out := post("/api/guess", withID("guess", 70))

	match, _ := out["match"].(map[string]any)
	outcome, _ := match["outcome"].(map[string]any)
	if match["status"] != "finished" || outcome["winner"] != "Alice" {
		t.Fatalf("final = %v", out)
	}

	_, body = c.do(http.MethodGet, "/api/scores?mode=multi", "")
	matches, _ := body["matches"].([]any)
	if len(matches) != 1 {
		t.Fatalf("history = %v", body)
	}
}

func TestRecordScores(t *testing.T) {
	c, lg := newTestServer(t, "")

	rec, _ := c.do(http.MethodPost, "/api/scores", `{"mode":"multi","scores":{"Bob":5,"Alice":3}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record map = %d %s", rec.Code, rec.Body)
	}
	rec, _ = c.do(http.MethodPost, "/api/scores", `{"mode":"multi","player1":"Cy","player2":"Di","score1":4,"score2":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record fields = %d %s", rec.Code, rec.Body)
	}

	for _, bad := range []string{
		`{"mode":"single","scores":{"medium":3}}`,
		`{"mode":"multi","scores":{"Solo":3}}`,
		`{"mode":"multi","scores":{"A":0,"B":2}}`,
	} {
		if rec, _ := c.do(http.MethodPost, "/api/scores", bad); rec.Code != http.StatusBadRequest {
			t.Errorf("record %s = %d", bad, rec.Code)
		}
	}

	hist, err := lg.Matches(context.Background())
	if err != nil || len(hist) != 2 {
		t.Fatalf("history = %v, %v", hist, err)
	}
	if hist[0].Player1 != "Alice" || hist[0].Score1 != 3 || hist[0].Winner != "Alice" {
		t.Fatalf("first record = %+v", hist[0])
	}
	if hist[1].Winner != "" {
		t.Fatalf("tie recorded a winner: %+v", hist[1])
	}
}

func TestResetScores(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	c, lg := newTestServer(t, string(hash))
	if _, err := lg.RecordSingle(context.Background(), "easy", 4); err != nil {
		t.Fatal(err)
	}

	rec, _ := c.do(http.MethodPost, "/api/scores/reset", `{"mode":"single","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", rec.Code)
	}
	rec, _ = c.do(http.MethodPost, "/api/scores/reset", `{"mode":"single","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d %s", rec.Code, rec.Body)
	}
	if s, _ := lg.Singles(context.Background()); len(s) != 0 {
		t.Fatalf("scores after reset = %v", s)
	}

	disabled, _ := newTestServer(t, "")
	rec, _ = disabled.do(http.MethodPost, "/api/scores/reset", `{"mode":"single","password":"hunter2"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("reset without admin hash = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	lg, _ := ledger.OpenFile(t.TempDir())
	games := manager.New(store.NewMemoryStore(), lg, manager.Options{})
	srv, err := New(games, Options{ClientOrigin: "http://localhost:5173"})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodOptions, "/api/guess", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func newListeningServer(t *testing.T) *Server {
	t.Helper()
	lg, err := ledger.OpenFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	games := manager.New(store.NewMemoryStore(), lg, manager.Options{})
	srv, err := New(games, Options{Addr: "127.0.0.1:0", SessionSecret: "test-secret"})
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after shutdown")
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	srv := newListeningServer(t)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	waitRun(t, done)
}

func TestShutdownRacingRun(t *testing.T) {
	srv := newListeningServer(t)
	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	waitRun(t, done)
}

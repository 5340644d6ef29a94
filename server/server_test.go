package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/scores"
	"github.com/brensch/snekclassic/stats"
	"github.com/gorilla/websocket"
)

// wireMessage mirrors serverMessage for decoding; frames keep interval_ms.
type wireMessage struct {
	Type       string          `json:"type"`
	Frame      *wireFrame      `json:"frame"`
	Difficulty game.Difficulty `json:"difficulty"`
	Best       *int            `json:"best"`
}

type wireFrame struct {
	Snake      []game.Point    `json:"snake"`
	Food       *game.Point     `json:"food"`
	Obstacles  []game.Point    `json:"obstacles"`
	Score      int             `json:"score"`
	Running    bool            `json:"running"`
	Difficulty game.Difficulty `json:"difficulty"`
	IntervalMs int64           `json:"interval_ms"`
	Outcome    game.Outcome    `json:"outcome"`
	Cause      game.Cause      `json:"cause"`
	Message    string          `json:"message"`
}

func slowConfig() game.Config {
	cfg := game.DefaultConfig()
	// Long intervals keep the schedule out of the way of scripted checks.
	for d, s := range cfg.Difficulties {
		s.Interval = time.Hour
		cfg.Difficulties[d] = s
	}
	return cfg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg clientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWS_HelloThenHardStart(t *testing.T) {
	store := scores.NewMemory(game.HighScores{game.Hard: 40})
	srv := httptest.NewServer(New(Config{Game: slowConfig(), Store: store}).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	hello := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "difficulty" })
	if hello.Difficulty != game.Normal || hello.Best == nil || *hello.Best != 0 {
		t.Fatalf("hello=%+v", hello)
	}
	idle := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "frame" })
	if idle.Frame.Running || idle.Frame.Message != "Press Start to Play" {
		t.Fatalf("idle frame=%+v", idle.Frame)
	}

	send(t, conn, clientMessage{Type: "difficulty", Difficulty: "hard"})
	picked := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "difficulty" })
	if picked.Difficulty != game.Hard || *picked.Best != 40 {
		t.Fatalf("difficulty reply=%+v", picked)
	}

	send(t, conn, clientMessage{Type: "start"})
	started := readUntil(t, conn, func(m wireMessage) bool { return m.Type == "frame" && m.Frame.Running })
	f := started.Frame
	if len(f.Snake) != 3 || f.Snake[0] != (game.Point{X: 5, Y: 10}) {
		t.Fatalf("snake=%v", f.Snake)
	}
	if len(f.Obstacles) != 6 || f.Food == nil || f.IntervalMs != int64(time.Hour/time.Millisecond) {
		t.Fatalf("started frame=%+v", f)
	}

	// Locked while running: the engine keeps hard and nothing is echoed.
	send(t, conn, clientMessage{Type: "difficulty", Difficulty: "normal"})
	send(t, conn, clientMessage{Type: "start"})
	send(t, conn, clientMessage{Type: "direction", Direction: "up"})
	// A second start and a direction change emit nothing, and the next tick
	// is an hour away.
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var extra wireMessage
	if err := conn.ReadJSON(&extra); err == nil {
		t.Fatalf("unexpected message while running: %+v", extra)
	}
}

func TestWS_PlaysToGameOver(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.Difficulties[game.Normal] = game.DifficultySettings{Interval: 2 * time.Millisecond}

	srv := httptest.NewServer(New(Config{Game: cfg, Store: scores.NewMemory(nil)}).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	readUntil(t, conn, func(m wireMessage) bool { return m.Type == "frame" })
	send(t, conn, clientMessage{Type: "start"})
	send(t, conn, clientMessage{Type: "direction", Direction: "up"})

	over := readUntil(t, conn, func(m wireMessage) bool {
		return m.Type == "frame" && !m.Frame.Running && m.Frame.Outcome != game.OutcomeIdle
	})
	if over.Frame.Cause != game.CauseWall {
		t.Fatalf("cause=%s frame=%+v", over.Frame.Cause, over.Frame)
	}
	if !strings.HasSuffix(over.Frame.Message, "Press Start to Play Again") {
		t.Fatalf("message=%q", over.Frame.Message)
	}
}

func TestAPI_HighScoresAndConfig(t *testing.T) {
	s := New(Config{Game: game.DefaultConfig(), Store: scores.NewMemory(game.HighScores{game.Medium: 80})})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/highscores", nil))
	var hs map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &hs); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	if hs["medium"] != 80 || hs["normal"] != 0 || len(hs) != 3 {
		t.Fatalf("highscores=%v", hs)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var cfg configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 20 || cfg.CellSize != 20 || len(cfg.Difficulties) != 3 {
		t.Fatalf("config=%+v", cfg)
	}
	if hard := cfg.Difficulties[2]; hard.Name != game.Hard || hard.IntervalMs != 60 || hard.Obstacles != 6 {
		t.Fatalf("hard=%+v", hard)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status=%d", rec.Code)
	}
}

type fakeStats struct{ err error }

func (f fakeStats) Summarize(context.Context) ([]stats.DifficultySummary, error) {
	return []stats.DifficultySummary{{Difficulty: "normal", Runs: 4, Best: 120}}, f.err
}

func (f fakeStats) TopRuns(_ context.Context, limit int) ([]stats.Run, error) {
	return []stats.Run{{RunID: "r1", Score: 120}}[:min(limit, 1)], nil
}

func TestAPI_Stats(t *testing.T) {
	rec := httptest.NewRecorder()
	New(Config{Game: game.DefaultConfig(), Store: scores.NewMemory(nil)}).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no archive: status=%d", rec.Code)
	}

	h := New(Config{Game: game.DefaultConfig(), Store: scores.NewMemory(nil), Stats: fakeStats{}}).Handler()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats?limit=5", nil))
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	if len(resp.Difficulties) != 1 || resp.Difficulties[0].Best != 120 || len(resp.Top) != 1 {
		t.Fatalf("stats=%+v", resp)
	}

	h = New(Config{Game: game.DefaultConfig(), Store: scores.NewMemory(nil), Stats: fakeStats{err: errors.New("boom")}}).Handler()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failing stats: status=%d", rec.Code)
	}
}

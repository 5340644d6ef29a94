// Package server plays classic Snake in the browser. Each websocket owns one
// engine; frames go out as JSON and input comes back the same way.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brensch/snekclassic/engine"
	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/logging"
	"github.com/brensch/snekclassic/stats"
	"github.com/gorilla/websocket"
)

// StatsSource answers the /api/stats endpoint. *stats.DB satisfies it.
type StatsSource interface {
	Summarize(ctx context.Context) ([]stats.DifficultySummary, error)
	TopRuns(ctx context.Context, limit int) ([]stats.Run, error)
}

type Config struct {
	Game     game.Config
	Store    engine.ScoreStore
	Recorder engine.RunRecorder // optional
	Stats    StatsSource        // optional
	// StaticDir is served at / with index.html as the fallback.
	StaticDir string
	Log       *slog.Logger
}

// Server holds what every session shares: the score store, the archive and
// the game geometry.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/highscores", s.handleHighScores)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/stats", s.handleStats)
	if strings.TrimSpace(s.cfg.StaticDir) != "" {
		mux.Handle("/", spaHandler{staticPath: s.cfg.StaticDir, indexPath: filepath.Join(s.cfg.StaticDir, "index.html")})
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "err", err)
		return
	}
	sess, err := newSession(conn, s.cfg, s.log.With("remote", r.RemoteAddr))
	if err != nil {
		s.log.Error("session setup failed", "err", err)
		_ = conn.Close()
		return
	}
	sess.run()
}

func (s *Server) handleHighScores(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	hs, err := s.cfg.Store.Load()
	if err != nil {
		s.log.Warn("failed to load high scores", "err", err)
	}
	writeJSON(w, hs.Normalize())
}

type difficultyInfo struct {
	Name       game.Difficulty `json:"name"`
	IntervalMs int64           `json:"interval_ms"`
	Obstacles  int             `json:"obstacles"`
}

type configResponse struct {
	Width        int32            `json:"width"`
	Height       int32            `json:"height"`
	CellSize     int32            `json:"cell_size"`
	Difficulties []difficultyInfo `json:"difficulties"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	g := s.cfg.Game
	resp := configResponse{Width: g.Width, Height: g.Height, CellSize: g.CellSize}
	for _, d := range game.Difficulties {
		set := g.Difficulties[d]
		resp.Difficulties = append(resp.Difficulties, difficultyInfo{
			Name:       d,
			IntervalMs: set.Interval.Milliseconds(),
			Obstacles:  set.Obstacles,
		})
	}
	writeJSON(w, resp)
}

type statsResponse struct {
	Difficulties []stats.DifficultySummary `json:"difficulties"`
	Top          []stats.Run               `json:"top"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.cfg.Stats == nil {
		http.Error(w, "run archive not configured", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	summary, err := s.cfg.Stats.Summarize(ctx)
	if err != nil {
		s.log.Error("stats summarize failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	top, err := s.cfg.Stats.TopRuns(ctx, parseIntQuery(r, "limit", 10))
	if err != nil {
		s.log.Error("stats top runs failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, statsResponse{Difficulties: summary, Top: top})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Clean(r.URL.Path)
	if path == "/" {
		http.ServeFile(w, r, h.indexPath)
		return
	}
	candidate := filepath.Join(h.staticPath, strings.TrimPrefix(path, "/"))
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}
	http.ServeFile(w, r, h.indexPath)
}

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

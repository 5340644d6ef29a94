package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/brensch/snekclassic/engine"
	"github.com/brensch/snekclassic/game"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// clientMessage is what the browser sends.
type clientMessage struct {
	Type       string `json:"type"` // start, direction, difficulty
	Direction  string `json:"direction,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// serverMessage is what the browser receives.
type serverMessage struct {
	Type       string          `json:"type"` // frame, difficulty
	Frame      *game.Snapshot  `json:"frame,omitempty"`
	Difficulty game.Difficulty `json:"difficulty,omitempty"`
	Best       *int            `json:"best,omitempty"`
}

// session couples one websocket to one engine. Frames from the engine's
// schedule are queued on send and written by a single writer goroutine.
type session struct {
	conn *websocket.Conn
	eng  *engine.Engine
	log  *slog.Logger

	send chan serverMessage
	done chan struct{}
}

func newSession(conn *websocket.Conn, cfg Config, log *slog.Logger) (*session, error) {
	s := &session{
		conn: conn,
		log:  log,
		send: make(chan serverMessage, sendBuffer),
		done: make(chan struct{}),
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithFrameHandler(s.pushFrame),
	}
	if cfg.Store != nil {
		opts = append(opts, engine.WithStore(cfg.Store))
	}
	if cfg.Recorder != nil {
		opts = append(opts, engine.WithRecorder(cfg.Recorder))
	}
	eng, err := engine.New(cfg.Game, opts...)
	if err != nil {
		return nil, err
	}
	s.eng = eng
	return s, nil
}

// run blocks until the client goes away.
func (s *session) run() {
	go s.writeLoop()

	snap := s.eng.Snapshot()
	best := snap.HighScore
	s.queue(serverMessage{Type: "difficulty", Difficulty: snap.Difficulty, Best: &best})
	s.queue(serverMessage{Type: "frame", Frame: &snap})

	defer func() {
		s.eng.Close()
		close(s.done)
		_ = s.conn.Close()
		s.log.Debug("session closed")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("bad client message", "err", err)
			continue
		}
		s.handle(msg)
	}
}

func (s *session) handle(msg clientMessage) {
	switch msg.Type {
	case "start":
		s.eng.Start()
	case "direction":
		d, ok := game.ParseDirection(msg.Direction)
		if !ok {
			s.log.Debug("unknown direction", "direction", msg.Direction)
			return
		}
		s.eng.ChangeDirection(d)
	case "difficulty":
		d, ok := game.ParseDifficulty(msg.Difficulty)
		if !ok {
			s.log.Debug("unknown difficulty", "difficulty", msg.Difficulty)
			return
		}
		best, ok := s.eng.SetDifficulty(d)
		if !ok {
			return
		}
		s.queue(serverMessage{Type: "difficulty", Difficulty: d, Best: &best})
	default:
		s.log.Debug("unknown message type", "type", msg.Type)
	}
}

func (s *session) pushFrame(snap game.Snapshot) {
	s.queue(serverMessage{Type: "frame", Frame: &snap})
}

// queue never blocks the engine; frames for a slow client are dropped.
func (s *session) queue(msg serverMessage) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		s.log.Debug("client too slow; frame dropped")
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Debug("write failed", "err", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}

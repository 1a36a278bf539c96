// Package observer streams chunk residency changes to websocket clients, for
// renderers and debug tools that live outside the engine process.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/chunk"
	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/core/event"
)

const Version = 1

// Message is one frame sent to every client.
type Message struct {
	Version   int      `json:"v"`
	Type      string   `json:"type"`
	Chunk     [2]int32 `json:"chunk"`
	Triangles int      `json:"triangles,omitempty"`
	Trees     int      `json:"trees,omitempty"`
	HasWater  bool     `json:"has_water,omitempty"`
	BuildMs   float64  `json:"build_ms,omitempty"`
	Failures  int      `json:"failures,omitempty"`
}

type client struct {
	id  uint64
	out chan []byte
}

// Server fans chunk events out to connected clients. Broadcast never blocks
// the caller: a client whose queue is full misses the frame.
type Server struct {
	log *zap.Logger
	cfg config.ObserverConfig

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64
	stats    atomic.Pointer[[]byte]

	mu      sync.Mutex
	clients map[uint64]*client
}

func NewServer(cfg config.ObserverConfig, log *zap.Logger) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		log: log.With(zap.String("component", "observer")),
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
		clients: make(map[uint64]*client),
	}
}

// Subscribe forwards every chunk event on bus to the clients.
func (s *Server) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e chunk.PoppedIn) {
		s.Broadcast(Message{Type: "pop_in", Chunk: pair(e.Index), Triangles: e.Triangles, Trees: e.Trees, HasWater: e.HasWater})
	})
	event.Subscribe(bus, func(e chunk.PoppedOut) {
		s.Broadcast(Message{Type: "pop_out", Chunk: pair(e.Index)})
	})
	event.Subscribe(bus, func(e chunk.Streamed) {
		s.Broadcast(Message{Type: "streamed", Chunk: pair(e.Index), BuildMs: e.BuildMs, HasWater: e.HasWater})
	})
	event.Subscribe(bus, func(e chunk.Failed) {
		s.Broadcast(Message{Type: "failed", Chunk: pair(e.Index), Failures: e.Failures})
	})
	event.Subscribe(bus, func(e chunk.Nuked) {
		s.Broadcast(Message{Type: "nuked", Chunk: pair(e.Index)})
	})
	event.Subscribe(bus, func(e chunk.Outdated) {
		s.Broadcast(Message{Type: "outdated", Chunk: pair(e.Index)})
	})
}

func pair(idx chunk.Index) [2]int32 { return [2]int32{idx.X, idx.Y} }

func (s *Server) Broadcast(m Message) {
	m.Version = Version
	b, err := json.Marshal(m)
	if err != nil {
		s.log.Error("encode observer message", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		select {
		case c.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// PublishStats stores v as the body served on /stats. Call from the tick
// loop; HTTP handlers only read the encoded copy.
func (s *Server) PublishStats(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode stats", zap.Error(err))
		return
	}
	s.stats.Store(&b)
}

// Clients is the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped counts frames skipped because a client fell behind.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) join() *client {
	c := &client{id: s.nextID.Add(1), out: make(chan []byte, s.cfg.QueueSize)}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) leave(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}

// Mux serves /ws (event stream) and /stats (latest published stats).
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.WSHandler())
	mux.HandleFunc("/stats", s.StatsHandler())
	return mux
}

func (s *Server) StatsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b := s.stats.Load()
		if b == nil {
			http.Error(rw, "no stats yet", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write(*b)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := s.join()
		defer s.leave(c)
		s.log.Debug("observer connected", zap.Uint64("client", c.id), zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Clients never send anything meaningful; reading detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Debug("observer disconnected", zap.Uint64("client", c.id))
	}
}

// ListenAndServe serves Mux on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Mux(), ReadHeaderTimeout: 5 * time.Second}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("observer listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

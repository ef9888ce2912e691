// Package editor bridges a browser text editor to a sync engine over a
// WebSocket. Every connection edits its own document.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"storypaint/internal/engine"
	"storypaint/internal/importer"
	"storypaint/internal/logitem"
	"storypaint/internal/observe"
	"storypaint/internal/registry"
)

const (
	MsgLoad     = "load"
	MsgChange   = "change"
	MsgFlush    = "flush"
	MsgSnapshot = "snapshot"
	MsgPrune    = "prune"
	MsgReset    = "reset"

	MsgTextSet = "textSet"
	MsgParsed  = "parsed"
	MsgSynced  = "synced"
	MsgPruned  = "pruned"
	MsgError   = "error"
)

const writeTimeout = 5 * time.Second

// DefaultMaxFrameBytes bounds one inbound frame. Change frames carry the
// whole document, so the limit has to fit the largest log being edited.
const DefaultMaxFrameBytes = 8 << 20

// Inbound is a frame sent by the editor. Ranges are [start, end) byte
// offsets.
type Inbound struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	OldRange [2]int `json:"oldRange"`
	NewRange [2]int `json:"newRange"`
}

type Outbound struct {
	Type    string              `json:"type"`
	Text    string              `json:"text,omitempty"`
	Items   []logitem.LogItem   `json:"items,omitempty"`
	Chars   []logitem.CharItem  `json:"chars,omitempty"`
	Index   []logitem.IndexInfo `json:"index,omitempty"`
	Outcome string              `json:"outcome,omitempty"`
	State   string              `json:"state,omitempty"`
	Error   string              `json:"error,omitempty"`
}

type Options struct {
	Pipeline *importer.Pipeline
	Location *time.Location
	DiceTag  bool
	Palette  []string
	Metrics  *observe.Metrics
	// MaxFrameBytes is the inbound frame size limit. Zero means
	// DefaultMaxFrameBytes.
	MaxFrameBytes int64
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

type Server struct {
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
	nextID atomic.Int64
}

func NewServer(opts Options) *Server {
	if opts.Pipeline == nil {
		opts.Pipeline = importer.NewPipeline(importer.WithMetrics(opts.Metrics))
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = DefaultMaxFrameBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if opts.MetricsHandler != nil {
		s.mux.Handle("/metrics", opts.MetricsHandler)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("editor: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("editor bridge listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("editor: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) newEngine() *engine.Engine {
	return engine.New(
		engine.WithPipeline(s.opts.Pipeline),
		engine.WithRegistry(registry.New(s.opts.Palette)),
		engine.WithLocation(s.opts.Location),
		engine.WithDiceTag(s.opts.DiceTag),
		engine.WithMetrics(s.opts.Metrics),
		engine.WithLogger(s.logger),
	)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.opts.MaxFrameBytes)

	id := s.nextID.Add(1)
	logger := s.logger.With("session", id)
	ctx := r.Context()

	s.opts.Metrics.SessionOpened(ctx)
	defer s.opts.Metrics.SessionClosed(context.Background())
	logger.Info("editor session opened", "remote", r.RemoteAddr)

	sess := &session{conn: conn, engine: s.newEngine(), logger: logger}
	defer sess.engine.Dispose()
	sess.engine.OnTextSet(func(text string) {
		sess.send(ctx, Outbound{Type: MsgTextSet, Text: text})
	})
	sess.engine.OnParsed(func(snap engine.Snapshot) {
		sess.send(ctx, Outbound{Type: MsgParsed, Items: snap.Items, Chars: snap.Chars})
	})

	err = sess.run(ctx)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("editor session ended", "err", err)
		}
	}
	logger.Info("editor session closed")
}

type session struct {
	conn     *websocket.Conn
	engine   *engine.Engine
	logger   *slog.Logger
	writeErr error
}

func (s *session) run(ctx context.Context) error {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		var msg Inbound
		if typ != websocket.MessageText {
			err = errors.New("binary frames are not supported")
		} else {
			err = json.Unmarshal(data, &msg)
		}
		if err != nil {
			s.logger.Warn("malformed frame", "err", err)
			s.send(ctx, Outbound{Type: MsgError, Error: "malformed frame: " + err.Error()})
		} else {
			s.handle(ctx, msg)
		}
		if s.writeErr != nil {
			return s.writeErr
		}
	}
}

func (s *session) handle(ctx context.Context, msg Inbound) {
	switch msg.Type {
	case MsgLoad:
		s.engine.Load(importer.NormalizeNewlines(msg.Text))
	case MsgChange:
		// CRLF text no longer lines up with the ranges; the engine then
		// falls back to a full import of the normalized text.
		outcome := s.engine.SyncChange(
			importer.NormalizeNewlines(msg.Text),
			engine.Range{Start: msg.OldRange[0], End: msg.OldRange[1]},
			engine.Range{Start: msg.NewRange[0], End: msg.NewRange[1]},
		)
		s.send(ctx, Outbound{
			Type:    MsgSynced,
			Outcome: outcome.String(),
			State:   s.engine.State().String(),
			Items:   s.engine.Snapshot().Items,
			Index:   s.engine.Index(),
		})
	case MsgFlush:
		s.engine.Flush()
	case MsgSnapshot:
		snap := s.engine.Snapshot()
		s.send(ctx, Outbound{Type: MsgParsed, Items: snap.Items, Chars: snap.Chars})
	case MsgPrune:
		removed := s.engine.PruneCharacters()
		s.send(ctx, Outbound{Type: MsgPruned, Chars: removed})
	case MsgReset:
		s.engine.Reset()
		s.send(ctx, Outbound{Type: MsgTextSet})
	default:
		s.logger.Warn("unknown message type", "type", msg.Type)
		s.send(ctx, Outbound{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func (s *session) send(ctx context.Context, msg Outbound) {
	if s.writeErr != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, s.conn, msg); err != nil {
		s.writeErr = err
	}
}

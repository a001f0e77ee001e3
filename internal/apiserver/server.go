// Package apiserver exposes the chat pipeline and live document views over
// HTTP: an SSE chat endpoint and a websocket per mounted document.
package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"contentpilot/internal/action"
	"contentpilot/internal/content"
	"contentpilot/internal/executor"
	"contentpilot/internal/live"
	"contentpilot/internal/logging"
	"contentpilot/internal/reconcile"
	"contentpilot/internal/session"
	"contentpilot/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server wires the session, executor, store, and live feed behind HTTP.
type Server struct {
	addr    string
	session *session.Session
	exec    *executor.Executor
	store   content.Store
	feed    live.Feed
	log     *zap.Logger

	// one chat turn at a time; the session carries conversation state
	turnMu sync.Mutex
}

// New creates a server.
func New(addr string, sess *session.Session, exec *executor.Executor, store content.Store, feed live.Feed) *Server {
	return &Server{
		addr:    addr,
		session: sess,
		exec:    exec,
		store:   store,
		feed:    feed,
		log:     logging.L(logging.CategoryServer),
	}
}

// Router builds the gin engine. Exposed for httptest.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/chat", s.handleChat)
	r.GET("/api/documents/:id", s.handleGetDocument)
	r.GET("/ws/documents/:id", s.handleDocumentSocket)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("api server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// chatFinal is the terminal SSE frame of a chat turn.
type chatFinal struct {
	DisplayText string             `json:"displayText"`
	Actions     []action.Action    `json:"actions"`
	Outcomes    []outcomeJSON      `json:"outcomes,omitempty"`
	Partial     bool               `json:"partial,omitempty"`
	Documents   []content.Document `json:"documents,omitempty"`
}

type outcomeJSON struct {
	ActionID string `json:"actionId"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Path     string `json:"path,omitempty"`
	AssetRef string `json:"assetRef,omitempty"`
}

// handleChat runs one turn and streams it back as SSE: "delta" events for
// incremental text, one "done" event with the extracted actions and their
// execution outcomes.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	flusher, _ := c.Writer.(http.Flusher)

	var writeMu sync.Mutex
	emit := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		writeMu.Lock()
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
		if flusher != nil {
			flusher.Flush()
		}
		writeMu.Unlock()
	}

	s.turnMu.Lock()
	turn := s.session.Run(c.Request.Context(), req.Message, func(delta string) {
		emit("delta", gin.H{"text": delta})
	})
	s.turnMu.Unlock()

	if turn.Cancelled {
		emit("done", chatFinal{DisplayText: turn.DisplayText, Partial: true})
		return
	}

	outcomes := s.exec.Execute(c.Request.Context(), turn.Record)

	final := chatFinal{
		DisplayText: turn.DisplayText,
		Actions:     turn.Record.List(),
		Partial:     turn.Partial,
	}
	for _, o := range outcomes {
		oj := outcomeJSON{
			ActionID: o.ActionID,
			Message:  o.Message,
			Path:     o.Path,
			AssetRef: o.AssetRef,
		}
		if o.Err != nil {
			oj.Error = o.Err.Error()
		}
		final.Outcomes = append(final.Outcomes, oj)
		final.Documents = append(final.Documents, o.Results...)
	}
	emit("done", final)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err == content.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The server fronts a trusted editor UI; origin policy belongs to the
	// reverse proxy in front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sectionsFrame is what the socket pushes on every reconciled change.
type sectionsFrame struct {
	DocumentID string            `json:"documentId"`
	Sections   []reconcile.Block `json:"sections"`
}

// handleDocumentSocket mounts a live view over one document and pushes its
// reconciled section list whenever a live event changes it.
func (s *Server) handleDocumentSocket(c *gin.Context) {
	docID := c.Param("id")

	doc, err := s.store.Get(c.Request.Context(), docID)
	if err == content.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	v := view.NewDocumentView(docID, doc.Sections)
	events, unsubscribe := s.feed.Subscribe(ctx)
	defer unsubscribe()

	// Reads only serve to detect the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(sections []reconcile.Block) error {
		return conn.WriteJSON(sectionsFrame{DocumentID: docID, Sections: sections})
	}
	if err := send(v.Sections()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !v.ApplyUpdate(ev) {
				continue
			}
			if err := send(v.Sections()); err != nil {
				s.log.Debug("websocket write failed, closing",
					zap.String("document", docID), zap.Error(err))
				return
			}
		}
	}
}

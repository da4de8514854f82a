// Package devserver is a reference "thin browser binding" host: a local
// HTTP + WebSocket server that loads one compiled space, serves its
// render() output as JSON, and pushes a fresh Surface tree to every
// connected browser client after each dispatch_action. It exists to
// exercise the ABI a real embedding would use, not as a production host
// — no auth, no multi-space routing, one evaluator per process.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"pepl/internal/eval"
	"pepl/internal/value"
)

// Server binds one running Evaluator to an HTTP+WebSocket endpoint.
// pushView, if set, is re-rendered and broadcast to every client after a
// dispatch_action call commits; an empty pushView disables broadcasting
// (HTTP polling still works).
type Server struct {
	ev       *eval.Evaluator
	pushView string

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
}

// New wraps an already-initialized Evaluator. pushView names the view
// broadcast after every successful dispatch; pass "" to disable pushes.
func New(ev *eval.Evaluator, pushView string) *Server {
	return &Server{
		ev:       ev,
		pushView: pushView,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  map[string]*websocket.Conn{},
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/view/", s.handleView)
	mux.HandleFunc("/dispatch/", s.handleDispatch)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves addr until ctx is canceled, then shuts down gracefully.
// The listener and the shutdown watcher run under one errgroup the way
// a process with more than one long-lived goroutine and a single
// failure path is usually wired, so either a listen error or a
// cancellation tears the other half down too.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("devserver: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, value.ToJSON(s.ev.State()))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/view/")
	if name == "" {
		http.Error(w, "missing view name", http.StatusBadRequest)
		return
	}
	args, err := decodeArgs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	surf, trap, err := s.ev.RenderView(name, args)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if trap != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"trap": trap})
		return
	}
	writeJSON(w, http.StatusOK, value.SurfaceNodeToJSON(surf.Root))
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "dispatch requires POST", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/dispatch/")
	if name == "" {
		http.Error(w, "missing action name", http.StatusBadRequest)
		return
	}
	args, err := decodeArgs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome, err := s.ev.DispatchAction(name, args)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, outcomeJSON(outcome))
	if outcome.Trap == nil && outcome.InvariantFailed == "" {
		s.broadcastView()
	}
}

func outcomeJSON(o *eval.CommitOutcome) map[string]interface{} {
	if o.Trap != nil {
		return map[string]interface{}{"trap": map[string]interface{}{"kind": o.Trap.Kind, "message": o.Trap.Message}}
	}
	if o.InvariantFailed != "" {
		return map[string]interface{}{"invariant_failed": o.InvariantFailed}
	}
	return map[string]interface{}{"committed": true}
}

func decodeArgs(r *http.Request) ([]value.Value, error) {
	var raw []interface{}
	if r.ContentLength == 0 {
		return nil, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding args: %w", err)
	}
	out := make([]value.Value, len(raw))
	for i, v := range raw {
		out[i] = fromJSON(v)
	}
	return out, nil
}

func fromJSON(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil{}
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.Str(t)
	case []interface{}:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromJSON(e)
		}
		return value.NewList(elems)
	case map[string]interface{}:
		names := make([]string, 0, len(t))
		for k := range t {
			names = append(names, k)
		}
		vals := make([]value.Value, len(names))
		for i, n := range names {
			vals[i] = fromJSON(t[n])
		}
		return value.NewRecord(names, vals)
	default:
		return value.Nil{}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleWebSocket registers one browser client, keyed by a fresh uuid,
// and holds the connection open until the client disconnects. Clients
// never send anything the server acts on; the read loop exists only to
// notice a close frame and drop the client's registry entry.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("devserver: websocket upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	log.Printf("devserver: client %s connected", id)

	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		conn.Close()
		log.Printf("devserver: client %s disconnected", id)
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcastView re-renders pushView (if set) and pushes the resulting
// Surface tree to every connected client, dropping any client whose
// write fails rather than letting one dead socket block the rest.
func (s *Server) broadcastView() {
	if s.pushView == "" {
		return
	}
	surf, trap, err := s.ev.RenderView(s.pushView, nil)
	if err != nil || trap != nil {
		return
	}
	payload, err := json.Marshal(value.SurfaceNodeToJSON(surf.Root))
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.Close()
			delete(s.clients, id)
		}
	}
}

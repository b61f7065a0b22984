// Router wires the HTTP routes and bounds concurrent simplifications.
//
// DESIGN: Routes (all JSON):
//
//	POST   /api/paraphrase       simplify {text}
//	GET    /api/phrases          list user rules
//	POST   /api/phrases          add a user rule
//	DELETE /api/phrases/{id}     remove a user rule
//	GET    /api/ws               simplify over WebSocket
//	GET    /api/stats            counter snapshot
//	GET    /health               liveness
//
// Simplifications run through a fixed-size Pool so a burst of large inputs
// cannot occupy every CPU at once.
package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routes builds the chi router with the middleware chain.
func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(g.panicRecovery)
	r.Use(g.rateLimit)
	r.Use(g.loggingMiddleware)
	r.Use(g.security)

	r.Get("/health", g.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/paraphrase", g.handleParaphrase)
		r.Get("/phrases", g.handleListPhrases)
		r.Post("/phrases", g.handleCreatePhrase)
		r.Delete("/phrases/{id}", g.handleDeletePhrase)
		r.Get("/ws", g.handleWebSocket)
		r.Get("/stats", g.handleStats)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		g.writeError(w, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// Pool hands out a fixed number of simplification slots.
type Pool struct {
	slots chan struct{}
	size  int
}

func newPool(size int) *Pool {
	p := &Pool{slots: make(chan struct{}, size), size: size}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// acquire blocks until a slot is free or ctx is done.
func (p *Pool) acquire(ctx context.Context) error {
	select {
	case <-p.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() { p.slots <- struct{}{} }

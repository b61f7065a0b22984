// Simplify over WebSocket.
//
// DESIGN: Each inbound JSON message {"text": "..."} gets exactly one reply,
// either {simplifiedText, tokenMetrics} or {error}. A malformed message is
// answered with an error and the connection stays open. The connection is
// closed when the client closes it or the request context ends.
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/compresr/paraphrase-gateway/internal/monitoring"
)

// wsError is the reply for a failed message.
type wsError struct {
	Error string `json:"error"`
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Origins are checked here with the same rules as CORS.
	if origin := r.Header.Get("Origin"); origin != "" && !g.isAllowedOrigin(origin) && !sameHost(origin, r.Host) {
		g.writeError(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(g.maxParaphraseBody())

	ctx := r.Context()
	requestID := monitoring.RequestIDFromContext(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debug().Err(err).Str("request_id", requestID).Msg("websocket read ended")
			}
			return
		}

		reply := g.simplifyMessage(ctx, data)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			log.Debug().Err(err).Str("request_id", requestID).Msg("websocket write failed")
			return
		}
	}
}

// simplifyMessage runs one WebSocket message through the service.
func (g *Gateway) simplifyMessage(ctx context.Context, data []byte) any {
	text, err := parseText(data)
	if err != nil {
		g.alerts.FlagInvalidRequest(monitoring.RequestIDFromContext(ctx), err.Error())
		return wsError{Error: err.Error()}
	}

	if err := g.pool.acquire(ctx); err != nil {
		return wsError{Error: "request cancelled"}
	}
	defer g.pool.release()

	result, err := g.service.Simplify(ctx, text, monitoring.SourceWebSocket)
	if err != nil {
		_, msg := statusForError(err)
		return wsError{Error: msg}
	}
	return result
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
	"github.com/veitw/crewcall/internal/game"
)

type ConnCtx struct {
	Code     string
	PlayerID string
}

// Server pushes session events to subscribed clients. Mutations go
// through the REST API; the socket is a one-way notification channel
// plus the resume handshake.
type Server struct {
	registry *game.Registry

	mu      sync.RWMutex
	io      *socketio.Server
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
}

func New(registry *game.Registry) *Server {
	return &Server{registry: registry, members: make(map[string]map[string]socketio.Conn)}
}

// SetRegistry breaks the construction cycle: the registry needs the
// server as its Notifier, the server needs the registry for lookups.
func (srv *Server) SetRegistry(registry *game.Registry) { srv.registry = registry }

// Broadcast implements game.Notifier. Called with the session lock
// held, so it must never call back into the session.
func (srv *Server) Broadcast(code, event string, payload any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	if srv.io != nil {
		srv.io.BroadcastToRoom("/", code, event, payload)
	}
}

// SendTo implements game.Notifier for the private events (role info,
// bounty targets, watch alerts).
func (srv *Server) SendTo(code, playerID, event string, payload any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for _, c := range srv.members[code] {
		if ctx, ok := c.Context().(*ConnCtx); ok && ctx.PlayerID == playerID {
			c.Emit(event, payload)
		}
	}
}

// Mount attaches the Socket.IO server with its handlers to the given
// Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.mu.Lock()
	srv.io = io
	srv.mu.Unlock()

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// session:subscribe
	// Binds the connection to a session via the player's token and
	// returns the full state snapshot scoped to that player.
	io.OnEvent("/", "session:subscribe", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		Token       string `json:"token"`
	}) map[string]any {
		sess, err := srv.registry.Get(payload.SessionCode)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		p, err := sess.PlayerByToken(payload.Token)
		if err != nil {
			return srv.err(s, "unauthorized", "Invalid player token")
		}
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
			s.Leave(ctx.Code)
		}
		s.SetContext(&ConnCtx{Code: sess.Code, PlayerID: p.ID})
		s.Join(sess.Code)
		srv.addMember(sess.Code, s)
		sess.SetConnected(p.ID, true)
		log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("playerId", p.ID).Msg("session:subscribe")

		state, err := sess.StateFor(p.ID)
		if err != nil {
			return srv.err(s, "player_not_found", "Player not found")
		}
		s.Emit("session:state", state)
		return map[string]any{"ok": true, "playerId": p.ID}
	})

	// session:state
	// On-demand resync for a subscribed connection.
	io.OnEvent("/", "session:state", func(s socketio.Conn) map[string]any {
		ctx, _ := s.Context().(*ConnCtx)
		if ctx == nil || ctx.Code == "" {
			return srv.err(s, "not_subscribed", "Subscribe to a session first")
		}
		sess, err := srv.registry.Get(ctx.Code)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		state, err := sess.StateFor(ctx.PlayerID)
		if err != nil {
			return srv.err(s, "player_not_found", "Player not found")
		}
		s.Emit("session:state", state)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
			if sess, err := srv.registry.Get(ctx.Code); err == nil && !srv.hasConnection(ctx.Code, ctx.PlayerID) {
				sess.SetConnected(ctx.PlayerID, false)
			}
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, code)
		}
	}
}

// hasConnection reports whether the player still has another live
// socket; a page reload must not mark them disconnected.
func (srv *Server) hasConnection(code, playerID string) bool {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for _, c := range srv.members[code] {
		if ctx, ok := c.Context().(*ConnCtx); ok && ctx.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

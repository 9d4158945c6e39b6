package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/veitw/crewcall/internal/game"
	"github.com/veitw/crewcall/internal/metrics"
)

// API is the REST transport over the game core. All mutations
// authenticate with the opaque player token issued at join time.
type API struct {
	registry *game.Registry
	baseURL  string // public URL embedded in join QR codes
}

func New(registry *game.Registry, baseURL string) *API {
	return &API{registry: registry, baseURL: strings.TrimRight(baseURL, "/")}
}

// Mount registers all routes on the given engine.
func (a *API) Mount(r *gin.Engine) {
	api := r.Group("/api")

	// lobby
	api.POST("/games", a.createGame)
	api.POST("/games/:code/join", a.joinGame)
	api.GET("/games/:code", a.gameState)
	api.GET("/games/:code/qr", a.joinQR)
	api.PATCH("/games/:code/settings", a.updateSettings)
	api.POST("/games/:code/tasks", a.addTask)
	api.DELETE("/games/:code/tasks/:name", a.removeTask)
	api.POST("/games/:code/leave", a.leaveGame)
	api.POST("/reconnect", a.reconnect)
	api.GET("/players/me", a.me)

	// game
	api.POST("/games/:code/start", a.startGame)
	api.POST("/games/:code/end", a.endGame)
	api.POST("/games/:code/tasks/:taskId/toggle", a.toggleTask)
	api.POST("/games/:code/die", a.markDead)
	api.POST("/games/:code/ability", a.invokeAbility)

	// meetings
	api.POST("/games/:code/meeting/start", a.startMeeting)
	api.POST("/games/:code/meeting/start_voting", a.startVoting)
	api.POST("/games/:code/vote", a.castVote)
	api.POST("/games/:code/meeting/timer_expired", a.timerExpired)
	api.POST("/games/:code/meeting/end", a.endMeeting)

	// sabotage
	api.POST("/games/:code/sabotage/start", a.startSabotage)
	api.POST("/games/:code/sabotage/fix", a.sabotageAction)
	api.POST("/games/:code/sabotage/check_timeout", a.checkSabotageTimeout)
	api.GET("/games/:code/sabotage/status", a.sabotageStatus)
}

func statusFor(kind game.ErrorKind) int {
	switch kind {
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindForbidden:
		return http.StatusForbidden
	case game.KindConflict, game.KindExhausted:
		return http.StatusConflict
	case game.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(c *gin.Context, err error) {
	var gerr *game.Error
	if errors.As(err, &gerr) {
		c.JSON(statusFor(gerr.Kind), gin.H{"kind": string(gerr.Kind), "reason": gerr.Reason})
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "reason": "internal error"})
}

func playerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := c.GetHeader("X-Player-Token"); t != "" {
		return t
	}
	return c.Query("token")
}

// session resolves the :code param; authed additionally resolves the
// caller from the player token.
func (a *API) session(c *gin.Context) (*game.Session, bool) {
	sess, err := a.registry.Get(c.Param("code"))
	if err != nil {
		writeErr(c, err)
		return nil, false
	}
	return sess, true
}

func (a *API) authed(c *gin.Context) (*game.Session, *game.Player, bool) {
	sess, ok := a.session(c)
	if !ok {
		return nil, nil, false
	}
	p, err := sess.PlayerByToken(playerToken(c))
	if err != nil {
		writeErr(c, err)
		return nil, nil, false
	}
	return sess, p, true
}

func (a *API) createGame(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	sess, host, err := a.registry.Create(req.Name, game.DefaultSettings())
	if err != nil {
		writeErr(c, err)
		return
	}
	metrics.SessionsActive.Set(float64(a.registry.Len()))
	log.Info().Str("code", sess.Code).Msg("game created")
	c.JSON(http.StatusCreated, gin.H{
		"code":     sess.Code,
		"playerId": host.ID,
		"token":    host.Token,
		"settings": sess.Settings(),
	})
}

func (a *API) joinGame(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	p, err := sess.Join(req.Name)
	if err != nil {
		writeErr(c, err)
		return
	}
	log.Info().Str("code", sess.Code).Str("playerId", p.ID).Msg("player joined")
	c.JSON(http.StatusCreated, gin.H{"playerId": p.ID, "token": p.Token})
}

func (a *API) gameState(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	// with a valid token the snapshot includes the caller's role view
	if token := playerToken(c); token != "" {
		if p, err := sess.PlayerByToken(token); err == nil {
			state, err := sess.StateFor(p.ID)
			if err == nil {
				c.JSON(http.StatusOK, state)
				return
			}
		}
	}
	c.JSON(http.StatusOK, sess.State())
}

func (a *API) joinQR(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	url := a.baseURL + "/join/" + sess.Code
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (a *API) updateSettings(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var patch game.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	settings, err := sess.UpdateSettings(p.ID, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *API) addTask(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	catalog, err := sess.AddCatalogTask(p.ID, req.Name)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": catalog})
}

func (a *API) removeTask(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	catalog, err := sess.RemoveCatalogTask(p.ID, c.Param("name"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": catalog})
}

func (a *API) leaveGame(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.Leave(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	// an emptied lobby is gone for good; drop it instead of waiting for
	// the sweeper
	if sess.PlayerCount() == 0 {
		a.registry.Remove(sess.Code)
		metrics.SessionsActive.Set(float64(a.registry.Len()))
		log.Info().Str("code", sess.Code).Msg("empty session removed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// reconnect resolves a bare token to its session and full player-scoped
// state, for clients that lost everything but local storage.
func (a *API) reconnect(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "token is required"})
		return
	}
	sess, p, err := a.registry.FindByToken(req.Token)
	if err != nil {
		writeErr(c, err)
		return
	}
	state, err := sess.StateFor(p.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": sess.Code, "playerId": p.ID, "state": state})
}

func (a *API) me(c *gin.Context) {
	sess, p, err := a.registry.FindByToken(playerToken(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	state, err := sess.StateFor(p.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": sess.Code, "playerId": p.ID, "state": state})
}

func (a *API) startGame(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	notes, err := sess.Start(p.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	metrics.GamesStarted.Inc()
	log.Info().Str("code", sess.Code).Msg("game started")
	c.JSON(http.StatusOK, gin.H{"ok": true, "notes": notes})
}

func (a *API) endGame(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.EndGame(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	log.Info().Str("code", sess.Code).Msg("game ended by host")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) toggleTask(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		Done bool `json:"done"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	pct, err := sess.ToggleTask(p.ID, c.Param("taskId"), req.Done)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskPercentage": pct})
}

func (a *API) markDead(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.MarkDead(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) invokeAbility(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req game.AbilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	res, err := sess.InvokeAbility(p.ID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) startMeeting(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		Kind game.MeetingKind `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	view, err := sess.CallMeeting(p.ID, req.Kind)
	if err != nil {
		writeErr(c, err)
		return
	}
	metrics.MeetingsCalled.WithLabelValues(string(req.Kind)).Inc()
	c.JSON(http.StatusOK, view)
}

func (a *API) startVoting(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.StartVoting(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) castVote(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		TargetID string `json:"targetId"` // empty means skip
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	if err := sess.CastVote(p.ID, req.TargetID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) timerExpired(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.TimerExpired(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) endMeeting(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.EndMeeting(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) startSabotage(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		Type game.SabotageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	view, err := sess.StartSabotage(p.ID, req.Type)
	if err != nil {
		writeErr(c, err)
		return
	}
	metrics.SabotagesStarted.WithLabelValues(string(req.Type)).Inc()
	log.Info().Str("code", sess.Code).Str("type", string(req.Type)).Msg("sabotage started")
	c.JSON(http.StatusOK, view)
}

func (a *API) sabotageAction(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	var req struct {
		Action game.SabotageAction `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, &game.Error{Kind: game.KindInvalidInput, Reason: "invalid request body"})
		return
	}
	view, err := sess.ApplySabotageAction(p.ID, req.Action)
	if err != nil {
		writeErr(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusOK, gin.H{"resolved": true})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *API) checkSabotageTimeout(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	if err := sess.CheckSabotageTimeout(p.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": string(sess.Phase())})
}

func (a *API) sabotageStatus(c *gin.Context) {
	sess, p, ok := a.authed(c)
	if !ok {
		return
	}
	state, err := sess.StateFor(p.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	if state.Sabotage == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "sabotage": state.Sabotage})
}

package game

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTasks seeds a new session's task catalogue; the host can edit
// the list in the lobby.
var DefaultTasks = []string{
	"Books", "Bottle flip", "Cards", "Clean vent", "Code", "Coins",
	"Colors", "Cup stack", "Dice", "Files", "Folding", "Leaves",
	"Scooter", "Trashketball", "Water pong", "Wires",
}

// Session owns the authoritative state of one game. All mutations run
// under a single mutex so operations against a session are serialized;
// many sessions run in parallel.
type Session struct {
	Code      string
	CreatedAt time.Time

	mu       sync.Mutex
	phase    Phase
	settings Settings
	players  map[string]*Player
	byToken  map[string]*Player
	order    []string // roster in join order

	taskCatalog   []string
	crewTaskTotal int

	meeting               *Meeting
	sabotage              *Sabotage
	sabotageCooldownUntil time.Time
	meetingCooldownUntil  time.Time

	// bodies discovered through a meeting or elimination; permanently
	// ineligible for consumption
	ineligibleBodies map[string]bool

	winner    string
	winReason string

	lastActivity time.Time

	notify Notifier
	clock  func() time.Time
	onEnd  func(GameSummary)
}

func newSession(code string, settings Settings, notify Notifier, clock func() time.Time) *Session {
	catalog := make([]string, len(DefaultTasks))
	copy(catalog, DefaultTasks)
	return &Session{
		Code:             code,
		CreatedAt:        clock(),
		phase:            PhaseLobby,
		settings:         settings,
		players:          make(map[string]*Player),
		byToken:          make(map[string]*Player),
		taskCatalog:      catalog,
		ineligibleBodies: make(map[string]bool),
		lastActivity:     clock(),
		notify:           notify,
		clock:            clock,
	}
}

func newID() string { return uuid.NewString() }

func (s *Session) touchLocked() { s.lastActivity = s.clock() }

// Phase returns the session lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Winner() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner, s.winReason
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// PlayerCount reports the roster size, counting disconnected players.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Join adds a player to the lobby and returns the new player. The first
// player of a session is created through Registry.Create and is the
// host.
func (s *Session) Join(name string) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("player name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return nil, conflictf("game already started")
	}
	p := s.addPlayerLocked(name, false)
	s.touchLocked()
	s.notify.Broadcast(s.Code, EventRosterChanged, s.rosterLocked())
	return p, nil
}

func (s *Session) addPlayerLocked(name string, host bool) *Player {
	p := &Player{
		ID:        newID(),
		Token:     newID(),
		Name:      name,
		IsHost:    host,
		Connected: true,
		Alive:     true,
		JoinedAt:  s.clock(),
	}
	s.players[p.ID] = p
	s.byToken[p.Token] = p
	s.order = append(s.order, p.ID)
	return p
}

// Leave removes a player from a lobby, or marks them disconnected once
// the game is running (state must survive reconnection).
func (s *Session) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return ErrPlayerNotFound
	}
	if s.phase == PhaseLobby {
		delete(s.players, p.ID)
		delete(s.byToken, p.Token)
		for i, id := range s.order {
			if id == p.ID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		if p.IsHost && len(s.order) > 0 {
			s.players[s.order[0]].IsHost = true
		}
	} else {
		p.Connected = false
	}
	s.touchLocked()
	s.notify.Broadcast(s.Code, EventRosterChanged, s.rosterLocked())
	return nil
}

// SetConnected flips the connectivity flag; it never mutates game
// state.
func (s *Session) SetConnected(playerID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.players[playerID]; p != nil && p.Connected != connected {
		p.Connected = connected
		s.touchLocked()
		s.notify.Broadcast(s.Code, EventRosterChanged, s.rosterLocked())
	}
}

func (s *Session) playerByTokenLocked(token string) *Player { return s.byToken[token] }

// PlayerByToken resolves an opaque session token to its player.
func (s *Session) PlayerByToken(token string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byToken[token]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// UpdateSettings applies a host-submitted patch in the lobby.
func (s *Session) UpdateSettings(playerID string, patch SettingsPatch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return Settings{}, ErrPlayerNotFound
	}
	if !p.IsHost {
		return Settings{}, forbiddenf("only the host can change settings")
	}
	if s.phase != PhaseLobby {
		return Settings{}, conflictf("cannot change settings after the game started")
	}
	s.settings.apply(patch)
	s.touchLocked()
	s.notify.Broadcast(s.Code, EventSettingsChanged, s.settings)
	return s.settings, nil
}

// AddCatalogTask appends a task name to the catalogue (lobby only).
func (s *Session) AddCatalogTask(playerID, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("task name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[playerID] == nil {
		return nil, ErrPlayerNotFound
	}
	if s.phase != PhaseLobby {
		return nil, conflictf("cannot edit tasks after the game started")
	}
	for _, existing := range s.taskCatalog {
		if strings.EqualFold(existing, name) {
			return s.taskCatalog, nil
		}
	}
	s.taskCatalog = append(s.taskCatalog, name)
	s.touchLocked()
	return s.taskCatalog, nil
}

func (s *Session) RemoveCatalogTask(playerID, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[playerID] == nil {
		return nil, ErrPlayerNotFound
	}
	if s.phase != PhaseLobby {
		return nil, conflictf("cannot edit tasks after the game started")
	}
	for i, existing := range s.taskCatalog {
		if strings.EqualFold(existing, name) {
			s.taskCatalog = append(s.taskCatalog[:i], s.taskCatalog[i+1:]...)
			break
		}
	}
	s.touchLocked()
	return s.taskCatalog, nil
}

// Start assigns roles, distributes tasks and moves the session to
// playing. Host only. The returned notes describe any slot reductions
// the auto-adjust policy applied.
func (s *Session) Start(playerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if !p.IsHost {
		return nil, forbiddenf("only the host can start the game")
	}
	if s.phase != PhaseLobby {
		return nil, conflictf("game already started")
	}

	notes, err := s.assignRolesLocked()
	if err != nil {
		return nil, err
	}
	s.distributeTasksLocked()
	s.phase = PhasePlaying
	s.touchLocked()

	s.notify.Broadcast(s.Code, EventGameStarted, map[string]any{
		"players": s.rosterLocked(),
		"notes":   notes,
	})
	for _, id := range s.order {
		s.notify.SendTo(s.Code, id, EventRoleAssigned, s.roleInfoLocked(s.players[id]))
	}
	return notes, nil
}

// causeOfDeath distinguishes deaths for the hooks that care: lookout
// alerts fire only for deaths outside meetings, executioner conversion
// fires for every cause except being voted out, and bounty targets are
// auto-reassigned only when the death is publicly attributable.
type causeOfDeath string

const (
	causeVoted  causeOfDeath = "voted_out"
	causeGuess  causeOfDeath = "guessed"
	causeMarked causeOfDeath = "marked"
)

// killPlayerLocked performs a death and its side effects, except the
// vote-out win checks the tally handles itself.
func (s *Session) killPlayerLocked(p *Player, cause causeOfDeath) {
	p.Alive = false
	if s.meeting != nil {
		delete(s.meeting.Votes, p.ID)
		s.meeting.ineligible[p.ID] = true
	}
	if cause == causeVoted {
		s.ineligibleBodies[p.ID] = true
	}
	s.notify.Broadcast(s.Code, EventPlayerDied, map[string]any{
		"playerId": p.ID,
		"name":     p.Name,
		"cause":    string(cause),
	})

	// Hunters whose mark died in front of everyone get a fresh one;
	// unattributed deaths wait for the hunter's claim.
	if cause != causeMarked {
		s.reassignBountyLocked(p.ID)
	}

	if cause == causeMarked && s.meeting == nil {
		for _, id := range s.order {
			w := s.players[id]
			if w.Role == RoleLookout && w.Alive && w.WatchTargetID == p.ID {
				s.notify.SendTo(s.Code, w.ID, EventWatchAlert, map[string]any{
					"playerId": p.ID,
					"name":     p.Name,
				})
				w.WatchTargetID = ""
			}
		}
	}

	if cause != causeVoted {
		s.convertExecutionersLocked(p.ID)
	}
}

// convertExecutionersLocked silently turns an executioner into a Jester
// when their mark dies any way other than being voted out.
func (s *Session) convertExecutionersLocked(deadID string) {
	for _, id := range s.order {
		e := s.players[id]
		if e.Role == RoleExecutioner && e.Alive && e.TiedTargetID == deadID {
			e.Role = RoleJester
			e.TiedTargetID = ""
			s.notify.SendTo(s.Code, e.ID, EventRoleConverted, map[string]any{
				"role": string(RoleJester),
			})
		}
	}
}

func (s *Session) reassignBountyLocked(deadID string) {
	for _, id := range s.order {
		h := s.players[id]
		if h.Role != RoleBountyHunter || !h.Alive || h.BountyTargetID != deadID {
			continue
		}
		h.BountyTargetID = s.pickBountyTargetLocked(h)
		payload := map[string]any{"targetId": h.BountyTargetID, "kills": h.BountyKills}
		if t := s.players[h.BountyTargetID]; t != nil {
			payload["targetName"] = t.Name
		}
		s.notify.SendTo(s.Code, h.ID, EventBountyTarget, payload)
	}
}

// EndGame aborts a running game. Host only. Roles are revealed through
// the regular end-of-game broadcast; the result records "Cancelled"
// instead of a winner.
func (s *Session) EndGame(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.IsHost {
		return forbiddenf("only the host can end the game")
	}
	if s.phase != PhasePlaying && s.phase != PhaseMeeting {
		return conflictf("game is not in progress")
	}
	s.endGameLocked(winnerCancelled, "the host ended the game")
	return nil
}

// MarkDead records the caller's own death. Physical reality is the
// players' business; the session only tracks the declared outcome.
func (s *Session) MarkDead(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return ErrPlayerNotFound
	}
	if s.phase != PhasePlaying && s.phase != PhaseMeeting {
		return conflictf("game is not in progress")
	}
	if !p.Alive {
		return conflictf("already dead")
	}
	s.killPlayerLocked(p, causeMarked)
	s.touchLocked()
	s.checkWinLocked()
	return nil
}

func (s *Session) alivePlayersLocked() []*Player {
	var out []*Player
	for _, id := range s.order {
		if p := s.players[id]; p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) deadPlayersLocked() []*Player {
	var out []*Player
	for _, id := range s.order {
		if p := s.players[id]; !p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) anyConnectedLocked() bool {
	for _, p := range s.players {
		if p.Connected {
			return true
		}
	}
	return false
}

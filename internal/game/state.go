package game

import "time"

// PlayerSummary is the roster entry every participant may see. Roles
// stay hidden until the game ends.
type PlayerSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
	Alive     bool   `json:"alive"`
	Role      Role   `json:"role,omitempty"`
}

type MeetingView struct {
	Kind             MeetingKind    `json:"kind"`
	Phase            MeetingPhase   `json:"phase"`
	CallerID         string         `json:"callerId"`
	DiscussionEndsIn int            `json:"discussionEndsIn"` // seconds
	VotingEndsIn     int            `json:"votingEndsIn"`     // seconds
	WarningTime      int            `json:"warningTime"`
	VotesCast        int            `json:"votesCast"`
	VotesNeeded      int            `json:"votesNeeded"`
	YouVoted         bool           `json:"youVoted"`
	Result           *MeetingResult `json:"result,omitempty"`
}

type SabotageView struct {
	Type        SabotageType `json:"type"`
	RemainingIn int          `json:"remainingIn"` // seconds, 0 for untimed
	Holders     int          `json:"holders"`
	Switches    int          `json:"switches"`
}

// PublicState is the role-free session snapshot.
type PublicState struct {
	Code             string          `json:"code"`
	Phase            Phase           `json:"phase"`
	Settings         Settings        `json:"settings"`
	Players          []PlayerSummary `json:"players"`
	TaskCatalog      []string        `json:"taskCatalog"`
	TaskPercentage   int             `json:"taskPercentage"`
	Winner           string          `json:"winner,omitempty"`
	WinReason        string          `json:"winReason,omitempty"`
	SabotageCooldown int             `json:"sabotageCooldown"` // seconds remaining
	MeetingCooldown  int             `json:"meetingCooldown"`  // seconds remaining
}

// RoleInfo is the private payload a player receives at game start and
// on reconnection: their own role plus whatever the role's visibility
// rule reveals.
type RoleInfo struct {
	Role            Role            `json:"role"`
	Category        RoleCategory    `json:"category"`
	Tasks           []*Task         `json:"tasks"`
	FellowImpostors []PlayerSummary `json:"fellowImpostors,omitempty"`
	BountyTargetID  string          `json:"bountyTargetId,omitempty"`
	BountyKills     int             `json:"bountyKills,omitempty"`
	TiedTargetID    string          `json:"tiedTargetId,omitempty"`
	WatchTargetID   string          `json:"watchTargetId,omitempty"`
	BodiesEaten     int             `json:"bodiesEaten,omitempty"`
	EmergencyUsed   bool            `json:"emergencyUsed"`
	RemoteFixUsed   bool            `json:"remoteFixUsed,omitempty"`
	RemoteMeeting   bool            `json:"remoteMeetingUsed,omitempty"`
}

// PlayerState is the full reconnection snapshot scoped to one player's
// visibility.
type PlayerState struct {
	PublicState
	You      *RoleInfo     `json:"you,omitempty"`
	Meeting  *MeetingView  `json:"meeting,omitempty"`
	Sabotage *SabotageView `json:"sabotage,omitempty"`
}

func (s *Session) rosterLocked() []PlayerSummary {
	out := make([]PlayerSummary, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		entry := PlayerSummary{
			ID:        p.ID,
			Name:      p.Name,
			IsHost:    p.IsHost,
			Connected: p.Connected,
			Alive:     p.Alive,
		}
		if s.phase == PhaseEnded {
			entry.Role = p.Role
		}
		out = append(out, entry)
	}
	return out
}

func (s *Session) secondsUntilLocked(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	d := t.Sub(s.clock())
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

func (s *Session) publicStateLocked() PublicState {
	return PublicState{
		Code:             s.Code,
		Phase:            s.phase,
		Settings:         s.settings,
		Players:          s.rosterLocked(),
		TaskCatalog:      s.taskCatalog,
		TaskPercentage:   s.taskPercentageLocked(),
		Winner:           s.winner,
		WinReason:        s.winReason,
		SabotageCooldown: s.secondsUntilLocked(s.sabotageCooldownUntil),
		MeetingCooldown:  s.secondsUntilLocked(s.meetingCooldownUntil),
	}
}

// State returns the public snapshot.
func (s *Session) State() PublicState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicStateLocked()
}

func (s *Session) roleInfoLocked(p *Player) *RoleInfo {
	info := &RoleInfo{
		Role:          p.Role,
		Category:      p.Role.Category(),
		Tasks:         p.Tasks,
		EmergencyUsed: p.EmergencyUsed,
	}
	switch p.Role.Category() {
	case CategoryImpostor:
		for _, id := range s.order {
			other := s.players[id]
			if other.ID != p.ID && other.Role.Category() == CategoryImpostor {
				info.FellowImpostors = append(info.FellowImpostors, PlayerSummary{
					ID: other.ID, Name: other.Name, Alive: other.Alive, Role: other.Role,
				})
			}
		}
	}
	switch p.Role {
	case RoleEngineer:
		info.RemoteFixUsed = p.RemoteFixUsed
	case RoleCaptain:
		info.RemoteMeeting = p.RemoteMeetingUsed
	case RoleBountyHunter:
		info.BountyTargetID = p.BountyTargetID
		info.BountyKills = p.BountyKills
	case RoleExecutioner:
		info.TiedTargetID = p.TiedTargetID
	case RoleLookout:
		info.WatchTargetID = p.WatchTargetID
	case RoleVulture:
		info.BodiesEaten = len(p.EatenBodies)
	}
	return info
}

func (s *Session) meetingViewLocked(playerID string) *MeetingView {
	m := s.meeting
	if m == nil {
		return nil
	}
	_, voted := m.Votes[playerID]
	return &MeetingView{
		Kind:             m.Kind,
		Phase:            m.Phase,
		CallerID:         m.CallerID,
		DiscussionEndsIn: s.secondsUntilLocked(m.DiscussionEndsAt),
		VotingEndsIn:     s.secondsUntilLocked(m.VotingEndsAt),
		WarningTime:      s.settings.WarningTime,
		VotesCast:        len(m.Votes),
		VotesNeeded:      s.eligibleVoterCountLocked(),
		YouVoted:         voted,
		Result:           m.Result,
	}
}

func (s *Session) sabotageViewLocked() *SabotageView {
	sb := s.sabotage
	if sb == nil {
		return nil
	}
	return &SabotageView{
		Type:        sb.Type,
		RemainingIn: s.secondsUntilLocked(sb.Deadline),
		Holders:     len(sb.Holders),
		Switches:    sb.Switches,
	}
}

// StateFor returns the snapshot a reconnecting client requests, scoped
// to the player's own visibility.
func (s *Session) StateFor(playerID string) (PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return PlayerState{}, ErrPlayerNotFound
	}
	out := PlayerState{
		PublicState: s.publicStateLocked(),
		Meeting:     s.meetingViewLocked(playerID),
		Sabotage:    s.sabotageViewLocked(),
	}
	if s.phase != PhaseLobby && p.Role != "" {
		out.You = s.roleInfoLocked(p)
	}
	return out, nil
}

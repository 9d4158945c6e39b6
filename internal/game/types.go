package game

import (
	"time"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseMeeting Phase = "meeting"
	PhaseEnded   Phase = "ended"
)

type MeetingKind string

const (
	MeetingEmergency  MeetingKind = "emergency"
	MeetingBodyReport MeetingKind = "body_report"
)

type MeetingPhase string

const (
	MeetingGathering MeetingPhase = "gathering"
	MeetingVoting    MeetingPhase = "voting"
	MeetingResults   MeetingPhase = "results"
)

type SabotageType string

const (
	SabotageLights  SabotageType = "lights"  // untimed, one fix
	SabotageReactor SabotageType = "reactor" // timed, two simultaneous holders
	SabotageOxygen  SabotageType = "oxygen"  // timed, two switch flips
)

// Task is one entry of a player's task list. Decoy tasks are handed to
// non-crew roles so a task list never betrays a role; they count toward
// nothing.
type Task struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Decoy bool   `json:"decoy"`
}

type Player struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"isHost"`
	Connected bool      `json:"connected"`
	Alive     bool      `json:"alive"`
	Role      Role      `json:"-"`
	Tasks     []*Task   `json:"-"`
	JoinedAt  time.Time `json:"joinedAt"`

	// per-role ability state
	EmergencyUsed     bool
	RemoteFixUsed     bool
	RemoteMeetingUsed bool
	GuessLocked       bool // guessed wrong this meeting
	BountyTargetID    string
	BountyKills       int
	EatenBodies       map[string]bool
	WatchTargetID     string
	TiedTargetID      string // executioner's mark
}

type Vote struct {
	VoterID  string    `json:"voterId"`
	TargetID string    `json:"targetId"` // empty means skip
	CastAt   time.Time `json:"castAt"`
}

func (v *Vote) Skip() bool { return v.TargetID == "" }

// Meeting is the transient gathering/voting/results protocol state.
// At most one exists per session.
type Meeting struct {
	Kind             MeetingKind
	Phase            MeetingPhase
	CallerID         string
	StartedAt        time.Time
	DiscussionEndsAt time.Time
	VotingEndsAt     time.Time
	AliveAtStart     []string
	DeadAtStart      []string

	Votes        map[string]*Vote  // voterID -> vote, immutable once set
	Redirects    map[string]string // voterID -> replacement target, applied at tally
	redirectUsed map[string]bool   // politicians who spent their redirect
	ineligible   map[string]bool   // lost vote rights mid-meeting (guess deaths)

	Resolved bool
	Result   *MeetingResult
}

type MeetingOutcome string

const (
	OutcomeEliminated MeetingOutcome = "eliminated"
	OutcomeTie        MeetingOutcome = "tie"
	OutcomeSkip       MeetingOutcome = "skip"
)

type MeetingResult struct {
	Outcome        MeetingOutcome `json:"outcome"`
	EliminatedID   string         `json:"eliminatedId,omitempty"`
	EliminatedName string         `json:"eliminatedName,omitempty"`
	EliminatedRole Role           `json:"eliminatedRole,omitempty"`
	Counts         map[string]int `json:"counts"` // targetID -> weighted votes
	SkipWeight     int            `json:"skipWeight"`
	VotesCast      int            `json:"votesCast"`
}

// Sabotage is the transient active-challenge state. At most one exists
// per session.
type Sabotage struct {
	Type      SabotageType
	StartedBy string
	StartedAt time.Time
	Deadline  time.Time // zero for untimed types

	Holders  map[string]bool // reactor: players currently holding
	Switches int             // oxygen: flips accumulated
}

func (sb *Sabotage) Timed() bool { return !sb.Deadline.IsZero() }

// Settings is the per-session configuration. Values are clamped on
// mutation, never rejected.
type Settings struct {
	TasksPerPlayer int `json:"tasksPerPlayer"`
	Impostors      int `json:"impostors"`
	NeutralSlots   int `json:"neutralSlots"`
	CrewSlots      int `json:"crewSlots"` // advanced crew roles

	// RoleWeights enables probabilistic roles; weight 0 disables a role,
	// higher weights make it more likely to claim a slot of its category.
	RoleWeights map[Role]int `json:"roleWeights"`

	EnableVoting    bool `json:"enableVoting"`
	AnonymousVoting bool `json:"anonymousVoting"`
	MeetingTimer    int  `json:"meetingTimer"`    // seconds, total voting window
	DiscussionTime  int  `json:"discussionTime"`  // seconds, leading no-vote window
	WarningTime     int  `json:"warningTime"`     // seconds, final-countdown marker
	MeetingCooldown int  `json:"meetingCooldown"` // seconds between emergency meetings

	EnableSabotage   bool                  `json:"enableSabotage"`
	SabotageTypes    map[SabotageType]bool `json:"sabotageTypes"`
	ReactorTimer     int                   `json:"reactorTimer"` // seconds
	OxygenTimer      int                   `json:"oxygenTimer"`  // seconds
	SabotageCooldown int                   `json:"sabotageCooldown"`

	VultureMeals int `json:"vultureMeals"`
}

func DefaultSettings() Settings {
	return Settings{
		TasksPerPlayer: 5,
		Impostors:      1,
		NeutralSlots:   0,
		CrewSlots:      0,
		RoleWeights:    map[Role]int{},

		EnableVoting:    true,
		AnonymousVoting: true,
		MeetingTimer:    120,
		DiscussionTime:  15,
		WarningTime:     10,
		MeetingCooldown: 30,

		EnableSabotage: true,
		SabotageTypes: map[SabotageType]bool{
			SabotageLights:  true,
			SabotageReactor: true,
			SabotageOxygen:  true,
		},
		ReactorTimer:     90,
		OxygenTimer:      120,
		SabotageCooldown: 60,

		VultureMeals: 3,
	}
}

// SettingsPatch carries host-submitted changes; nil fields are left
// untouched, everything else is clamped into range.
type SettingsPatch struct {
	TasksPerPlayer *int `json:"tasksPerPlayer"`
	Impostors      *int `json:"impostors"`
	NeutralSlots   *int `json:"neutralSlots"`
	CrewSlots      *int `json:"crewSlots"`

	RoleWeights map[Role]int `json:"roleWeights"`

	EnableVoting    *bool `json:"enableVoting"`
	AnonymousVoting *bool `json:"anonymousVoting"`
	MeetingTimer    *int  `json:"meetingTimer"`
	DiscussionTime  *int  `json:"discussionTime"`
	WarningTime     *int  `json:"warningTime"`
	MeetingCooldown *int  `json:"meetingCooldown"`

	EnableSabotage   *bool                 `json:"enableSabotage"`
	SabotageTypes    map[SabotageType]bool `json:"sabotageTypes"`
	ReactorTimer     *int                  `json:"reactorTimer"`
	OxygenTimer      *int                  `json:"oxygenTimer"`
	SabotageCooldown *int                  `json:"sabotageCooldown"`

	VultureMeals *int `json:"vultureMeals"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Settings) apply(p SettingsPatch) {
	if p.TasksPerPlayer != nil {
		s.TasksPerPlayer = clamp(*p.TasksPerPlayer, 1, 10)
	}
	if p.Impostors != nil {
		s.Impostors = clamp(*p.Impostors, 1, 3)
	}
	if p.NeutralSlots != nil {
		s.NeutralSlots = clamp(*p.NeutralSlots, 0, 3)
	}
	if p.CrewSlots != nil {
		s.CrewSlots = clamp(*p.CrewSlots, 0, 4)
	}
	for role, w := range p.RoleWeights {
		if !role.Probabilistic() {
			continue
		}
		if s.RoleWeights == nil {
			s.RoleWeights = map[Role]int{}
		}
		s.RoleWeights[role] = clamp(w, 0, 100)
	}
	if p.EnableVoting != nil {
		s.EnableVoting = *p.EnableVoting
	}
	if p.AnonymousVoting != nil {
		s.AnonymousVoting = *p.AnonymousVoting
	}
	if p.MeetingTimer != nil {
		s.MeetingTimer = clamp(*p.MeetingTimer, 15, 600)
	}
	if p.DiscussionTime != nil {
		s.DiscussionTime = clamp(*p.DiscussionTime, 0, 120)
	}
	if p.WarningTime != nil {
		s.WarningTime = clamp(*p.WarningTime, 0, 60)
	}
	if p.MeetingCooldown != nil {
		s.MeetingCooldown = clamp(*p.MeetingCooldown, 0, 600)
	}
	if p.EnableSabotage != nil {
		s.EnableSabotage = *p.EnableSabotage
	}
	for typ, on := range p.SabotageTypes {
		if s.SabotageTypes == nil {
			s.SabotageTypes = map[SabotageType]bool{}
		}
		if _, known := DefaultSettings().SabotageTypes[typ]; known {
			s.SabotageTypes[typ] = on
		}
	}
	if p.ReactorTimer != nil {
		s.ReactorTimer = clamp(*p.ReactorTimer, 15, 600)
	}
	if p.OxygenTimer != nil {
		s.OxygenTimer = clamp(*p.OxygenTimer, 15, 600)
	}
	if p.SabotageCooldown != nil {
		s.SabotageCooldown = clamp(*p.SabotageCooldown, 0, 600)
	}
	if p.VultureMeals != nil {
		s.VultureMeals = clamp(*p.VultureMeals, 1, 6)
	}
}

package game

import "github.com/valyala/fastrand"

type Role string

const (
	RoleCrewmate     Role = "Crewmate"
	RoleEngineer     Role = "Engineer"
	RoleCaptain      Role = "Captain"
	RoleMayor        Role = "Mayor"
	RoleNiceGuesser  Role = "Nice Guesser"
	RolePolitician   Role = "Politician"
	RoleNoiseMaker   Role = "Noise Maker"
	RoleLookout      Role = "Lookout"
	RoleImpostor     Role = "Impostor"
	RoleMinion       Role = "Minion"
	RoleEvilGuesser  Role = "Evil Guesser"
	RoleBountyHunter Role = "Bounty Hunter"
	RoleJester       Role = "Jester"
	RoleLoneWolf     Role = "Lone Wolf"
	RoleVulture      Role = "Vulture"
	RoleExecutioner  Role = "Executioner"
)

type RoleCategory string

const (
	CategoryCrew     RoleCategory = "crew"
	CategoryImpostor RoleCategory = "impostor"
	CategoryNeutral  RoleCategory = "neutral"
)

var roleCategories = map[Role]RoleCategory{
	RoleCrewmate:     CategoryCrew,
	RoleEngineer:     CategoryCrew,
	RoleCaptain:      CategoryCrew,
	RoleMayor:        CategoryCrew,
	RoleNiceGuesser:  CategoryCrew,
	RolePolitician:   CategoryCrew,
	RoleNoiseMaker:   CategoryCrew,
	RoleLookout:      CategoryCrew,
	RoleImpostor:     CategoryImpostor,
	RoleMinion:       CategoryImpostor,
	RoleEvilGuesser:  CategoryImpostor,
	RoleBountyHunter: CategoryImpostor,
	RoleJester:       CategoryNeutral,
	RoleLoneWolf:     CategoryNeutral,
	RoleVulture:      CategoryNeutral,
	RoleExecutioner:  CategoryNeutral,
}

// Slot candidates per probabilistic category. Plain Impostor backfills
// impostor slots, Crewmate backfills everything else.
var (
	impostorVariants  = []Role{RoleMinion, RoleEvilGuesser, RoleBountyHunter}
	neutralRoles      = []Role{RoleJester, RoleLoneWolf, RoleVulture, RoleExecutioner}
	advancedCrewRoles = []Role{RoleEngineer, RoleCaptain, RoleMayor, RoleNiceGuesser, RolePolitician, RoleNoiseMaker, RoleLookout}
)

func (r Role) Category() RoleCategory { return roleCategories[r] }

func (r Role) Valid() bool {
	_, ok := roleCategories[r]
	return ok
}

// Probabilistic reports whether the role competes for a slot via its
// configured weight rather than filling a fixed slot.
func (r Role) Probabilistic() bool {
	for _, v := range impostorVariants {
		if r == v {
			return true
		}
	}
	for _, v := range neutralRoles {
		if r == v {
			return true
		}
	}
	for _, v := range advancedCrewRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanTriggerSabotage: every impostor-aligned role except the Minion,
// alive or dead.
func (r Role) CanTriggerSabotage() bool {
	return r.Category() == CategoryImpostor && r != RoleMinion
}

func (r Role) CanGuess() bool {
	return r == RoleNiceGuesser || r == RoleEvilGuesser
}

// VoteWeight is applied at tally time, not at cast time.
func (r Role) VoteWeight() int {
	if r == RoleMayor {
		return 2
	}
	return 1
}

// MinPlayers is the absolute roster floor for starting a game.
const MinPlayers = 4

// adjustSlots reduces configured special-role slots until at least one
// baseline crewmate remains, in a fixed priority order: advanced crew
// slots first, then neutral slots, then impostors down to one.
// Returns the clamped counts and a note per reduction.
func adjustSlots(settings Settings, playerCount int) (impostors, neutral, crew int, notes []string) {
	impostors = settings.Impostors
	neutral = settings.NeutralSlots
	crew = settings.CrewSlots

	for crew > 0 && impostors+neutral+crew >= playerCount {
		crew--
	}
	if crew != settings.CrewSlots {
		notes = append(notes, "advanced crew slots reduced")
	}
	for neutral > 0 && impostors+neutral+crew >= playerCount {
		neutral--
	}
	if neutral != settings.NeutralSlots {
		notes = append(notes, "neutral slots reduced")
	}
	for impostors > 1 && impostors+neutral+crew >= playerCount {
		impostors--
	}
	if impostors != settings.Impostors {
		notes = append(notes, "impostor count reduced")
	}
	return impostors, neutral, crew, notes
}

// weightedPick draws one role from candidates proportionally to its
// configured weight. Candidates with weight zero never win.
func weightedPick(candidates []Role, weights map[Role]int) (Role, bool) {
	total := 0
	for _, r := range candidates {
		total += weights[r]
	}
	if total <= 0 {
		return "", false
	}
	n := int(fastrand.Uint32n(uint32(total)))
	for _, r := range candidates {
		n -= weights[r]
		if n < 0 {
			return r, true
		}
	}
	return "", false
}

// fillSlots assigns count slots from the enabled candidate pool by
// weighted sampling without replacement; unfilled slots are left to the
// caller's backfill role.
func fillSlots(count int, candidates []Role, weights map[Role]int) []Role {
	pool := make([]Role, 0, len(candidates))
	for _, r := range candidates {
		if weights[r] > 0 {
			pool = append(pool, r)
		}
	}
	var out []Role
	for len(out) < count && len(pool) > 0 {
		role, ok := weightedPick(pool, weights)
		if !ok {
			break
		}
		out = append(out, role)
		for i, r := range pool {
			if r == role {
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}
	return out
}

func shufflePlayers(players []*Player) {
	for i := len(players) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		players[i], players[j] = players[j], players[i]
	}
}

// assignRolesLocked computes and applies the role assignment for the
// current roster. Fixed impostor slots are filled before probabilistic
// variants are considered; neutral and advanced crew categories draw
// from their enabled pools; everything left is a plain Crewmate.
func (s *Session) assignRolesLocked() ([]string, error) {
	players := make([]*Player, 0, len(s.players))
	for _, id := range s.order {
		players = append(players, s.players[id])
	}
	if len(players) < MinPlayers {
		return nil, invalidf("need at least %d players, have %d", MinPlayers, len(players))
	}

	impostors, neutral, crew, notes := adjustSlots(s.settings, len(players))
	if impostors+neutral+crew >= len(players) {
		return nil, invalidf("not enough players for the configured roles")
	}

	shufflePlayers(players)

	roles := make([]Role, 0, len(players))
	// First impostor slot is always a plain Impostor so the faction can
	// always sabotage; the rest may be variants.
	roles = append(roles, RoleImpostor)
	for _, r := range fillSlots(impostors-1, impostorVariants, s.settings.RoleWeights) {
		roles = append(roles, r)
	}
	for len(roles) < impostors {
		roles = append(roles, RoleImpostor)
	}
	roles = append(roles, fillSlots(neutral, neutralRoles, s.settings.RoleWeights)...)
	roles = append(roles, fillSlots(crew, advancedCrewRoles, s.settings.RoleWeights)...)
	for len(roles) < len(players) {
		roles = append(roles, RoleCrewmate)
	}

	for i, p := range players {
		p.Role = roles[i]
		p.Alive = true
		p.EmergencyUsed = false
		p.RemoteFixUsed = false
		p.RemoteMeetingUsed = false
		p.GuessLocked = false
		p.BountyTargetID = ""
		p.BountyKills = 0
		p.EatenBodies = nil
		p.WatchTargetID = ""
		p.TiedTargetID = ""
	}
	for _, p := range players {
		switch p.Role {
		case RoleVulture:
			p.EatenBodies = map[string]bool{}
		case RoleBountyHunter:
			p.BountyTargetID = s.pickBountyTargetLocked(p)
		case RoleExecutioner:
			p.TiedTargetID = s.pickTiedTargetLocked(p)
		}
	}
	return notes, nil
}

// pickBountyTargetLocked selects uniformly among eligible living
// players excluding the hunter. Empty when nobody qualifies.
func (s *Session) pickBountyTargetLocked(hunter *Player) string {
	var pool []string
	for _, id := range s.order {
		p := s.players[id]
		if p.Alive && p.ID != hunter.ID {
			pool = append(pool, p.ID)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[int(fastrand.Uint32n(uint32(len(pool))))]
}

// pickTiedTargetLocked binds an executioner to a crew-aligned player.
func (s *Session) pickTiedTargetLocked(exec *Player) string {
	var pool []string
	for _, id := range s.order {
		p := s.players[id]
		if p.ID != exec.ID && p.Role.Category() == CategoryCrew {
			pool = append(pool, p.ID)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[int(fastrand.Uint32n(uint32(len(pool))))]
}

// distributeTasksLocked hands every player a task list drawn without
// replacement from the catalogue. Non-crew roles receive decoy lists of
// identical shape.
func (s *Session) distributeTasksLocked() {
	perPlayer := s.settings.TasksPerPlayer
	if perPlayer > len(s.taskCatalog) {
		perPlayer = len(s.taskCatalog)
	}
	crewCount := 0
	for _, id := range s.order {
		p := s.players[id]
		names := make([]string, len(s.taskCatalog))
		copy(names, s.taskCatalog)
		for i := len(names) - 1; i > 0; i-- {
			j := int(fastrand.Uint32n(uint32(i + 1)))
			names[i], names[j] = names[j], names[i]
		}
		decoy := p.Role.Category() != CategoryCrew
		p.Tasks = make([]*Task, 0, perPlayer)
		for _, name := range names[:perPlayer] {
			p.Tasks = append(p.Tasks, &Task{ID: newID(), Name: name, Decoy: decoy})
		}
		if !decoy {
			crewCount++
		}
	}
	s.crewTaskTotal = crewCount * perPlayer
}

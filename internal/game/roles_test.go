package game

import "testing"

func TestRoleCategories(t *testing.T) {
	cases := []struct {
		role Role
		want RoleCategory
	}{
		{RoleCrewmate, CategoryCrew},
		{RoleMayor, CategoryCrew},
		{RoleImpostor, CategoryImpostor},
		{RoleMinion, CategoryImpostor},
		{RoleJester, CategoryNeutral},
		{RoleExecutioner, CategoryNeutral},
	}
	for _, c := range cases {
		if got := c.role.Category(); got != c.want {
			t.Fatalf("%s: expected category %s, got %s", c.role, c.want, got)
		}
	}
}

func TestCanTriggerSabotage(t *testing.T) {
	if RoleMinion.CanTriggerSabotage() {
		t.Fatal("minion must not trigger sabotages")
	}
	if !RoleImpostor.CanTriggerSabotage() || !RoleEvilGuesser.CanTriggerSabotage() || !RoleBountyHunter.CanTriggerSabotage() {
		t.Fatal("impostor-aligned roles should trigger sabotages")
	}
	if RoleCrewmate.CanTriggerSabotage() || RoleJester.CanTriggerSabotage() {
		t.Fatal("non-impostor roles must not trigger sabotages")
	}
}

func TestVoteWeight(t *testing.T) {
	if got := RoleMayor.VoteWeight(); got != 2 {
		t.Fatalf("expected mayor weight 2, got %d", got)
	}
	if got := RoleCrewmate.VoteWeight(); got != 1 {
		t.Fatalf("expected weight 1, got %d", got)
	}
}

func TestAdjustSlots(t *testing.T) {
	cases := []struct {
		name                        string
		impostors, neutral, crew    int
		players                     int
		wantImp, wantNeut, wantCrew int
	}{
		{"fits", 2, 1, 2, 8, 2, 1, 2},
		{"crew first", 2, 1, 3, 6, 2, 1, 2},
		{"then neutral", 2, 3, 0, 5, 2, 2, 0},
		{"then impostors", 3, 0, 0, 3, 2, 0, 0},
		{"never below one impostor", 3, 3, 3, 2, 1, 0, 0},
	}
	for _, c := range cases {
		settings := DefaultSettings()
		settings.Impostors = c.impostors
		settings.NeutralSlots = c.neutral
		settings.CrewSlots = c.crew
		imp, neut, crew, _ := adjustSlots(settings, c.players)
		if imp != c.wantImp || neut != c.wantNeut || crew != c.wantCrew {
			t.Fatalf("%s: expected %d/%d/%d, got %d/%d/%d",
				c.name, c.wantImp, c.wantNeut, c.wantCrew, imp, neut, crew)
		}
	}
}

func TestWeightedPickRespectsZeroWeights(t *testing.T) {
	weights := map[Role]int{RoleJester: 0, RoleVulture: 10}
	for i := 0; i < 100; i++ {
		role, ok := weightedPick(neutralRoles, weights)
		if !ok {
			t.Fatal("expected a pick with a positive-weight candidate")
		}
		if role == RoleJester {
			t.Fatal("zero-weight role must never be picked")
		}
	}
	if _, ok := weightedPick(neutralRoles, map[Role]int{}); ok {
		t.Fatal("all-zero weights should produce no pick")
	}
}

func TestFillSlotsWithoutReplacement(t *testing.T) {
	weights := map[Role]int{RoleJester: 5, RoleVulture: 5, RoleLoneWolf: 5, RoleExecutioner: 5}
	picked := fillSlots(4, neutralRoles, weights)
	if len(picked) != 4 {
		t.Fatalf("expected 4 picks, got %d", len(picked))
	}
	seen := map[Role]bool{}
	for _, r := range picked {
		if seen[r] {
			t.Fatalf("role %s picked twice", r)
		}
		seen[r] = true
	}
	// more slots than enabled candidates: fills what it can
	if got := fillSlots(3, neutralRoles, map[Role]int{RoleJester: 1}); len(got) != 1 {
		t.Fatalf("expected 1 pick, got %d", len(got))
	}
}

func TestAssignRolesFirstImpostorIsPlain(t *testing.T) {
	s, _, _ := newTestSession(t)
	addPlayer(s, "Alice", true)
	addPlayer(s, "Bob", false)
	addPlayer(s, "Cleo", false)
	addPlayer(s, "Dana", false)
	addPlayer(s, "Eve", false)
	s.settings.Impostors = 2
	s.settings.RoleWeights = map[Role]int{RoleMinion: 100}

	s.mu.Lock()
	_, err := s.assignRolesLocked()
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("assign roles: %v", err)
	}
	plain, variants := 0, 0
	for _, p := range s.players {
		switch {
		case p.Role == RoleImpostor:
			plain++
		case p.Role.Category() == CategoryImpostor:
			variants++
		}
	}
	if plain < 1 {
		t.Fatal("at least one plain impostor must be assigned")
	}
	if plain+variants != 2 {
		t.Fatalf("expected 2 impostor-aligned players, got %d", plain+variants)
	}
}

func TestAssignRolesSetsTargets(t *testing.T) {
	s, _, _ := newTestSession(t)
	addPlayer(s, "Alice", true)
	addPlayer(s, "Bob", false)
	addPlayer(s, "Cleo", false)
	addPlayer(s, "Dana", false)
	addPlayer(s, "Eve", false)
	addPlayer(s, "Finn", false)
	s.settings.Impostors = 2
	s.settings.NeutralSlots = 1
	s.settings.RoleWeights = map[Role]int{RoleBountyHunter: 100, RoleExecutioner: 100}

	s.mu.Lock()
	_, err := s.assignRolesLocked()
	s.mu.Unlock()
	if err != nil {
		t.Fatalf("assign roles: %v", err)
	}
	for _, p := range s.players {
		switch p.Role {
		case RoleBountyHunter:
			if p.BountyTargetID == "" || p.BountyTargetID == p.ID {
				t.Fatal("bounty hunter needs a mark other than themselves")
			}
		case RoleExecutioner:
			if p.TiedTargetID == "" {
				t.Fatal("executioner needs a tied target")
			}
			if s.players[p.TiedTargetID].Role.Category() != CategoryCrew {
				t.Fatal("executioner target must be crew-aligned")
			}
		}
	}
}

func TestDistributeTasksDecoys(t *testing.T) {
	s, _, _ := newTestSession(t)
	addPlayer(s, "Alice", true)
	addPlayer(s, "Bob", false)
	addPlayer(s, "Cleo", false)
	addPlayer(s, "Dana", false)
	startWithRoles(t, s, RoleImpostor, RoleJester, RoleCrewmate, RoleEngineer)

	for _, id := range s.order {
		p := s.players[id]
		wantDecoy := p.Role.Category() != CategoryCrew
		for _, task := range p.Tasks {
			if task.Decoy != wantDecoy {
				t.Fatalf("%s (%s): expected decoy=%v", p.Name, p.Role, wantDecoy)
			}
		}
	}
	// two crew-aligned players (Crewmate, Engineer) x 5 tasks
	if s.crewTaskTotal != 10 {
		t.Fatalf("expected crew task total 10, got %d", s.crewTaskTotal)
	}
}

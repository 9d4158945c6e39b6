package game

// AbilityKind names one invocable role power. Passive effects (the
// Mayor's vote weight, the Noise Maker's death alert) have no kind.
type AbilityKind string

const (
	AbilityRemoteFix     AbilityKind = "remote_fix"     // Engineer
	AbilityRemoteMeeting AbilityKind = "remote_meeting" // Captain
	AbilityGuessRole     AbilityKind = "guess_role"     // Nice/Evil Guesser
	AbilityRedirectVote  AbilityKind = "redirect_vote"  // Politician
	AbilityWatchPlayer   AbilityKind = "watch_player"   // Lookout
	AbilityConsumeBody   AbilityKind = "consume_body"   // Vulture
	AbilityClaimBounty   AbilityKind = "claim_bounty"   // Bounty Hunter
	AbilityAlertFinder   AbilityKind = "alert_finder"   // Noise Maker, dead only
)

// AbilityRequest carries the kind plus whatever parameters it needs;
// unused fields are ignored.
type AbilityRequest struct {
	Kind     AbilityKind `json:"kind"`
	TargetID string      `json:"targetId,omitempty"`
	VoterID  string      `json:"voterId,omitempty"` // redirect_vote: whose vote to move
	Role     Role        `json:"role,omitempty"`    // guess_role
}

type AbilityResult struct {
	Correct        *bool  `json:"correct,omitempty"`
	BountyTargetID string `json:"bountyTargetId,omitempty"`
	BountyKills    int    `json:"bountyKills,omitempty"`
	BodiesEaten    int    `json:"bodiesEaten,omitempty"`
	MealsNeeded    int    `json:"mealsNeeded,omitempty"`
}

// InvokeAbility dispatches one role power. Every branch validates the
// caller's role itself so a wrong-role invocation is always forbidden,
// never not_found.
func (s *Session) InvokeAbility(playerID string, req AbilityRequest) (*AbilityResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if s.phase != PhasePlaying && s.phase != PhaseMeeting {
		return nil, conflictf("game is not in progress")
	}
	// The Noise Maker's power only exists once they are dead; every
	// other ability requires a living caller.
	if req.Kind == AbilityAlertFinder {
		return nil, s.alertFinderLocked(p, req.TargetID)
	}
	if !p.Alive {
		return nil, forbiddenf("dead players cannot use abilities")
	}

	switch req.Kind {
	case AbilityRemoteFix:
		return nil, s.remoteFixLocked(p)
	case AbilityRemoteMeeting:
		return nil, s.remoteMeetingLocked(p)
	case AbilityGuessRole:
		return s.guessRoleLocked(p, req.TargetID, req.Role)
	case AbilityRedirectVote:
		return nil, s.redirectVoteLocked(p, req.VoterID, req.TargetID)
	case AbilityWatchPlayer:
		return nil, s.watchPlayerLocked(p, req.TargetID)
	case AbilityConsumeBody:
		return s.consumeBodyLocked(p, req.TargetID)
	case AbilityClaimBounty:
		return s.claimBountyLocked(p, req.TargetID)
	default:
		return nil, invalidf("unknown ability %q", req.Kind)
	}
}

// remoteFixLocked is the Engineer's one-shot: resolve the active
// sabotage from anywhere.
func (s *Session) remoteFixLocked(p *Player) error {
	if p.Role != RoleEngineer {
		return forbiddenf("only the Engineer can fix remotely")
	}
	if p.RemoteFixUsed {
		return exhaustedf("remote fix already used")
	}
	if s.sabotage == nil {
		return conflictf("no sabotage is active")
	}
	p.RemoteFixUsed = true
	s.resolveSabotageLocked("remote fix")
	return nil
}

// remoteMeetingLocked is the Captain's one-shot: call an emergency
// meeting without reaching the button. The sabotage and cooldown gates
// still apply.
func (s *Session) remoteMeetingLocked(p *Player) error {
	if p.Role != RoleCaptain {
		return forbiddenf("only the Captain can call a remote meeting")
	}
	if p.RemoteMeetingUsed {
		return exhaustedf("remote meeting already used")
	}
	if s.phase != PhasePlaying {
		return conflictf("meetings can only be called during gameplay")
	}
	if s.sabotage != nil {
		return conflictf("cannot call a meeting during a sabotage")
	}
	if s.clock().Before(s.meetingCooldownUntil) {
		return conflictf("meeting cooldown has not elapsed")
	}
	p.RemoteMeetingUsed = true
	s.startMeetingLocked(p, MeetingEmergency)
	return nil
}

// guessRoleLocked resolves a guesser's shot during a meeting: a correct
// role kills the target on the spot, a wrong one locks further guesses
// until the meeting ends.
func (s *Session) guessRoleLocked(p *Player, targetID string, role Role) (*AbilityResult, error) {
	if !p.Role.CanGuess() {
		return nil, forbiddenf("your role cannot guess")
	}
	m := s.meeting
	if m == nil || m.Resolved {
		return nil, conflictf("guessing is only possible during a meeting")
	}
	if p.GuessLocked {
		return nil, exhaustedf("already guessed wrong this meeting")
	}
	if !role.Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	t := s.players[targetID]
	if t == nil {
		return nil, notFoundf("guess target not found")
	}
	if t.ID == p.ID {
		return nil, invalidf("cannot guess yourself")
	}
	if !t.Alive {
		return nil, invalidf("cannot guess a dead player")
	}

	// A plain "Impostor" guess hits any impostor-category role.
	correct := t.Role == role || (role == RoleImpostor && t.Role.Category() == CategoryImpostor)
	s.touchLocked()
	if !correct {
		p.GuessLocked = true
		s.notify.SendTo(s.Code, p.ID, EventGuessResult, map[string]any{"correct": false})
		return &AbilityResult{Correct: &correct}, nil
	}

	s.notify.Broadcast(s.Code, EventGuessResult, map[string]any{
		"correct":  true,
		"playerId": t.ID,
		"name":     t.Name,
		"role":     string(t.Role),
	})
	s.killPlayerLocked(t, causeGuess)
	// The dead target's vote is scrubbed and their voters may now be
	// complete.
	if m.Phase == MeetingVoting && !m.Resolved {
		if needed := s.eligibleVoterCountLocked(); needed > 0 && len(m.Votes) >= needed {
			s.tallyLocked()
		}
	}
	s.checkWinLocked()
	return &AbilityResult{Correct: &correct}, nil
}

// redirectVoteLocked is the Politician's per-meeting power: move one
// voter's ballot to a target of the politician's choosing. The change
// is applied silently at tally time.
func (s *Session) redirectVoteLocked(p *Player, voterID, targetID string) error {
	if p.Role != RolePolitician {
		return forbiddenf("only the Politician can redirect votes")
	}
	m := s.meeting
	if m == nil || m.Phase != MeetingVoting || m.Resolved {
		return conflictf("votes can only be redirected while voting is open")
	}
	if m.redirectUsed[p.ID] {
		return exhaustedf("redirect already used this meeting")
	}
	voter := s.players[voterID]
	if voter == nil {
		return notFoundf("voter not found")
	}
	if targetID != "" {
		t := s.players[targetID]
		if t == nil {
			return notFoundf("redirect target not found")
		}
		if !t.Alive {
			return invalidf("cannot redirect onto a dead player")
		}
	}
	m.redirectUsed[p.ID] = true
	m.Redirects[voterID] = targetID
	s.touchLocked()
	return nil
}

// watchPlayerLocked points the Lookout at a living player; the watch
// fires a private alert if that player dies outside a meeting.
func (s *Session) watchPlayerLocked(p *Player, targetID string) error {
	if p.Role != RoleLookout {
		return forbiddenf("only the Lookout can watch players")
	}
	if s.phase != PhasePlaying {
		return conflictf("watching is only possible during gameplay")
	}
	t := s.players[targetID]
	if t == nil {
		return notFoundf("watch target not found")
	}
	if t.ID == p.ID {
		return invalidf("cannot watch yourself")
	}
	if !t.Alive {
		return invalidf("cannot watch a dead player")
	}
	p.WatchTargetID = t.ID
	s.touchLocked()
	return nil
}

// alertFinderLocked is the dead Noise Maker's power: pick a living
// player who is privately told where to "find" the body. The report
// meeting opens immediately with the finder as caller.
func (s *Session) alertFinderLocked(p *Player, targetID string) error {
	if p.Role != RoleNoiseMaker {
		return forbiddenf("only the Noise Maker can alert a finder")
	}
	if p.Alive {
		return conflictf("you are not dead")
	}
	if s.phase != PhasePlaying {
		return conflictf("finders can only be alerted during gameplay")
	}
	if s.ineligibleBodies[p.ID] {
		return conflictf("your body has already been discovered")
	}
	t := s.players[targetID]
	if t == nil {
		return notFoundf("finder not found")
	}
	if !t.Alive {
		return invalidf("the finder must be alive")
	}
	s.touchLocked()
	s.notify.SendTo(s.Code, t.ID, EventNoiseAlert, map[string]any{
		"playerId": p.ID,
		"name":     p.Name,
	})
	s.startMeetingLocked(t, MeetingBodyReport)
	return nil
}

// consumeBodyLocked records a Vulture meal. Bodies discovered by a
// meeting or eliminated by vote are permanently off the menu.
func (s *Session) consumeBodyLocked(p *Player, bodyID string) (*AbilityResult, error) {
	if p.Role != RoleVulture {
		return nil, forbiddenf("only the Vulture can consume bodies")
	}
	if s.phase != PhasePlaying {
		return nil, conflictf("bodies can only be consumed during gameplay")
	}
	t := s.players[bodyID]
	if t == nil {
		return nil, notFoundf("body not found")
	}
	if t.Alive {
		return nil, invalidf("that player is alive")
	}
	if p.EatenBodies[t.ID] {
		return nil, conflictf("body already consumed")
	}
	if s.ineligibleBodies[t.ID] {
		return nil, conflictf("that body has already been discovered")
	}

	if p.EatenBodies == nil {
		p.EatenBodies = map[string]bool{}
	}
	p.EatenBodies[t.ID] = true
	s.ineligibleBodies[t.ID] = true
	s.touchLocked()

	res := &AbilityResult{BodiesEaten: len(p.EatenBodies), MealsNeeded: s.settings.VultureMeals}
	s.notify.SendTo(s.Code, p.ID, EventBodyConsumed, res)
	if len(p.EatenBodies) >= s.settings.VultureMeals {
		s.endGameLocked(string(RoleVulture), p.Name+" consumed enough bodies")
	}
	return res, nil
}

// claimBountyLocked verifies a hunter's kill on their mark: the mark
// must already have declared itself dead. A successful claim assigns a
// fresh mark and clears the faction's sabotage cooldown.
func (s *Session) claimBountyLocked(p *Player, targetID string) (*AbilityResult, error) {
	if p.Role != RoleBountyHunter {
		return nil, forbiddenf("only the Bounty Hunter can claim bounties")
	}
	if targetID == "" {
		targetID = p.BountyTargetID
	}
	if targetID == "" || targetID != p.BountyTargetID {
		return nil, invalidf("that player is not your mark")
	}
	t := s.players[targetID]
	if t == nil {
		return nil, notFoundf("mark not found")
	}
	if t.Alive {
		return nil, conflictf("your mark has not been eliminated")
	}

	p.BountyKills++
	p.BountyTargetID = s.pickBountyTargetLocked(p)
	s.sabotageCooldownUntil = s.clock()
	s.touchLocked()

	res := &AbilityResult{BountyTargetID: p.BountyTargetID, BountyKills: p.BountyKills}
	payload := map[string]any{"targetId": p.BountyTargetID, "kills": p.BountyKills}
	if next := s.players[p.BountyTargetID]; next != nil {
		payload["targetName"] = next.Name
	}
	s.notify.SendTo(s.Code, p.ID, EventBountyTarget, payload)
	return res, nil
}

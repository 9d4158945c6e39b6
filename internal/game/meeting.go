package game

import "time"

// CallMeeting opens a meeting in the gathering phase. Emergency
// meetings are a per-player one-shot gated by the session meeting
// cooldown and by any active sabotage; body reports are an unlimited
// ambient action and bypass both gates.
func (s *Session) CallMeeting(playerID string, kind MeetingKind) (*MeetingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if s.phase != PhasePlaying {
		return nil, conflictf("meetings can only be called during gameplay")
	}
	if !p.Alive {
		return nil, forbiddenf("dead players cannot call meetings")
	}
	switch kind {
	case MeetingEmergency:
		if p.EmergencyUsed {
			return nil, exhaustedf("emergency meeting already used")
		}
		if s.sabotage != nil {
			return nil, conflictf("cannot call a meeting during a sabotage")
		}
		if s.clock().Before(s.meetingCooldownUntil) {
			return nil, conflictf("meeting cooldown has not elapsed")
		}
		p.EmergencyUsed = true
	case MeetingBodyReport:
		// no gate: reporting a body is always allowed
	default:
		return nil, invalidf("unknown meeting kind %q", kind)
	}

	s.startMeetingLocked(p, kind)
	return s.meetingViewLocked(playerID), nil
}

// startMeetingLocked performs the shared meeting-open sequence: bodies
// on the floor are discovered (and become ineligible for consumption),
// timed sabotages resolve, rosters are snapshotted.
func (s *Session) startMeetingLocked(caller *Player, kind MeetingKind) {
	for _, p := range s.players {
		if !p.Alive {
			s.ineligibleBodies[p.ID] = true
		}
	}

	if sb := s.sabotage; sb != nil && sb.Timed() {
		s.resolveSabotageLocked("meeting called")
	}

	m := &Meeting{
		Kind:         kind,
		Phase:        MeetingGathering,
		CallerID:     caller.ID,
		StartedAt:    s.clock(),
		Votes:        make(map[string]*Vote),
		Redirects:    make(map[string]string),
		redirectUsed: make(map[string]bool),
		ineligible:   make(map[string]bool),
	}
	for _, p := range s.alivePlayersLocked() {
		m.AliveAtStart = append(m.AliveAtStart, p.ID)
	}
	for _, p := range s.deadPlayersLocked() {
		m.DeadAtStart = append(m.DeadAtStart, p.ID)
	}
	s.meeting = m
	s.phase = PhaseMeeting
	s.touchLocked()

	s.notify.Broadcast(s.Code, EventMeetingCalled, map[string]any{
		"callerId":       caller.ID,
		"calledBy":       caller.Name,
		"kind":           string(kind),
		"taskPercentage": s.taskPercentageLocked(),
		"players":        s.rosterLocked(),
		"enableVoting":   s.settings.EnableVoting,
		"timerDuration":  s.settings.MeetingTimer,
		"discussionTime": s.settings.DiscussionTime,
		"warningTime":    s.settings.WarningTime,
	})
}

// StartVoting moves a gathered meeting into the voting phase. Only the
// caller may start it; calling again once voting runs is a no-op.
func (s *Session) StartVoting(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meeting
	if m == nil {
		return conflictf("no meeting in progress")
	}
	if m.CallerID != playerID {
		return forbiddenf("only the meeting caller can start voting")
	}
	if m.Phase != MeetingGathering {
		return nil
	}

	now := s.clock()
	m.Phase = MeetingVoting
	m.DiscussionEndsAt = now.Add(time.Duration(s.settings.DiscussionTime) * time.Second)
	m.VotingEndsAt = now.Add(time.Duration(s.settings.MeetingTimer) * time.Second)
	s.touchLocked()

	s.notify.Broadcast(s.Code, EventVotingStarted, map[string]any{
		"timerDuration":  s.settings.MeetingTimer,
		"discussionTime": s.settings.DiscussionTime,
		"warningTime":    s.settings.WarningTime,
		"players":        s.rosterLocked(),
	})
	return nil
}

func (s *Session) eligibleVoterCountLocked() int {
	if s.meeting == nil {
		return 0
	}
	n := 0
	for _, p := range s.players {
		if p.Alive && !s.meeting.ineligible[p.ID] {
			n++
		}
	}
	return n
}

// CastVote records a vote for targetID, or a skip when targetID is
// empty. Votes are final once cast.
func (s *Session) CastVote(playerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return ErrPlayerNotFound
	}
	m := s.meeting
	if m == nil {
		return conflictf("no meeting in progress")
	}
	if !s.settings.EnableVoting {
		return conflictf("voting is disabled for this session")
	}
	if m.Phase != MeetingVoting || m.Resolved {
		return conflictf("voting is not open")
	}
	if s.clock().Before(m.DiscussionEndsAt) {
		return conflictf("discussion time is not over")
	}
	if !p.Alive {
		return forbiddenf("dead players cannot vote")
	}
	if m.ineligible[p.ID] {
		return forbiddenf("you are no longer eligible to vote")
	}
	if _, voted := m.Votes[p.ID]; voted {
		return conflictf("vote already cast")
	}
	if targetID != "" {
		t := s.players[targetID]
		if t == nil {
			return notFoundf("vote target not found")
		}
		if !t.Alive {
			return invalidf("cannot vote for a dead player")
		}
	}

	m.Votes[p.ID] = &Vote{VoterID: p.ID, TargetID: targetID, CastAt: s.clock()}
	s.touchLocked()

	cast, needed := len(m.Votes), s.eligibleVoterCountLocked()
	payload := map[string]any{"votesCast": cast, "votesNeeded": needed}
	if !s.settings.AnonymousVoting {
		payload["voterId"] = p.ID
		payload["targetId"] = targetID
	}
	s.notify.Broadcast(s.Code, EventVoteCast, payload)

	if cast >= needed {
		s.tallyLocked()
	}
	return nil
}

// TimerExpired adjudicates a client-signaled voting timeout. Calling it
// after the tally already ran is a no-op.
func (s *Session) TimerExpired(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[playerID] == nil {
		return ErrPlayerNotFound
	}
	m := s.meeting
	if m == nil {
		return conflictf("no meeting in progress")
	}
	if m.Phase == MeetingGathering {
		return conflictf("voting has not started")
	}
	if m.Resolved {
		return nil
	}
	s.tallyLocked()
	return nil
}

// tallyLocked computes the meeting outcome from the votes actually
// cast: redirects are applied first, then role weights; the strict
// maximum (skip counts as a pseudo-target) eliminates, any tie does
// not.
func (s *Session) tallyLocked() {
	m := s.meeting
	if m == nil || m.Resolved {
		return
	}
	m.Resolved = true
	m.Phase = MeetingResults

	counts := make(map[string]int)
	skipWeight := 0
	for _, v := range m.Votes {
		voter := s.players[v.VoterID]
		weight := 1
		if voter != nil {
			weight = voter.Role.VoteWeight()
		}
		target := v.TargetID
		if redirected, ok := m.Redirects[v.VoterID]; ok {
			target = redirected
		}
		if target == "" {
			skipWeight += weight
		} else {
			counts[target] += weight
		}
	}

	max := skipWeight
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	var top []string
	for id, c := range counts {
		if c == max {
			top = append(top, id)
		}
	}

	result := &MeetingResult{
		Counts:     counts,
		SkipWeight: skipWeight,
		VotesCast:  len(m.Votes),
	}
	var eliminated *Player
	switch {
	case max == 0 || len(top) == 0:
		result.Outcome = OutcomeSkip
	case skipWeight == max || len(top) > 1:
		result.Outcome = OutcomeTie
	default:
		eliminated = s.players[top[0]]
		result.Outcome = OutcomeEliminated
		result.EliminatedID = eliminated.ID
		result.EliminatedName = eliminated.Name
		result.EliminatedRole = eliminated.Role
	}
	m.Result = result

	payload := map[string]any{"result": result}
	if !s.settings.AnonymousVoting {
		votes := make([]*Vote, 0, len(m.Votes))
		for _, v := range m.Votes {
			votes = append(votes, v)
		}
		payload["votes"] = votes
	}
	s.notify.Broadcast(s.Code, EventVoteResults, payload)

	if eliminated == nil {
		return
	}
	role := eliminated.Role
	tied := s.tiedExecutionerLocked(eliminated.ID)
	s.killPlayerLocked(eliminated, causeVoted)

	// Single-target vote-out wins take precedence over everything; the
	// voted-out player's own condition beats a bystander's.
	if role == RoleJester {
		s.endGameLocked(string(RoleJester), eliminated.Name+" was the Jester")
		return
	}
	if tied != nil {
		s.endGameLocked(string(RoleExecutioner), tied.Name+"'s mark was voted out")
		return
	}
	s.checkWinLocked()
}

func (s *Session) tiedExecutionerLocked(targetID string) *Player {
	for _, id := range s.order {
		e := s.players[id]
		if e.Role == RoleExecutioner && e.Alive && e.TiedTargetID == targetID {
			return e
		}
	}
	return nil
}

// EndMeeting closes a finished meeting: any participant may flip the
// session back to playing once results are in (or immediately when
// voting is disabled).
func (s *Session) EndMeeting(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[playerID] == nil {
		return ErrPlayerNotFound
	}
	m := s.meeting
	if m == nil {
		return conflictf("no meeting in progress")
	}
	if s.settings.EnableVoting && !m.Resolved && m.Phase != MeetingGathering {
		return conflictf("voting is still in progress")
	}

	for _, p := range s.players {
		p.GuessLocked = false
	}
	s.meeting = nil
	s.phase = PhasePlaying
	s.meetingCooldownUntil = s.clock().Add(time.Duration(s.settings.MeetingCooldown) * time.Second)
	s.touchLocked()

	s.notify.Broadcast(s.Code, EventMeetingEnded, map[string]any{})
	// An unresolved untimed sabotage survives the meeting; remind
	// everyone its alarm is still on.
	if s.sabotage != nil {
		s.notify.Broadcast(s.Code, EventSabotageUpdated, s.sabotageViewLocked())
	}
	s.checkWinLocked()
	return nil
}

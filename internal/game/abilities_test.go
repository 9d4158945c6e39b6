package game

import (
	"errors"
	"testing"
	"time"
)

func TestEngineerRemoteFix(t *testing.T) {
	s, n, clk, ps := setupGame(t, RoleImpostor, RoleEngineer, RoleCrewmate, RoleCrewmate)
	alice, eng, cleo := ps[0], ps[1], ps[2]

	if _, err := s.InvokeAbility(eng.ID, AbilityRequest{Kind: AbilityRemoteFix}); err == nil {
		t.Fatal("remote fix without a sabotage should fail")
	}
	if _, err := s.StartSabotage(alice.ID, SabotageReactor); err != nil {
		t.Fatalf("start sabotage: %v", err)
	}
	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityRemoteFix}); err == nil {
		t.Fatal("non-engineer remote fix should fail")
	}
	if _, err := s.InvokeAbility(eng.ID, AbilityRequest{Kind: AbilityRemoteFix}); err != nil {
		t.Fatalf("remote fix: %v", err)
	}
	if s.sabotage != nil {
		t.Fatal("remote fix should resolve the sabotage")
	}
	if got := n.count(EventSabotageResolved); got != 1 {
		t.Fatalf("expected 1 resolved event, got %d", got)
	}

	clk.Advance(time.Duration(s.settings.SabotageCooldown)*time.Second + time.Second)
	if _, err := s.StartSabotage(alice.ID, SabotageLights); err != nil {
		t.Fatalf("start sabotage: %v", err)
	}
	var gerr *Error
	_, err := s.InvokeAbility(eng.ID, AbilityRequest{Kind: AbilityRemoteFix})
	if !errors.As(err, &gerr) || gerr.Kind != KindExhausted {
		t.Fatalf("expected exhausted on second remote fix, got %v", err)
	}
}

func TestCaptainRemoteMeeting(t *testing.T) {
	s, _, clk, ps := setupGame(t, RoleImpostor, RoleCaptain, RoleCrewmate, RoleCrewmate)
	alice, capt, cleo := ps[0], ps[1], ps[2]

	if _, err := s.StartSabotage(alice.ID, SabotageLights); err != nil {
		t.Fatalf("start sabotage: %v", err)
	}
	if _, err := s.InvokeAbility(capt.ID, AbilityRequest{Kind: AbilityRemoteMeeting}); err == nil {
		t.Fatal("remote meeting during a sabotage should fail")
	}
	if capt.RemoteMeetingUsed {
		t.Fatal("failed invocation must not consume the one-shot")
	}
	if _, err := s.ApplySabotageAction(cleo.ID, ActionFix); err != nil {
		t.Fatalf("fix: %v", err)
	}

	if _, err := s.InvokeAbility(capt.ID, AbilityRequest{Kind: AbilityRemoteMeeting}); err != nil {
		t.Fatalf("remote meeting: %v", err)
	}
	if s.Phase() != PhaseMeeting {
		t.Fatalf("expected phase meeting, got %s", s.Phase())
	}
	if s.meeting.CallerID != capt.ID {
		t.Fatal("captain should be the meeting caller")
	}
	if err := s.EndMeeting(capt.ID); err != nil {
		t.Fatalf("end meeting: %v", err)
	}

	clk.Advance(time.Duration(s.settings.MeetingCooldown)*time.Second + time.Second)
	var gerr *Error
	_, err := s.InvokeAbility(capt.ID, AbilityRequest{Kind: AbilityRemoteMeeting})
	if !errors.As(err, &gerr) || gerr.Kind != KindExhausted {
		t.Fatalf("expected exhausted on second remote meeting, got %v", err)
	}
}

func TestGuessCorrectKillsTarget(t *testing.T) {
	s, n, _, ps := setupGame(t, RoleImpostor, RoleEvilGuesser, RoleNiceGuesser,
		RoleCrewmate, RoleCrewmate, RoleCrewmate)
	alice, bob, cleo, dana := ps[0], ps[1], ps[2], ps[3]

	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: bob.ID, Role: RoleImpostor}); err == nil {
		t.Fatal("guessing outside a meeting should fail")
	}
	if _, err := s.CallMeeting(dana.ID, MeetingEmergency); err != nil {
		t.Fatalf("call meeting: %v", err)
	}
	if _, err := s.InvokeAbility(alice.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: cleo.ID, Role: RoleCrewmate}); err == nil {
		t.Fatal("plain impostor cannot guess")
	}
	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: cleo.ID, Role: RoleCrewmate}); err == nil {
		t.Fatal("guessing yourself should fail")
	}

	// the generic "Impostor" guess hits any impostor-aligned role
	res, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: bob.ID, Role: RoleImpostor})
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if res.Correct == nil || !*res.Correct {
		t.Fatal("expected a correct guess")
	}
	if bob.Alive {
		t.Fatal("correctly guessed player should be dead")
	}
	ev, ok := n.last(EventGuessResult)
	if !ok || ev.PlayerID != "" {
		t.Fatal("correct guesses should be broadcast")
	}
	if _, err := s.InvokeAbility(bob.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: cleo.ID, Role: RoleNiceGuesser}); err == nil {
		t.Fatal("dead players cannot guess")
	}
	if s.Phase() != PhaseMeeting {
		t.Fatalf("game should continue, got %s", s.Phase())
	}
}

func TestGuessWrongLocksForMeeting(t *testing.T) {
	s, n, clk, ps := setupGame(t, RoleImpostor, RoleEvilGuesser, RoleCrewmate,
		RoleCrewmate, RoleCrewmate, RoleCrewmate)
	bob, cleo, dana := ps[1], ps[2], ps[3]

	if _, err := s.CallMeeting(cleo.ID, MeetingEmergency); err != nil {
		t.Fatalf("call meeting: %v", err)
	}
	res, err := s.InvokeAbility(bob.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: cleo.ID, Role: RoleJester})
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if res.Correct == nil || *res.Correct {
		t.Fatal("expected a wrong guess")
	}
	if !cleo.Alive {
		t.Fatal("wrong guess must not kill")
	}
	ev, ok := n.last(EventGuessResult)
	if !ok || ev.PlayerID != bob.ID {
		t.Fatal("wrong guesses should only be reported to the guesser")
	}
	var gerr *Error
	_, err = s.InvokeAbility(bob.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: dana.ID, Role: RoleCrewmate})
	if !errors.As(err, &gerr) || gerr.Kind != KindExhausted {
		t.Fatalf("expected exhausted after a wrong guess, got %v", err)
	}

	// the lock only lasts until the meeting ends
	if err := s.EndMeeting(cleo.ID); err != nil {
		t.Fatalf("end meeting: %v", err)
	}
	clk.Advance(time.Duration(s.settings.MeetingCooldown)*time.Second + time.Second)
	if _, err := s.CallMeeting(dana.ID, MeetingEmergency); err != nil {
		t.Fatalf("second meeting: %v", err)
	}
	res, err = s.InvokeAbility(bob.ID, AbilityRequest{Kind: AbilityGuessRole, TargetID: dana.ID, Role: RoleCrewmate})
	if err != nil {
		t.Fatalf("guess after reset: %v", err)
	}
	if res.Correct == nil || !*res.Correct {
		t.Fatal("expected a correct guess")
	}
	if dana.Alive {
		t.Fatal("guessed player should be dead")
	}
}

func TestVultureConsumeAndWin(t *testing.T) {
	s, _, _, ps := setupGame(t, RoleImpostor, RoleVulture, RoleCrewmate,
		RoleCrewmate, RoleCrewmate, RoleCrewmate)
	vult, cleo, dana, eve, finn := ps[1], ps[2], ps[3], ps[4], ps[5]
	s.settings.VultureMeals = 2

	if _, err := s.InvokeAbility(vult.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: eve.ID}); err == nil {
		t.Fatal("consuming a living player should fail")
	}
	if err := s.MarkDead(dana.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: dana.ID}); err == nil {
		t.Fatal("only the vulture can consume bodies")
	}
	res, err := s.InvokeAbility(vult.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: dana.ID})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if res.BodiesEaten != 1 || res.MealsNeeded != 2 {
		t.Fatalf("expected 1/2 meals, got %d/%d", res.BodiesEaten, res.MealsNeeded)
	}
	if _, err := s.InvokeAbility(vult.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: dana.ID}); err == nil {
		t.Fatal("consuming the same body twice should fail")
	}

	// bodies on the floor when a meeting opens are discovered for good
	if err := s.MarkDead(eve.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	if _, err := s.CallMeeting(cleo.ID, MeetingBodyReport); err != nil {
		t.Fatalf("body report: %v", err)
	}
	if err := s.EndMeeting(cleo.ID); err != nil {
		t.Fatalf("end meeting: %v", err)
	}
	if _, err := s.InvokeAbility(vult.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: eve.ID}); err == nil {
		t.Fatal("discovered bodies cannot be consumed")
	}

	if err := s.MarkDead(finn.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	if _, err := s.InvokeAbility(vult.ID, AbilityRequest{Kind: AbilityConsumeBody, TargetID: finn.ID}); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if s.Phase() != PhaseEnded {
		t.Fatalf("expected vulture win, got phase %s", s.Phase())
	}
	if winner, _ := s.Winner(); winner != string(RoleVulture) {
		t.Fatalf("expected vulture win, got %s", winner)
	}
}

func TestBountyClaim(t *testing.T) {
	s, _, _, ps := setupGame(t, RoleImpostor, RoleBountyHunter, RoleCrewmate, RoleCrewmate, RoleCrewmate)
	alice, hunter, cleo, dana := ps[0], ps[1], ps[2], ps[3]
	hunter.BountyTargetID = cleo.ID

	if _, err := s.InvokeAbility(hunter.ID, AbilityRequest{Kind: AbilityClaimBounty}); err == nil {
		t.Fatal("claiming a living mark should fail")
	}
	if _, err := s.InvokeAbility(hunter.ID, AbilityRequest{Kind: AbilityClaimBounty, TargetID: dana.ID}); err == nil {
		t.Fatal("claiming a non-mark should fail")
	}

	// put the faction on sabotage cooldown, then verify the claim bonus
	// clears it
	if _, err := s.StartSabotage(alice.ID, SabotageLights); err != nil {
		t.Fatalf("start sabotage: %v", err)
	}
	if _, err := s.ApplySabotageAction(cleo.ID, ActionFix); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if _, err := s.StartSabotage(alice.ID, SabotageLights); err == nil {
		t.Fatal("sabotage within cooldown should fail")
	}

	if err := s.MarkDead(cleo.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	// a self-declared death is unattributed: the mark stays until claimed
	if hunter.BountyTargetID != cleo.ID {
		t.Fatal("mark should not reassign before the claim")
	}
	res, err := s.InvokeAbility(hunter.ID, AbilityRequest{Kind: AbilityClaimBounty})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.BountyKills != 1 {
		t.Fatalf("expected 1 kill, got %d", res.BountyKills)
	}
	if res.BountyTargetID == "" || res.BountyTargetID == cleo.ID {
		t.Fatalf("expected a fresh mark, got %q", res.BountyTargetID)
	}
	if _, err := s.StartSabotage(alice.ID, SabotageLights); err != nil {
		t.Fatalf("sabotage after claim bonus: %v", err)
	}
}

func TestBountyReassignsOnPublicDeath(t *testing.T) {
	s, n, clk, ps := setupGame(t, RoleImpostor, RoleBountyHunter, RoleCrewmate, RoleCrewmate, RoleCrewmate)
	alice, hunter, cleo, dana, eve := ps[0], ps[1], ps[2], ps[3], ps[4]
	hunter.BountyTargetID = cleo.ID

	openVoting(t, s, clk, dana)
	for _, voter := range []*Player{alice, hunter, dana, eve} {
		if err := s.CastVote(voter.ID, cleo.ID); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := s.CastVote(cleo.ID, ""); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if cleo.Alive {
		t.Fatal("expected cleo voted out")
	}
	if hunter.BountyTargetID == cleo.ID || hunter.BountyTargetID == "" {
		t.Fatalf("expected a fresh mark after a public death, got %q", hunter.BountyTargetID)
	}
	ev, ok := n.last(EventBountyTarget)
	if !ok || ev.PlayerID != hunter.ID {
		t.Fatal("expected a private bounty reassignment event")
	}
}

func TestLookoutWatchAlert(t *testing.T) {
	s, n, clk, ps := setupGame(t, RoleImpostor, RoleLookout, RoleCrewmate, RoleCrewmate, RoleCrewmate)
	alice, look, cleo, dana, eve := ps[0], ps[1], ps[2], ps[3], ps[4]

	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityWatchPlayer, TargetID: dana.ID}); err == nil {
		t.Fatal("only the lookout can watch")
	}
	if _, err := s.InvokeAbility(look.ID, AbilityRequest{Kind: AbilityWatchPlayer, TargetID: look.ID}); err == nil {
		t.Fatal("watching yourself should fail")
	}
	if _, err := s.InvokeAbility(look.ID, AbilityRequest{Kind: AbilityWatchPlayer, TargetID: cleo.ID}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := s.MarkDead(cleo.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	ev, ok := n.last(EventWatchAlert)
	if !ok || ev.PlayerID != look.ID {
		t.Fatal("expected a private watch alert")
	}
	if look.WatchTargetID != "" {
		t.Fatal("watch should clear after firing")
	}

	// deaths inside a meeting are public; no alert fires
	if _, err := s.InvokeAbility(look.ID, AbilityRequest{Kind: AbilityWatchPlayer, TargetID: dana.ID}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	openVoting(t, s, clk, eve)
	for _, voter := range []*Player{alice, look, eve} {
		if err := s.CastVote(voter.ID, dana.ID); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := s.CastVote(dana.ID, ""); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if dana.Alive {
		t.Fatal("expected dana voted out")
	}
	if got := n.count(EventWatchAlert); got != 1 {
		t.Fatalf("expected no alert for an in-meeting death, got %d events", got)
	}
}

func TestNoiseMakerAlertsFinder(t *testing.T) {
	s, n, _, ps := setupGame(t, RoleImpostor, RoleNoiseMaker, RoleCrewmate, RoleCrewmate, RoleCrewmate)
	noise, cleo := ps[1], ps[2]

	if _, err := s.InvokeAbility(noise.ID, AbilityRequest{Kind: AbilityAlertFinder, TargetID: cleo.ID}); err == nil {
		t.Fatal("a living noise maker has no alert")
	}
	if err := s.MarkDead(noise.ID); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	if _, err := s.InvokeAbility(cleo.ID, AbilityRequest{Kind: AbilityAlertFinder, TargetID: cleo.ID}); err == nil {
		t.Fatal("only the noise maker can alert a finder")
	}
	if _, err := s.InvokeAbility(noise.ID, AbilityRequest{Kind: AbilityAlertFinder, TargetID: cleo.ID}); err != nil {
		t.Fatalf("alert finder: %v", err)
	}
	ev, ok := n.last(EventNoiseAlert)
	if !ok || ev.PlayerID != cleo.ID {
		t.Fatal("expected a private noise alert to the finder")
	}
	// the report meeting opens on the finder's behalf
	if s.Phase() != PhaseMeeting {
		t.Fatalf("expected a meeting, phase %q", s.Phase())
	}
	if s.meeting.Kind != MeetingBodyReport || s.meeting.CallerID != cleo.ID {
		t.Fatalf("expected a body report called by the finder, got %s by %s", s.meeting.Kind, s.meeting.CallerID)
	}
	if err := s.EndMeeting(cleo.ID); err != nil {
		t.Fatalf("end meeting: %v", err)
	}

	// the meeting discovered the body; no further alerts
	if _, err := s.InvokeAbility(noise.ID, AbilityRequest{Kind: AbilityAlertFinder, TargetID: cleo.ID}); err == nil {
		t.Fatal("discovered bodies raise no alert")
	}
}

package game

import "time"

type SabotageAction string

const (
	ActionFix     SabotageAction = "fix"     // lights
	ActionHold    SabotageAction = "hold"    // reactor
	ActionRelease SabotageAction = "release" // reactor
	ActionFlip    SabotageAction = "flip"    // oxygen
)

// StartSabotage opens a challenge of the given type. Impostor-aligned
// roles other than the Minion may trigger, alive or dead; only one
// sabotage runs at a time and the session cooldown applies.
func (s *Session) StartSabotage(playerID string, typ SabotageType) (*SabotageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if s.phase != PhasePlaying {
		return nil, conflictf("sabotages can only be started during gameplay")
	}
	if !p.Role.CanTriggerSabotage() {
		return nil, forbiddenf("your role cannot trigger sabotages")
	}
	if !s.settings.EnableSabotage {
		return nil, conflictf("sabotages are disabled for this session")
	}
	if !s.settings.SabotageTypes[typ] {
		return nil, invalidf("sabotage type %q is not enabled", typ)
	}
	if s.sabotage != nil {
		return nil, conflictf("a sabotage is already active")
	}
	if s.clock().Before(s.sabotageCooldownUntil) {
		return nil, conflictf("sabotage cooldown has not elapsed")
	}

	sb := &Sabotage{
		Type:      typ,
		StartedBy: p.ID,
		StartedAt: s.clock(),
		Holders:   make(map[string]bool),
	}
	switch typ {
	case SabotageReactor:
		sb.Deadline = s.clock().Add(time.Duration(s.settings.ReactorTimer) * time.Second)
	case SabotageOxygen:
		sb.Deadline = s.clock().Add(time.Duration(s.settings.OxygenTimer) * time.Second)
	}
	s.sabotage = sb
	s.touchLocked()

	view := s.sabotageViewLocked()
	s.notify.Broadcast(s.Code, EventSabotageStarted, view)
	return view, nil
}

// ApplySabotageAction registers one player's contribution to the fix.
// Reactor needs two simultaneous holders, oxygen two switch flips from
// anyone, lights a single fix.
func (s *Session) ApplySabotageAction(playerID string, action SabotageAction) (*SabotageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	sb := s.sabotage
	if sb == nil {
		return nil, conflictf("no sabotage is active")
	}
	if !p.Alive {
		return nil, forbiddenf("dead players cannot work on sabotages")
	}

	switch {
	case sb.Type == SabotageLights && action == ActionFix:
		s.resolveSabotageLocked("fixed")
		return nil, nil
	case sb.Type == SabotageReactor && action == ActionHold:
		sb.Holders[p.ID] = true
		if len(sb.Holders) >= 2 {
			s.resolveSabotageLocked("fixed")
			return nil, nil
		}
	case sb.Type == SabotageReactor && action == ActionRelease:
		delete(sb.Holders, p.ID)
	case sb.Type == SabotageOxygen && action == ActionFlip:
		sb.Switches++
		if sb.Switches >= 2 {
			s.resolveSabotageLocked("fixed")
			return nil, nil
		}
	default:
		return nil, invalidf("action %q does not apply to a %s sabotage", action, sb.Type)
	}

	s.touchLocked()
	view := s.sabotageViewLocked()
	s.notify.Broadcast(s.Code, EventSabotageUpdated, view)
	return view, nil
}

// resolveSabotageLocked clears the active challenge and starts the
// cooldown.
func (s *Session) resolveSabotageLocked(reason string) {
	sb := s.sabotage
	if sb == nil {
		return
	}
	s.sabotage = nil
	s.sabotageCooldownUntil = s.clock().Add(time.Duration(s.settings.SabotageCooldown) * time.Second)
	s.touchLocked()
	s.notify.Broadcast(s.Code, EventSabotageResolved, map[string]any{
		"type":   string(sb.Type),
		"reason": reason,
	})
}

// CheckSabotageTimeout adjudicates a client-signaled deadline expiry on
// a timed sabotage. Reporting after the sabotage already resolved is a
// no-op.
func (s *Session) CheckSabotageTimeout(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[playerID] == nil {
		return ErrPlayerNotFound
	}
	sb := s.sabotage
	if sb == nil || s.phase != PhasePlaying {
		return nil
	}
	if !sb.Timed() {
		return conflictf("%s sabotage has no deadline", sb.Type)
	}
	if s.clock().Before(sb.Deadline) {
		return conflictf("sabotage deadline has not passed")
	}
	typ := sb.Type
	s.sabotage = nil
	s.endGameLocked(winnerImpostors, "the "+string(typ)+" sabotage was not fixed in time")
	return nil
}

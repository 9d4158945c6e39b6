package game

// Faction winner labels; single-player wins use the role name.
const (
	winnerCrew      = "Crew"
	winnerImpostors = "Impostors"
	winnerCancelled = "Cancelled"
)

// evaluateWinLocked checks the standing win conditions in fixed
// precedence order. Vote-out wins (Jester, Executioner) and the
// Vulture's meal count fire at their own trigger points instead.
func (s *Session) evaluateWinLocked() (winner, reason string) {
	if s.crewTaskTotal > 0 && s.taskPercentageLocked() >= 100 {
		return winnerCrew, "all tasks completed"
	}

	var impostorAlive, otherAlive, totalAlive int
	var wolf *Player
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		totalAlive++
		switch p.Role.Category() {
		case CategoryImpostor:
			impostorAlive++
		default:
			otherAlive++
		}
		if p.Role == RoleLoneWolf {
			wolf = p
		}
	}

	if wolf != nil && totalAlive <= 2 && impostorAlive == 0 {
		return string(RoleLoneWolf), wolf.Name + " outlasted everyone"
	}
	if impostorAlive == 0 {
		return winnerCrew, "all impostors eliminated"
	}
	if impostorAlive >= otherAlive {
		return winnerImpostors, "impostors match the remaining players"
	}
	return "", ""
}

func (s *Session) checkWinLocked() {
	if s.phase == PhaseEnded {
		return
	}
	if winner, reason := s.evaluateWinLocked(); winner != "" {
		s.endGameLocked(winner, reason)
	}
}

// endGameLocked finalizes the session: roles are revealed in the
// closing roster and the result is handed to the session recorder.
func (s *Session) endGameLocked(winner, reason string) {
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.winner = winner
	s.winReason = reason
	s.meeting = nil
	s.sabotage = nil
	s.touchLocked()

	s.notify.Broadcast(s.Code, EventGameEnded, map[string]any{
		"winner":         winner,
		"reason":         reason,
		"players":        s.rosterLocked(),
		"taskPercentage": s.taskPercentageLocked(),
	})
	if s.onEnd != nil {
		s.onEnd(s.summaryLocked())
	}
}

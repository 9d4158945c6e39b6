package game

// taskPercentageLocked computes the integer aggregate completion over
// crew-aligned players only. Decoy lists never count, ghost toggles by
// dead crew count exactly like live ones.
func (s *Session) taskPercentageLocked() int {
	if s.crewTaskTotal == 0 {
		return 0
	}
	done := 0
	for _, p := range s.players {
		for _, t := range p.Tasks {
			if !t.Decoy && t.Done {
				done++
			}
		}
	}
	pct := done * 100 / s.crewTaskTotal
	if pct > 100 {
		pct = 100
	}
	return pct
}

// TaskPercentage returns the aggregate completion percentage (0-100).
func (s *Session) TaskPercentage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskPercentageLocked()
}

// ToggleTask sets a task's completion flag. Toggling to the current
// value is an idempotent no-op; the only rejection is a task id that
// does not belong to the caller.
func (s *Session) ToggleTask(playerID, taskID string, done bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return 0, ErrPlayerNotFound
	}
	if s.phase != PhasePlaying {
		return 0, conflictf("game is not in progress")
	}
	var task *Task
	for _, t := range p.Tasks {
		if t.ID == taskID {
			task = t
			break
		}
	}
	if task == nil {
		return 0, notFoundf("task does not belong to you")
	}
	if task.Done == done {
		return s.taskPercentageLocked(), nil
	}
	task.Done = done
	s.touchLocked()

	pct := s.taskPercentageLocked()
	s.notify.Broadcast(s.Code, EventTaskProgress, map[string]any{"taskPercentage": pct})
	s.checkWinLocked()
	return pct, nil
}

package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PlayerOutcome is one roster line of a finished game.
type PlayerOutcome struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Survived bool   `json:"survived"`
}

// GameSummary is the record handed to the result log when a game ends.
type GameSummary struct {
	Code           string          `json:"code"`
	EndedAt        time.Time       `json:"endedAt"`
	Winner         string          `json:"winner"`
	WinReason      string          `json:"winReason"`
	TaskPercentage int             `json:"taskPercentage"`
	Players        []PlayerOutcome `json:"players"`
}

func (s *Session) summaryLocked() GameSummary {
	sum := GameSummary{
		Code:           s.Code,
		EndedAt:        s.clock(),
		Winner:         s.winner,
		WinReason:      s.winReason,
		TaskPercentage: s.taskPercentageLocked(),
	}
	for _, id := range s.order {
		p := s.players[id]
		sum.Players = append(sum.Players, PlayerOutcome{
			Name:     p.Name,
			Role:     p.Role,
			Survived: p.Alive,
		})
	}
	return sum
}

// ResultLog appends finished-game summaries to a text file, one block
// per game.
type ResultLog struct {
	mu   sync.Mutex
	path string
}

func NewResultLog(path string) *ResultLog {
	return &ResultLog{path: path}
}

func (l *ResultLog) Append(sum GameSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session %s - ended %s\n", sum.Code, sum.EndedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Winner: %s (%s)\n", sum.Winner, sum.WinReason))
	sb.WriteString(fmt.Sprintf("Task progress: %d%%\n", sum.TaskPercentage))
	sb.WriteString("Players:\n")
	for _, p := range sum.Players {
		status := "died"
		if p.Survived {
			status = "survived"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", p.Name, p.Role, status))
	}
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

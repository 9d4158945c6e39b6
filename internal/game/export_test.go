package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResultLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.txt")
	log := NewResultLog(path)

	sum := GameSummary{
		Code:           "ABCD",
		EndedAt:        time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Winner:         winnerCrew,
		WinReason:      "all tasks completed",
		TaskPercentage: 100,
		Players: []PlayerOutcome{
			{Name: "Alice", Role: RoleImpostor, Survived: true},
			{Name: "Bob", Role: RoleCrewmate, Survived: false},
		},
	}
	if err := log.Append(sum); err != nil {
		t.Fatalf("append: %v", err)
	}
	sum.Code = "WXYZ"
	if err := log.Append(sum); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"Session ABCD", "Session WXYZ",
		"Winner: Crew (all tasks completed)",
		"- Alice: Impostor (survived)",
		"- Bob: Crewmate (died)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if got := strings.Count(out, strings.Repeat("=", 50)); got != 2 {
		t.Fatalf("expected 2 record separators, got %d", got)
	}
}

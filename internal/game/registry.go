package game

import (
	"strings"
	"sync"
	"time"

	"github.com/valyala/fastrand"
)

// codeAlphabet avoids ambiguous characters; codes are meant to be read
// aloud and typed on a phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 4

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[fastrand.Uint32n(uint32(len(codeAlphabet)))]
	}
	return string(b)
}

// Registry is the process-wide session store. Sessions exist only here
// and only in memory; removal is the end of their life.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	notify  Notifier
	clock   func() time.Time
	results *ResultLog
	onEnd   func(GameSummary)
}

func NewRegistry(notify Notifier) *Registry {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Registry{
		sessions: make(map[string]*Session),
		notify:   notify,
		clock:    time.Now,
	}
}

// SetResultLog makes new sessions append their summary to log when
// they end. Existing sessions are unaffected.
func (r *Registry) SetResultLog(log *ResultLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = log
}

// OnGameEnd registers a hook run for every finished game, after the
// result log.
func (r *Registry) OnGameEnd(fn func(GameSummary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEnd = fn
}

// Create makes a new session with its host player.
func (r *Registry) Create(hostName string, settings Settings) (*Session, *Player, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, nil, invalidf("player name is required")
	}
	if settings.RoleWeights == nil {
		settings = DefaultSettings()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	code := randomCode(codeLength)
	for r.sessions[code] != nil {
		code = randomCode(codeLength)
	}
	s := newSession(code, settings, r.notify, r.clock)
	results, hook := r.results, r.onEnd
	if results != nil || hook != nil {
		s.onEnd = func(sum GameSummary) {
			if results != nil {
				go results.Append(sum)
			}
			if hook != nil {
				hook(sum)
			}
		}
	}
	s.mu.Lock()
	host := s.addPlayerLocked(hostName, true)
	s.mu.Unlock()
	r.sessions[code] = s
	return s, host, nil
}

// Get resolves a session by its case-insensitive code.
func (r *Registry) Get(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[strings.ToUpper(code)]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// FindByToken locates a player by session token across all sessions.
func (r *Registry) FindByToken(token string) (*Session, *Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if p, err := s.PlayerByToken(token); err == nil {
			return s, p, nil
		}
	}
	return nil, nil, ErrSessionNotFound
}

// Remove drops a session from the store.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, strings.ToUpper(code))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions nobody can come back to: ended or fully
// disconnected ones idle longer than maxIdle. Returns how many were
// dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock().Add(-maxIdle)
	removed := 0
	for code, s := range r.sessions {
		s.mu.Lock()
		stale := s.lastActivity.Before(cutoff) && (s.phase == PhaseEnded || !s.anyConnectedLocked())
		s.mu.Unlock()
		if stale {
			delete(r.sessions, code)
			removed++
		}
	}
	return removed
}

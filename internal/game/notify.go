package game

// Notification event names. Everything is broadcast to the whole
// session except the events documented as private, which go to exactly
// one player.
const (
	EventRosterChanged    = "roster_changed"
	EventSettingsChanged  = "settings_changed"
	EventGameStarted      = "game_started"
	EventRoleAssigned     = "role_assigned" // private
	EventTaskProgress     = "task_progress"
	EventPlayerDied       = "player_died"
	EventMeetingCalled    = "meeting_called"
	EventVotingStarted    = "voting_started"
	EventVoteCast         = "vote_cast"
	EventVoteResults      = "vote_results"
	EventMeetingEnded     = "meeting_ended"
	EventSabotageStarted  = "sabotage_started"
	EventSabotageUpdated  = "sabotage_updated"
	EventSabotageResolved = "sabotage_resolved"
	EventGuessResult      = "guess_result"
	EventNoiseAlert       = "noise_alert"    // private
	EventBodyConsumed     = "body_consumed"  // private
	EventBountyTarget     = "bounty_target"  // private
	EventWatchAlert       = "watch_alert"    // private
	EventRoleConverted    = "role_converted" // private
	EventGameEnded        = "game_ended"
)

// Notifier fans session events out to connected clients. Calls are made
// while the session lock is held, so implementations must be
// non-blocking and must never call back into the session.
type Notifier interface {
	Broadcast(code, event string, payload any)
	SendTo(code, playerID, event string, payload any)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Broadcast(code, event string, payload any)        {}
func (NopNotifier) SendTo(code, playerID, event string, payload any) {}

package intake

// State is a step of a single submission's lifecycle.
type State string

const (
	StateReceived              State = "received"
	StateValidated             State = "validated"
	StateInviteBuilt           State = "invite_built"
	StateLinksBuilt            State = "links_built"
	StateNotificationAttempted State = "notification_attempted"
	StatePersisted             State = "persisted"
	StateResponded             State = "responded"

	StateRejectedValidation State = "rejected_validation"
	StateRejectedSpam       State = "rejected_spam"
	StateFailedServer       State = "failed_server"
)

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	switch s {
	case StateResponded, StateRejectedValidation, StateRejectedSpam, StateFailedServer:
		return true
	}
	return false
}

// outcome is the metrics label for a terminal state.
func (s State) outcome() string {
	switch s {
	case StateResponded:
		return "accepted"
	case StateRejectedValidation:
		return "invalid"
	case StateRejectedSpam:
		return "spam"
	default:
		return "error"
	}
}

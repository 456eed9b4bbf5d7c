package social

// Phase is where an authentication attempt currently is.
//
//	Initiated -> AwaitingCallback -> StateValidated -> TokenExchanged
//	          -> ProfileFetched -> Completed
//
// Any failure moves the attempt to Rejected, which is terminal.
type Phase int

const (
	PhaseInitiated Phase = iota
	PhaseAwaitingCallback
	PhaseStateValidated
	PhaseTokenExchanged
	PhaseProfileFetched
	PhaseCompleted
	PhaseRejected
)

var phaseNames = [...]string{
	PhaseInitiated:        "initiated",
	PhaseAwaitingCallback: "awaiting_callback",
	PhaseStateValidated:   "state_validated",
	PhaseTokenExchanged:   "token_exchanged",
	PhaseProfileFetched:   "profile_fetched",
	PhaseCompleted:        "completed",
	PhaseRejected:         "rejected",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == PhaseCompleted || p == PhaseRejected }

// attempt walks one callback through the phases. Transitions only go
// forward and stop at a terminal phase.
type attempt struct {
	phase Phase
	// failedIn is the last non-terminal phase reached before rejection.
	failedIn Phase
}

func (a *attempt) advance(to Phase) {
	if a.phase.Terminal() || to <= a.phase {
		return
	}
	a.phase = to
}

func (a *attempt) reject() {
	if a.phase.Terminal() {
		return
	}
	a.failedIn = a.phase
	a.phase = PhaseRejected
}

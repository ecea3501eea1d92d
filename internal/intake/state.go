package intake

// Phase is the submission lifecycle of an intake session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// State is the current phase. Reason is only set for PhaseFailed.
type State struct {
	Phase  Phase
	Reason string
}

// Submitting reports whether the submit trigger must be disabled.
func (s State) Submitting() bool {
	return s.Phase == PhaseSubmitting
}

// NoticeKind distinguishes success and failure notifications.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeFailure NoticeKind = "error"
)

// Notice is a one-shot message shown to the user after a submission settles.
type Notice struct {
	Kind  NoticeKind
	Title string
	Text  string
}

var (
	registeredNotice = Notice{
		Kind:  NoticeSuccess,
		Title: "Product registered",
		Text:  "Your product has been created!",
	}
	failedNotice = Notice{
		Kind:  NoticeFailure,
		Title: "Registration failed",
		Text:  "Your product could not be registered. Please try again.",
	}
)

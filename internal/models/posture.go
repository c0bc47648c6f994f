package models

type PostureState string

const (
	PostureNormal    PostureState = "normal"
	PostureSuspended PostureState = "suspended"
	PosturePanicked  PostureState = "panicked"
)

// SafetyPosture holds two independent axes: a hard panic lock that needs an
// unlock with presence, and a soft suspend that needs a resume with presence.
type SafetyPosture struct {
	PanicLocked      bool   `json:"panic_locked"`
	PanicReason      string `json:"panic_reason,omitempty"`
	Suspended        bool   `json:"suspended"`
	SuspendReason    string `json:"suspend_reason,omitempty"`
	HardMode         bool   `json:"hard_mode"`
	AutopanicEnabled bool   `json:"autopanic_enabled"`
}

// State collapses both axes; a panic lock dominates a suspend.
func (p SafetyPosture) State() PostureState {
	switch {
	case p.PanicLocked:
		return PosturePanicked
	case p.Suspended:
		return PostureSuspended
	default:
		return PostureNormal
	}
}

func (p PostureState) Code() int {
	switch p {
	case PostureSuspended:
		return 1
	case PosturePanicked:
		return 2
	default:
		return 0
	}
}

package models

const StateVersion = 1

// State is the persisted envelope of every durable entity.
type State struct {
	Version   int              `json:"version"`
	Binding   PerimeterBinding `json:"binding"`
	Posture   SafetyPosture    `json:"posture"`
	Media     MediaState       `json:"media"`
	Snapshot  PanicSnapshot    `json:"snapshot"`
	Restore   RestoreMemory    `json:"restore"`
	Protected ProtectedUser    `json:"protected"`
}

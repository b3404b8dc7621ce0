package domain

// AgentState is the engine-imposed state of a call-center agent.
type AgentState string

const (
	AgentIdle      AgentState = "Idle"
	AgentWaiting   AgentState = "Waiting"
	AgentInCall    AgentState = "In a queue call"
	AgentLoggedOut AgentState = "Logged Out"
)

// Agent statuses pushed to the provider's call-center control plane.
const (
	StatusAvailable = "Available"
	StatusLoggedOut = "Logged Out"
	StatusBusy      = "Busy"
)

// AgentEntry is one roster record from the agents JSON file.
type AgentEntry struct {
	Extension string `json:"Extension"`
	Name      string `json:"Name,omitempty"`
	// IsAgent distinguishes agents from supervisors. Supervisors are set
	// idle before queue handoff; only agents receive calls.
	IsAgent bool `json:"IsAgent"`
}

// AgentsDocument is the top-level wrapper of the agents JSON file.
type AgentsDocument struct {
	Agents []AgentEntry `json:"Agents"`
	// QueueName overrides the default queue the calls are dispatched to.
	QueueName string `json:"QueueName,omitempty"`
}

// RecordingProfile bounds a recording node: how long the caller may speak
// and what the captured file is called.
type RecordingProfile struct {
	RecordingTypeID int    `json:"RecordingTypeId"`
	Name            string `json:"Name,omitempty"`
	MaxDuration     int    `json:"MaxDuration"` // seconds
	FilenamePrefix  string `json:"FilenamePrefix"`
}

// RecordingsDocument is the top-level wrapper of the recording profiles file.
type RecordingsDocument struct {
	Profiles []RecordingProfile `json:"RecordingProfiles"`
}

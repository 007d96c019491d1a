package upload

import "github.com/analyzere/analyzere-go/resource"

// State is the lifecycle of an upload session. The processing states are
// reported by the server; the others track the local steps.
type State int

const (
	Uninitiated State = iota
	Initiated
	Uploading
	Committed
	ProcessingSuccessful
	ProcessingFailed
)

var stateNames = map[State]string{
	Uninitiated:          "Uninitiated",
	Initiated:            "Initiated",
	Uploading:            "Uploading",
	Committed:            "Committed",
	ProcessingSuccessful: "Processing Successful",
	ProcessingFailed:     "Processing Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s State) Terminal() bool {
	return s == ProcessingSuccessful || s == ProcessingFailed
}

// ParseState maps a server status string to a State.
func ParseState(value string) (State, bool) {
	for state, name := range stateNames {
		if name == value {
			return state, true
		}
	}
	return Uninitiated, false
}

// Status is the server's view of an upload.
type Status struct {
	Status         string  `mapstructure:"status"`
	CommitProgress float64 `mapstructure:"commit_progress"`

	// Object holds every attribute the server returned.
	Object *resource.Object `mapstructure:"-"`
}

func (s *Status) State() State {
	state, _ := ParseState(s.Status)
	return state
}

func (s *Status) Terminal() bool {
	return s.State().Terminal()
}

func decodeStatus(obj *resource.Object) (*Status, error) {
	status := &Status{Object: obj}
	if err := obj.Decode(status); err != nil {
		return nil, err
	}
	return status, nil
}

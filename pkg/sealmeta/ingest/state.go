package ingest

// State is a phase of a run. A run moves through the states in order and
// never goes back.
type State int

const (
	Initializing State = iota
	Bootstrapping
	Ingesting
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Bootstrapping:
		return "bootstrapping"
	case Ingesting:
		return "ingesting"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

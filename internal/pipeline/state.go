package pipeline

// State is the stage a run is in.
type State int32

const (
	Starting State = iota
	PageLoading
	ManifestWait
	ResolutionProbing
	Extracting
	Completed
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case PageLoading:
		return "PageLoading"
	case ManifestWait:
		return "ManifestWait"
	case ResolutionProbing:
		return "ResolutionProbing"
	case Extracting:
		return "Extracting"
	case Completed:
		return "Completed"
	case TimedOut:
		return "TimedOut"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == Completed || s == TimedOut || s == Failed
}

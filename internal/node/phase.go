package node

// Phase is the lifecycle position of a node within one run.
type Phase int

const (
	Constructed Phase = iota
	StateSnapshotted
	DependenciesCollected
	Initialized
	Ran
	OutputsPersisted
	CleanedUp
)

var phaseNames = [...]string{
	"constructed",
	"state_snapshotted",
	"dependencies_collected",
	"initialized",
	"ran",
	"outputs_persisted",
	"cleaned_up",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

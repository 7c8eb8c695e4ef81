package actions

// Kind enumerates every action the environment can run. The set is closed:
// adding a Kind requires a catalog entry and a handler binding, both checked
// when a registry is built.
type Kind int

const (
	ListFiles Kind = iota
	ReadFile
	WriteFile
	AppendFile
	CopyFile
	UndoEditScript
	ExecuteScript
	RequestHelp
	FinalAnswer

	UnderstandFile
	SummaryProgress
	AppendResearchLog
	InspectScriptLines
	EditScript
	EditScriptSegment
	ExecuteExperiment
	Reflection
	RetrieveResearchLog
	PlanExperiment

	kindCount
)

// Kinds returns every Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k names a catalog entry.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// String returns the action name.
func (k Kind) String() string {
	if !k.Valid() {
		return "Unknown"
	}
	return catalog[k].Name
}

// Lookup maps an action name to its Kind.
func Lookup(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

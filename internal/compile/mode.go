package compile

// Mode selects between the two compilation pipelines.
//
// ModeFinalized stores finished aggregate values in the backing table; the
// user view reads columns directly. ModePartial is the legacy pipeline: it
// stores opaque partial aggregate state and the user view re-aggregates
// through finalize wrappers. Partial tables written by earlier releases
// must keep compiling, so both variants are first-class and every
// component takes the mode explicitly.
type Mode int

const (
	ModeFinalized Mode = iota
	ModePartial
)

func (m Mode) String() string {
	if m == ModePartial {
		return "partial"
	}
	return "finalized"
}

// Options are the caller-facing knobs accepted by Compile.
type Options struct {
	// Finalized selects ModeFinalized when true.
	Finalized bool

	// MaterializedOnly disables the real-time union: the user view reads
	// only materialized history.
	MaterializedOnly bool

	// CreateGroupIndexes adds one index per auxiliary group column on the
	// backing table.
	CreateGroupIndexes bool
}

// DefaultOptions matches the documented creation defaults.
func DefaultOptions() Options {
	return Options{
		Finalized:          true,
		MaterializedOnly:   false,
		CreateGroupIndexes: true,
	}
}

// Mode maps the boolean option onto the pipeline mode.
func (o Options) Mode() Mode {
	if o.Finalized {
		return ModeFinalized
	}
	return ModePartial
}

package formula

// Commands are the only bridge between pure evaluation and mutation.
// Evaluating set()/add()/debug() yields one of the types below wrapped in an
// Object value; the engine later executes it exactly once. A Command is
// itself a Callable so it can flow through list combinators untouched.

// SetCommand assigns a field on a mutable callable when executed.
type SetCommand struct {
	Target MutableCallable
	Key    string
	Val    Value
}

func (c *SetCommand) GetValue(string) Value { return Null }
func (c *SetCommand) Inputs() []Input       { return nil }

// Apply performs the assignment. A nil target is a stale reference and is
// skipped; see the engine's permissive-recovery policy.
func (c *SetCommand) Apply() {
	if c.Target != nil {
		c.Target.SetValue(c.Key, c.Val)
	}
}

// AddCommand reads a field, adds a delta and writes it back when executed.
type AddCommand struct {
	Target MutableCallable
	Key    string
	Val    Value
}

func (c *AddCommand) GetValue(string) Value { return Null }
func (c *AddCommand) Inputs() []Input       { return nil }

// Apply performs the read-modify-write. Evaluation is single-threaded so the
// non-atomicity is unobservable.
func (c *AddCommand) Apply() {
	if c.Target != nil {
		c.Target.SetValue(c.Key, c.Target.GetValue(c.Key).Add(c.Val))
	}
}

// DebugCommand emits a diagnostic message when executed. The engine decides
// where it goes (log plus a debug_message broadcast).
type DebugCommand struct {
	Text string
}

func (c *DebugCommand) GetValue(string) Value { return Null }
func (c *DebugCommand) Inputs() []Input       { return nil }

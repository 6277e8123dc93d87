package trap

// Handler processes one classified trap. It returns an error only for
// conditions the caller should treat as fatal (no handler registered,
// or the handler itself failing); recoverable conditions like a
// resolvable page fault are handled entirely within the Handler.
type Handler func(Context) error

// Dispatcher routes a classified trap to the handler registered for
// its Cause, separately for the synchronous and asynchronous cause
// spaces (spec.md §4.5, "dispatch table for sync vs async causes").
// Grounded on the teacher's table-driven syscall dispatch in
// biscuit/src/kernel/chentry.go, generalized from a single flat table
// to one per trap class since sync and async causes never collide on
// the same code value.
type Dispatcher struct {
	sync  map[Cause]Handler
	async map[Cause]Handler
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sync:  make(map[Cause]Handler),
		async: make(map[Cause]Handler),
	}
}

// RegisterSync installs the handler for a synchronous cause.
func (d *Dispatcher) RegisterSync(cause Cause, h Handler) {
	d.sync[cause] = h
}

// RegisterAsync installs the handler for an asynchronous cause.
func (d *Dispatcher) RegisterAsync(cause Cause, h Handler) {
	d.async[cause] = h
}

// UnhandledCauseError reports a trap whose classified cause has no
// registered handler.
type UnhandledCauseError struct {
	Cause Cause
	Async bool
}

func (e *UnhandledCauseError) Error() string {
	kind := "synchronous"
	if e.Async {
		kind = "asynchronous"
	}
	return "trap: no handler registered for " + kind + " cause " + e.Cause.String()
}

// Dispatch routes ctx to its registered handler, or returns
// UnhandledCauseError if none was registered for its cause.
func (d *Dispatcher) Dispatch(ctx Context) error {
	table := d.sync
	if ctx.Async {
		table = d.async
	}
	h, ok := table[ctx.Cause]
	if !ok {
		return &UnhandledCauseError{Cause: ctx.Cause, Async: ctx.Async}
	}
	return h(ctx)
}

package lint

// Event is a driver notification delivered to subscribers.
type Event any

type (
	// EventCheckStarted indicates that a check pass has started.
	EventCheckStarted struct{}

	// EventCheckFinished indicates that a check pass has ended. It carries
	// the result, or the error that stopped the pass.
	EventCheckFinished struct {
		Result *Result
		Err    error
	}

	// EventInvalidated indicates that a watched ruleset changed and the
	// checker cache was cleared.
	EventInvalidated struct {
		Path string
	}
)

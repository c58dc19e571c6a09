package dispatcher

// Logger is the subset of fiber's log.CommonLogger the dispatcher writes to.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

// Dispatcher turns a path token into a canned response and emits one log
// record per call. It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	logger Logger
}

func New(logger Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Dispatch(token string) Result {
	result := Parse(token).Result()
	d.observe(token, result)
	return result
}

func (d *Dispatcher) observe(token string, result Result) {
	if d == nil || d.logger == nil {
		return
	}

	// A broken logger must never turn into a failed request.
	defer func() {
		_ = recover()
	}()

	switch result.Outcome {
	case OutcomeOK:
		d.logger.Infow("Returning 200 OK response", "status", result.StatusCode)
	case OutcomeBadRequest:
		d.logger.Warnw("Returning 400 Bad Request response", "status", result.StatusCode)
	case OutcomeServerError:
		d.logger.Warnw("Returning 500 Internal Server Error response", "status", result.StatusCode)
	default:
		d.logger.Warnw("Unknown status code requested", "code", token, "status", result.StatusCode)
	}
}

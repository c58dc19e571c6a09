package dispatcher

import "fmt"

// Outcome is the closed set of responses the server can produce.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeOK
	OutcomeBadRequest
	OutcomeServerError
)

// Result is the status code and body written for a single request, along
// with the outcome that produced them.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       string
}

// Outcomes lists every outcome, fallback included.
var Outcomes = []Outcome{OutcomeOK, OutcomeBadRequest, OutcomeServerError, OutcomeUnknown}

// Parse classifies a path token. Only exact matches are recognised; anything
// else, including the empty string, is OutcomeUnknown.
func Parse(token string) Outcome {
	switch token {
	case "200":
		return OutcomeOK
	case "400":
		return OutcomeBadRequest
	case "500":
		return OutcomeServerError
	default:
		return OutcomeUnknown
	}
}

func (o Outcome) Result() Result {
	switch o {
	case OutcomeOK:
		return Result{Outcome: OutcomeOK, StatusCode: 200, Body: "OK"}
	case OutcomeBadRequest:
		return Result{Outcome: OutcomeBadRequest, StatusCode: 400, Body: "Bad Request"}
	case OutcomeServerError:
		return Result{Outcome: OutcomeServerError, StatusCode: 500, Body: "Internal Server Error"}
	default:
		return Result{Outcome: OutcomeUnknown, StatusCode: 404, Body: "Not Found"}
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeServerError:
		return "server_error"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ParseOutcomeName is the inverse of Outcome.String.
func ParseOutcomeName(name string) (Outcome, error) {
	for _, o := range Outcomes {
		if o.String() == name {
			return o, nil
		}
	}
	return OutcomeUnknown, fmt.Errorf("invalid outcome: %q", name)
}

// Resolve maps a token straight to its result without logging.
func Resolve(token string) Result {
	return Parse(token).Result()
}

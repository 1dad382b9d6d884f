package refdata

import "fmt"

const MsgMissingCSRF = "CSRF token not found in cookie"

// ConfigError blocks all network access for the load cycle.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// EmptyDataError is a soft error: the resource answered with an empty list.
type EmptyDataError struct {
	Resource Resource
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("No %s data received from the server.", e.Resource.noun())
}

type Kind int

const (
	// KindStatus: the server answered with a non-2xx status.
	KindStatus Kind = iota + 1
	// KindNoResponse: the request was sent but no response came back.
	KindNoResponse
	// KindOther: anything else, such as a bad URL or an undecodable body.
	KindOther
)

type NetworkError struct {
	Resource Resource
	Kind     Kind
	Status   int
	Body     string
	Err      error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("HTTP error! status: %d, data: %s", e.Status, e.Body)
	case KindNoResponse:
		return "Error: No response received from the server."
	default:
		if e.Err == nil {
			return "Error: unknown failure"
		}
		return "Error: " + e.Err.Error()
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

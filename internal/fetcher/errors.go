package fetcher

import "fmt"

// Error reports a driver that could not start, load or release a page
type Error struct {
	Driver  string
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s fetcher: %s", e.Driver, e.Message)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

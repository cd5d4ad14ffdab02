// Package neo talks to the NEO core: the generative backend that produces
// inspection reports.
package neo

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrInvalidAPIKey indicates the backend rejected the configured credentials.
	ErrInvalidAPIKey = errors.New("neo: invalid api key")
	// ErrOverloaded indicates the backend throttled the request.
	ErrOverloaded = errors.New("neo: core overloaded")
	// ErrMalformedReport indicates the backend answered with something that is not a report.
	ErrMalformedReport = errors.New("neo: malformed report")
	// ErrEmptyTarget indicates an inspection was requested without a target.
	ErrEmptyTarget = errors.New("neo: target is required")
)

// FetchError is the failure of one report fetch. It is fatal for the
// inspection that requested it.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return "fetch report for " + e.Target + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage renders err the way operators see it on the dashboard.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAPIKey):
		return "Connection to NEO core failed: Invalid API key. Please check your credentials."
	case errors.Is(err, ErrOverloaded):
		return "NEO core is overloaded. Please wait a moment before retrying the trace."
	case errors.Is(err, ErrMalformedReport):
		return "Received malformed data from the AI. The response was not valid JSON."
	}
	msg := err.Error()
	var fe *FetchError
	if errors.As(err, &fe) {
		msg = fe.Err.Error()
	}
	return "An unexpected error occurred: " + msg
}

// classify maps a backend error onto the package sentinels.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
			return errors.Join(ErrOverloaded, err)
		case strings.Contains(apiErr.Message, "API key not valid"):
			return errors.Join(ErrInvalidAPIKey, err)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key not valid"):
		return errors.Join(ErrInvalidAPIKey, err)
	case strings.Contains(msg, "429"):
		return errors.Join(ErrOverloaded, err)
	}
	return err
}

package parser

import "fmt"

// NoConfigurationMatchError is returned when no loaded configuration's
// marketplace URLs match the requested URL.
type NoConfigurationMatchError struct {
	URL string
}

func (e *NoConfigurationMatchError) Error() string {
	return fmt.Sprintf("couldn't find configuration for the following url: %s", e.URL)
}

// InvalidURLError is returned when the URL fails syntactic validation.
type InvalidURLError struct {
	URL    string
	Reason error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("url is invalid, please check it out: %s: %v", e.URL, e.Reason)
}

func (e *InvalidURLError) Unwrap() error { return e.Reason }

// FetchFailedError is returned when the page fetch did not yield HTTP 200.
// StatusCode is zero for transport-level failures.
type FetchFailedError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed for url %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("response code was: %d, couldn't parse url: %s", e.StatusCode, e.URL)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// fieldError is fatal to one field only; the parse continues with the field
// left unset.
type fieldError struct {
	Field  string
	Detail string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Detail)
}

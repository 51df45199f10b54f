package scraper

import (
	"fmt"
)

// NoAdapterError means no registered adapter accepts the URL. It is not
// retriable until an adapter for the origin is added.
type NoAdapterError struct {
	URL string
}

func (e *NoAdapterError) Error() string {
	return fmt.Sprintf("no adapter can handle url %q", e.URL)
}

// AdapterError wraps a failure raised while an adapter parsed a page.
type AdapterError struct {
	Adapter string
	URL     string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s failed on %s: %v", e.Adapter, e.URL, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// FetchError is a transport failure or a non-2xx answer. Callers may retry by
// scraping again.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %s", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

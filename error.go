package scraper

import (
	"fmt"
	"net/url"
	"time"
)

type RetryAndRecordError struct {
	Filename string
}

func (error RetryAndRecordError) Error() string {
	return fmt.Sprintf("Record file '%v' is missing while replaying! Retry with 'record' mode!", error.Filename)
}

type RequestError struct {
	RequestURL *url.URL
	Err        error
}

func (err RequestError) Error() string {
	return fmt.Sprintf("%v request error: %v", err.RequestURL.String(), err.Err)
}

func (err RequestError) Unwrap() error { return err.Err }

type ResponseError struct {
	RequestURL *url.URL
	Status     string
	StatusCode int
}

func (err ResponseError) Error() string {
	return fmt.Sprintf("%v response code: %v", err.RequestURL.String(), err.Status)
}

// NavigationError means the browser (or HTTP client) could not reach the report page at all.
// It ends the whole run, not just the current day.
type NavigationError struct {
	URL string
	Err error
}

func (error NavigationError) Error() string {
	return fmt.Sprintf("navigation to %v failed: %v", error.URL, error.Err)
}

func (error NavigationError) Unwrap() error { return error.Err }

// ForbiddenError is returned when the site answers 403 or serves its "403 Forbidden" page.
type ForbiddenError struct {
	URL string
}

func (error ForbiddenError) Error() string {
	return fmt.Sprintf("%v: 403 Forbidden", error.URL)
}

type NotReadyError struct {
	What    string
	Timeout time.Duration
}

func (error NotReadyError) Error() string {
	return fmt.Sprintf("%v not ready within %v", error.What, error.Timeout)
}

type DownloadError struct {
	Message string
}

func (error DownloadError) Error() string {
	return fmt.Sprintf("download failed. %v", error.Message)
}

type UnexpectedContentTypeError struct {
	ContentType string
}

func (error UnexpectedContentTypeError) Error() string {
	return fmt.Sprintf("Unexpected Content-Type received: %v", error.ContentType)
}

// UnsupportedModeError is returned by a backend asked for a loading mode it cannot drive.
type UnsupportedModeError struct {
	Backend string
	Mode    LoadMode
}

func (error UnsupportedModeError) Error() string {
	return fmt.Sprintf("%v backend does not support %v mode", error.Backend, error.Mode)
}

package entity

import (
	"errors"
	"fmt"

	"github.com/streambinder/hymnal/util"
)

var (
	// ErrNoResults is returned when every source came back empty
	ErrNoResults = errors.New("no results")

	// ErrNoSources is a configuration error: nothing to search on
	ErrNoSources = errors.New("no source selected")

	// ErrNoDownloadURL is the resolution reason for landing
	// pages that do not link any asset
	ErrNoDownloadURL = errors.New("no download link")
)

// AdapterError wraps a network or parse failure within one source
type AdapterError struct {
	Source Source
	Err    error
}

func (err *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *AdapterError) Unwrap() error {
	return err.Err
}

// ResolutionError is returned when a landing page
// cannot be turned into a retrievable asset
type ResolutionError struct {
	URL string
	Err error
}

func (err *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %s", err.URL, err.Err)
}

func (err *ResolutionError) Unwrap() error {
	return err.Err
}

// FetchError is returned when streaming an asset to disk failed,
// no partial file is left behind when it occurs
type FetchError struct {
	URL string
	Err error
}

func (err *FetchError) Error() string {
	return fmt.Sprintf("download failed: %s", err.Err)
}

func (err *FetchError) Unwrap() error {
	return err.Err
}

// CapacityError is returned when a bounded queue refuses items
type CapacityError struct {
	Capacity int
	Dropped  int
}

func (err *CapacityError) Error() string {
	return fmt.Sprintf("queue is limited to %d items, %d dropped", err.Capacity, err.Dropped)
}

// Reason returns a short, user facing description of err
func Reason(err error) string {
	var (
		resolutionErr *ResolutionError
		fetchErr      *FetchError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoResults):
		return "not found"
	case errors.Is(err, ErrNoDownloadURL):
		return "no download link"
	case errors.As(err, &resolutionErr):
		return "resolution failed"
	case errors.As(err, &fetchErr):
		return util.Excerpt(fetchErr.Err.Error(), 30)
	default:
		return util.Excerpt(err.Error(), 30)
	}
}

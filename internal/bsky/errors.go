package bsky

import (
	"errors"
	"fmt"
)

// ErrNoVideo is returned when the post exists but carries no video embed.
var ErrNoVideo = errors.New("no video found in the post")

// ErrInvalidPostURL is returned before any network call when the input is not a post URL.
type ErrInvalidPostURL struct {
	URL    string
	Reason string
}

func (e *ErrInvalidPostURL) Error() string {
	return fmt.Sprintf("invalid post URL %q: %s", e.URL, e.Reason)
}

// ErrIdentityResolution wraps any failure turning a handle into a DID.
type ErrIdentityResolution struct {
	Handle string
	Err    error
}

func (e *ErrIdentityResolution) Error() string {
	return fmt.Sprintf("resolve handle %s: %v", e.Handle, e.Err)
}

func (e *ErrIdentityResolution) Unwrap() error { return e.Err }

// ErrPostFetch wraps any failure loading the post thread.
type ErrPostFetch struct {
	URI string
	Err error
}

func (e *ErrPostFetch) Error() string {
	return fmt.Sprintf("fetch post %s: %v", e.URI, e.Err)
}

func (e *ErrPostFetch) Unwrap() error { return e.Err }

// ErrXRPC is an error answer from an XRPC endpoint.
type ErrXRPC struct {
	Method     string
	StatusCode int
	Code       string // "error" field, e.g. "InvalidRequest"
	Message    string
}

func (e *ErrXRPC) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d %s: %s", e.Method, e.StatusCode, e.Code, e.Message)
}

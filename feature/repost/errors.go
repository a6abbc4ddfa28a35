package repost

import (
	"errors"
	"fmt"
)

// ErrMissingReference signals that a content item lacks the addressable tag
// needed to construct a reference. It is surfaced by callers building a
// request, not by the engine itself.
var ErrMissingReference = errors.New("content item is missing an addressable reference")

// ErrNotAuthenticated is available for callers that gate repost operations on
// session state. The engine itself does not enforce authentication.
var ErrNotAuthenticated = errors.New("not authenticated")

// AlreadyRepostedError is returned when reposting content that is already
// reposted.
type AlreadyRepostedError struct {
	ContentRef string
}

func (e *AlreadyRepostedError) Error() string {
	return fmt.Sprintf("already reposted: %s", e.ContentRef)
}

// NotRepostedError is returned when unreposting content that is not
// reposted.
type NotRepostedError struct {
	ContentRef string
}

func (e *NotRepostedError) Error() string {
	return fmt.Sprintf("not reposted: %s", e.ContentRef)
}

// RepostFailedError is returned when the gateway could not publish the
// repost assertion.
type RepostFailedError struct {
	ContentRef string
	Reason     string
	Err        error
}

func (e *RepostFailedError) Error() string {
	return fmt.Sprintf("repost of %s failed: %s", e.ContentRef, e.Reason)
}

func (e *RepostFailedError) Unwrap() error {
	return e.Err
}

// UnrepostFailedError is returned when the gateway could not publish the
// retraction.
type UnrepostFailedError struct {
	ContentRef string
	Reason     string
	Err        error
}

func (e *UnrepostFailedError) Error() string {
	return fmt.Sprintf("unrepost of %s failed: %s", e.ContentRef, e.Reason)
}

func (e *UnrepostFailedError) Unwrap() error {
	return e.Err
}

// SyncFailedError is returned when a remote sync fails with no usable local
// fallback.
type SyncFailedError struct {
	Reason string
	Err    error
}

func (e *SyncFailedError) Error() string {
	return fmt.Sprintf("repost sync failed: %s", e.Reason)
}

func (e *SyncFailedError) Unwrap() error {
	return e.Err
}

// FetchRepostsFailedError is returned when a read-only fetch of another
// user's reposts fails.
type FetchRepostsFailedError struct {
	Pubkey string
	Reason string
	Err    error
}

func (e *FetchRepostsFailedError) Error() string {
	return fmt.Sprintf("failed to fetch reposts of %s: %s", e.Pubkey, e.Reason)
}

func (e *FetchRepostsFailedError) Unwrap() error {
	return e.Err
}

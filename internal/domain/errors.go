package domain

import "errors"

// Adapter errors
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrNetworkError indicates a network-related failure
	ErrNetworkError = errors.New("network error")

	// ErrUnexpectedResponse indicates the server answered with a status or body we cannot use
	ErrUnexpectedResponse = errors.New("unexpected server response")
)

// Sync errors
var (
	// ErrFileNotFound indicates the local file behind a sync item can no longer be opened
	ErrFileNotFound = errors.New("local file not found")

	// ErrPlatformNotFound indicates no remote platform matches the local platform slug
	ErrPlatformNotFound = errors.New("platform not found on server")

	// ErrGameNotFound indicates no remote game could be matched to a local file
	ErrGameNotFound = errors.New("game not found on server")

	// ErrMissingRecord indicates a comparison lacks the side an action needs
	ErrMissingRecord = errors.New("comparison has no item for this action")

	// ErrInvalidDirection indicates an unknown sync direction
	ErrInvalidDirection = errors.New("invalid sync direction")

	// ErrSyncInProgress indicates another sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSongNotFound       = fmt.Errorf("song not found")
	ErrEntryNotFound      = fmt.Errorf("entry not found")
	ErrMutationPending    = fmt.Errorf("mutation already in flight")
	ErrOffline            = fmt.Errorf("catalog unreachable, serving cached snapshot")

	// Cache errors
	ErrNoSnapshot = fmt.Errorf("no snapshot cached")

	// Playback errors
	ErrPlaybackFailed = fmt.Errorf("playback failed")
	ErrNoSource       = fmt.Errorf("song has no audio source")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

package tasks

import (
	"fmt"

	"github.com/desertthunder/songbook/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSongs Phase = iota
	FetchFavorites
	FetchPlaylist
	SaveSnapshot
	FetchEndpoint
	ExportCollection
)

func (p Phase) String() string {
	switch p {
	case FetchSongs:
		return "fetch_songs"
	case FetchFavorites:
		return "fetch_favorites"
	case FetchPlaylist:
		return "fetch_playlist"
	case SaveSnapshot:
		return "save_snapshot"
	case FetchEndpoint:
		return "fetch_endpoint"
	case ExportCollection:
		return "export_collection"
	default:
		return ""
	}
}

func fetchUpdate(phase Phase, step, total int, msg string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: msg}
}

func endpointUpdate(path string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchEndpoint,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s...", path),
	}
}

func exportingUpdate(step, total int, c models.Collection) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, c.Label()),
	}
}

func exportCompletedUpdate(step, total int, c models.Collection, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, c.Label(), filesCount),
	}
}

func exportFailedUpdate(step, total int, c models.Collection, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, c.Label(), err),
	}
}

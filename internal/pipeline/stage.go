package pipeline

import (
	"time"
)

// Stage is a step of a download. Stages only move forward; any stage may
// move to StageFailed.
type Stage int

const (
	StageIdle Stage = iota
	StageExtractingPostInfo
	StageResolvingIdentity
	StageFetchingPostMetadata
	StageResolvingManifest
	StageDownloadingSegments
	StageComplete
	StageFailed
)

var stageNames = [...]string{
	StageIdle:                 "idle",
	StageExtractingPostInfo:   "extracting_post_info",
	StageResolvingIdentity:    "resolving_identity",
	StageFetchingPostMetadata: "fetching_post_metadata",
	StageResolvingManifest:    "resolving_manifest",
	StageDownloadingSegments:  "downloading_segments",
	StageComplete:             "complete",
	StageFailed:               "failed",
}

var stageStatus = [...]string{
	StageIdle:                 "Waiting...",
	StageExtractingPostInfo:   "Extracting post info...",
	StageResolvingIdentity:    "Resolving DID...",
	StageFetchingPostMetadata: "Fetching post details...",
	StageResolvingManifest:    "Resolving video playlist...",
	StageDownloadingSegments:  "Downloading video segments...",
	StageComplete:             "Video ready for download!",
	StageFailed:               "Download failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Status is the human-readable line shown while in s.
func (s Stage) Status() string {
	if s < 0 || int(s) >= len(stageStatus) {
		return ""
	}
	return stageStatus[s]
}

// Terminal reports whether no further stage follows.
func (s Stage) Terminal() bool { return s == StageComplete || s == StageFailed }

// MarshalText renders the stage name in JSON.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EventKind tells observers what an Event carries.
type EventKind string

const (
	EventStatus   EventKind = "status"
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is one notification from a running download.
type Event struct {
	Kind     EventKind
	Stage    Stage
	Status   string
	Progress float64 // segment fraction; set on progress and done events
	Err      error   // set on error events
	Time     time.Time
}

// Observer receives events synchronously, in order, on the download goroutine.
type Observer func(Event)

package models

// ErrorCode identifies a single-loop validation failure.
type ErrorCode string

const (
	ErrorCodeInvalidName          ErrorCode = "INVALID_NAME"
	ErrorCodeInvalidTimeRange     ErrorCode = "INVALID_TIME_RANGE"
	ErrorCodeNegativeTime         ErrorCode = "NEGATIVE_TIME"
	ErrorCodeZeroDuration         ErrorCode = "ZERO_DURATION"
	ErrorCodeInvalidPlaybackSpeed ErrorCode = "INVALID_PLAYBACK_SPEED"
	ErrorCodeExceedsVideoDuration ErrorCode = "EXCEEDS_VIDEO_DURATION"
	ErrorCodeOverlappingLoops     ErrorCode = "OVERLAPPING_LOOPS"
)

// String returns the code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Message returns a human-readable description of the code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorCodeInvalidName:
		return "loop name is empty or too long"
	case ErrorCodeInvalidTimeRange:
		return "start must be before end and inside the timeline"
	case ErrorCodeNegativeTime:
		return "loop bounds cannot be negative"
	case ErrorCodeZeroDuration:
		return "loop must have a positive duration"
	case ErrorCodeInvalidPlaybackSpeed:
		return "playback speed is out of range"
	case ErrorCodeExceedsVideoDuration:
		return "loop ends after the media"
	case ErrorCodeOverlappingLoops:
		return "loop overlaps another loop"
	default:
		return string(c)
	}
}

// ModificationType describes how the resolver changed a loop.
type ModificationType string

const (
	ModificationRemoved  ModificationType = "removed"
	ModificationTrimmed  ModificationType = "trimmed"
	ModificationRenamed  ModificationType = "renamed"
	ModificationAdjusted ModificationType = "adjusted"
)

// Modification is one entry of a resolution audit trail.
type Modification struct {
	Type   ModificationType `json:"type" yaml:"type"`
	LoopID string           `json:"loop_id" yaml:"loop_id"`
	Reason string           `json:"reason" yaml:"reason"`
	// Before is the loop as it entered the phase that changed it.
	Before Loop `json:"before" yaml:"before"`
	// After is nil for removals.
	After *Loop `json:"after,omitempty" yaml:"after,omitempty"`
}

package health

import (
	"encoding/json"
	"time"
)

// Topics the tracker subscribes to
const (
	TopicPipelineSuccess = "pipeline.success"
	TopicPipelineFailure = "pipeline.failure"
	TopicMidnight        = "midnight"
)

// PipelineSuccessEvent signals a completed pipeline execution
type PipelineSuccessEvent struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Marshal serializes the event to JSON
func (e PipelineSuccessEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalPipelineSuccessEvent deserializes JSON to PipelineSuccessEvent
func UnmarshalPipelineSuccessEvent(data []byte) (PipelineSuccessEvent, error) {
	var event PipelineSuccessEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

// PipelineFailureEvent signals a failed pipeline execution
type PipelineFailureEvent struct {
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Marshal serializes the event to JSON
func (e PipelineFailureEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalPipelineFailureEvent deserializes JSON to PipelineFailureEvent
func UnmarshalPipelineFailureEvent(data []byte) (PipelineFailureEvent, error) {
	var event PipelineFailureEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

// MidnightEvent represents the daily rollover published by the scheduler
type MidnightEvent struct {
	TriggeredAt time.Time `json:"triggered_at"`
}

// Marshal serializes the event to JSON
func (e MidnightEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalMidnightEvent deserializes JSON to MidnightEvent
func UnmarshalMidnightEvent(data []byte) (MidnightEvent, error) {
	var event MidnightEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

package models

import "time"

// TextMessage represents an inbound text message stored in DB
type TextMessage struct {
	ID            int64     `json:"id" db:"id"`
	Sender        string    `json:"sender" db:"sender"`
	Message       string    `json:"message" db:"message"`
	MessageID     *string   `json:"message_id" db:"message_id"`
	IsGroup       bool      `json:"is_group" db:"is_group"`
	GroupName     *string   `json:"group_name" db:"group_name"`
	QuotedMessage *string   `json:"quoted_message" db:"quoted_message"`
	ReceivedAt    time.Time `json:"received_at" db:"received_at"`
	Processed     bool      `json:"processed" db:"processed"`
}

// AudioMessage represents an inbound voice message, optionally with an
// externally produced transcription
type AudioMessage struct {
	ID            int64     `json:"id" db:"id"`
	Sender        string    `json:"sender" db:"sender"`
	AudioBase64   string    `json:"audio_base64" db:"audio_base64"`
	AudioMimeType string    `json:"audio_mime_type" db:"audio_mime_type"`
	Duration      int       `json:"duration" db:"duration"`
	Transcription *string   `json:"transcription" db:"transcription"`
	MessageID     *string   `json:"message_id" db:"message_id"`
	ReceivedAt    time.Time `json:"received_at" db:"received_at"`
	Processed     bool      `json:"processed" db:"processed"`
}

// MediaMessage represents an inbound image, document, video or sticker
type MediaMessage struct {
	ID          int64     `json:"id" db:"id"`
	Sender      string    `json:"sender" db:"sender"`
	MediaBase64 string    `json:"media_base64" db:"media_base64"`
	MediaType   string    `json:"media_type" db:"media_type"`
	MimeType    string    `json:"mime_type" db:"mime_type"`
	FileName    string    `json:"file_name" db:"file_name"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	Caption     *string   `json:"caption" db:"caption"`
	MessageID   *string   `json:"message_id" db:"message_id"`
	ReceivedAt  time.Time `json:"received_at" db:"received_at"`
	Processed   bool      `json:"processed" db:"processed"`
}

// Interaction is one line of the recent-activity feed. It doubles as the
// cross-kind log used for lead deduplication, so every accepted message of
// any kind appends exactly one row here.
type Interaction struct {
	ID        int64     `json:"id" db:"id"`
	Time      string    `json:"time" db:"time"`
	Type      string    `json:"type" db:"type"`
	Message   string    `json:"message" db:"message"`
	Response  string    `json:"response" db:"response"`
	Sender    *string   `json:"sender" db:"sender"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BotStats is the singleton global counters row (id is always 1)
type BotStats struct {
	TotalMessages       int64     `json:"totalMessages" db:"total_messages"`
	AudioConverted      int64     `json:"audioConverted" db:"audio_converted"`
	ResponsesSent       int64     `json:"responsesSent" db:"responses_sent"`
	LeadsAttended       int64     `json:"leadsAttended" db:"leads_attended"`
	AutomationRate      float64   `json:"automationRate" db:"automation_rate"`
	Uptime              float64   `json:"uptime" db:"uptime"`
	AverageResponseTime float64   `json:"averageResponseTime" db:"average_response_time"`
	MessagesPerDay      int64     `json:"messagesPerDay" db:"messages_per_day"`
	TotalMediaMessages  int64     `json:"totalMediaMessages" db:"total_media_messages"`
	LastUpdated         time.Time `json:"lastUpdated" db:"last_updated"`
}

// StatDeltas carries increments for a single IncrementStats upsert
type StatDeltas struct {
	Messages       int64 `json:"incrementMessages"`
	AudioConverted int64 `json:"incrementAudio"`
	ResponsesSent  int64 `json:"incrementResponses"`
	LeadsAttended  int64 `json:"incrementLeads"`
	MediaMessages  int64 `json:"incrementMedia"`
}

// DailyMetric is the per-calendar-day rollup row. The date is the natural
// key, normalized to midnight. TotalMessages = TextMessages + AudioMessages.
type DailyMetric struct {
	ID            int64     `json:"id" db:"id"`
	Date          time.Time `json:"date" db:"date"`
	Day           string    `json:"day" db:"day"`
	TextMessages  int64     `json:"textMessages" db:"text_messages"`
	AudioMessages int64     `json:"audioMessages" db:"audio_messages"`
	TotalMessages int64     `json:"totalMessages" db:"total_messages"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// System health statuses
const (
	StatusActive   = "Ativo"
	StatusDegraded = "Com Falhas"
	StatusCritical = "Crítico"
)

// SystemHealth is the singleton pipeline status row (id is always 1)
type SystemHealth struct {
	Status           string    `json:"status" db:"status"`
	LastExecution    time.Time `json:"lastExecution" db:"last_execution"`
	FailuresLast24h  int64     `json:"failuresLast24h" db:"failures_last_24h"`
	PerformanceScore float64   `json:"performanceScore" db:"performance_score"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

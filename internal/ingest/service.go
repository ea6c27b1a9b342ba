package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/pkg/models"
)

// Store is the persistence surface the ingestion path needs. Message appends
// are pure inserts; counters go through atomic create-or-increment upserts.
// LogInteraction must insert the row and count the sender's interactions in
// the same transaction, serialized per sender, so racing first messages
// cannot both look new.
type Store interface {
	AppendTextMessage(ctx context.Context, m *models.TextMessage) error
	AppendAudioMessage(ctx context.Context, m *models.AudioMessage) error
	AppendMediaMessage(ctx context.Context, m *models.MediaMessage) error
	LogInteraction(ctx context.Context, in *models.Interaction) (senderCount int64, err error)
	IncrementStats(ctx context.Context, d models.StatDeltas) error
	UpsertDailyMetric(ctx context.Context, date time.Time, day string, textDelta, audioDelta int64) error
}

// Service runs the ingestion unit of work: validate, persist, log the
// interaction, decide lead novelty, bump counters and the daily rollup.
type Service struct {
	store  Store
	cfg    *config.Config
	logger *slog.Logger

	now func() time.Time
}

// New creates the ingestion service
func New(store Store, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Result is the synchronous ingestion outcome echoed to the caller
type Result struct {
	Kind          Kind      `json:"type"`
	ID            int64     `json:"id"`
	Sender        string    `json:"sender"`
	DisplaySender string    `json:"displaySender"`
	ReceivedAt    time.Time `json:"receivedAt"`
	IsNewLead     bool      `json:"isNewLead"`
	MessageID     string    `json:"messageId"`
}

// TextInput is the explicit text-ingest request
type TextInput struct {
	Sender        string `json:"sender"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	MessageID     string `json:"messageId"`
	IsGroup       bool   `json:"isGroup"`
	GroupName     string `json:"groupName"`
	QuotedMessage string `json:"quotedMessage"`
}

// AudioInput is the explicit audio-ingest request
type AudioInput struct {
	Sender        string `json:"sender"`
	AudioBase64   string `json:"audioBase64"`
	AudioMimeType string `json:"audioMimeType"`
	Duration      int    `json:"duration"`
	Timestamp     string `json:"timestamp"`
	MessageID     string `json:"messageId"`
	Transcription string `json:"transcription"`
}

// MediaInput is the explicit media-ingest request
type MediaInput struct {
	Sender      string `json:"sender"`
	MediaBase64 string `json:"mediaBase64"`
	MediaType   string `json:"mediaType"`
	MimeType    string `json:"mimeType"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	Timestamp   string `json:"timestamp"`
	MessageID   string `json:"messageId"`
	Caption     string `json:"caption"`
}

var allowedMediaTypes = map[string]string{
	"image":    "🖼️",
	"document": "📄",
	"video":    "🎥",
	"sticker":  "😄",
}

// IngestPayload classifies a unified webhook payload and runs the matching
// kind-specific ingestion.
func (s *Service) IngestPayload(ctx context.Context, p *Payload) (*Result, error) {
	kind, err := Classify(p)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindText:
		return s.IngestText(ctx, &TextInput{
			Sender:    p.Sender,
			Message:   p.Mensagem,
			Timestamp: p.Timestamp,
			MessageID: p.MessageID,
			IsGroup:   p.IsGroup,
			GroupName: p.GroupName,
		})
	case KindAudio:
		return s.IngestAudio(ctx, &AudioInput{
			Sender:        p.Sender,
			AudioBase64:   p.AudioBase64,
			Timestamp:     p.Timestamp,
			MessageID:     p.MessageID,
			Transcription: p.AudioTranscrito,
		})
	case KindImage:
		return s.ingestWebhookMedia(ctx, p, KindImage, p.ImagemBase64, p.ImagemAnalisada)
	default:
		return s.ingestWebhookMedia(ctx, p, KindDocument, p.DocumentoBase64, p.DocumentoConteudo)
	}
}

// IngestText persists a text message and updates derived counters
func (s *Service) IngestText(ctx context.Context, in *TextInput) (*Result, error) {
	sender, display, err := NormalizeSender(in.Sender)
	if err != nil {
		return nil, err
	}
	if in.Message == "" {
		return nil, fmt.Errorf("%w: message", ErrMissingRequiredField)
	}
	if len([]rune(in.Message)) > s.cfg.App.Limits.MaxTextLength {
		return nil, fmt.Errorf("%w: máximo %d caracteres", ErrPayloadTooLarge, s.cfg.App.Limits.MaxTextLength)
	}

	now := s.now()
	receivedAt := ResolveTimestamp(in.Timestamp, now)
	messageID := ResolveMessageID(in.MessageID)

	msg := &models.TextMessage{
		Sender:        sender,
		Message:       in.Message,
		MessageID:     optional(in.MessageID),
		IsGroup:       in.IsGroup,
		GroupName:     optional(in.GroupName),
		QuotedMessage: optional(in.QuotedMessage),
		ReceivedAt:    receivedAt,
	}
	if err := s.store.AppendTextMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist text message: %w", err)
	}

	isNewLead := s.afterPersist(ctx, KindText, sender, s.preview(in.Message), receivedAt, false)

	return &Result{
		Kind:          KindText,
		ID:            msg.ID,
		Sender:        sender,
		DisplaySender: display,
		ReceivedAt:    receivedAt,
		IsNewLead:     isNewLead,
		MessageID:     messageID,
	}, nil
}

// IngestAudio persists a voice message. The raw audio may be absent when the
// pipeline delivered only a transcription.
func (s *Service) IngestAudio(ctx context.Context, in *AudioInput) (*Result, error) {
	sender, display, err := NormalizeSender(in.Sender)
	if err != nil {
		return nil, err
	}
	if in.AudioBase64 == "" && in.Transcription == "" {
		return nil, fmt.Errorf("%w: audioBase64 ou transcription", ErrMissingRequiredField)
	}
	if err := ValidateAudioEncoding(in.AudioBase64); err != nil {
		return nil, err
	}

	now := s.now()
	receivedAt := ResolveTimestamp(in.Timestamp, now)
	messageID := ResolveMessageID(in.MessageID)

	mimeType := in.AudioMimeType
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	msg := &models.AudioMessage{
		Sender:        sender,
		AudioBase64:   in.AudioBase64,
		AudioMimeType: mimeType,
		Duration:      in.Duration,
		Transcription: optional(in.Transcription),
		MessageID:     optional(in.MessageID),
		ReceivedAt:    receivedAt,
	}
	if err := s.store.AppendAudioMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist audio message: %w", err)
	}

	preview := "Mensagem de áudio recebida"
	if in.Transcription != "" {
		preview = "🎤 " + s.preview(in.Transcription)
	}
	isNewLead := s.afterPersist(ctx, KindAudio, sender, preview, receivedAt, in.Transcription != "")

	return &Result{
		Kind:          KindAudio,
		ID:            msg.ID,
		Sender:        sender,
		DisplaySender: display,
		ReceivedAt:    receivedAt,
		IsNewLead:     isNewLead,
		MessageID:     messageID,
	}, nil
}

// IngestMedia persists an image, document, video or sticker
func (s *Service) IngestMedia(ctx context.Context, in *MediaInput) (*Result, error) {
	sender, display, err := NormalizeSender(in.Sender)
	if err != nil {
		return nil, err
	}
	if in.MediaBase64 == "" || in.MediaType == "" {
		return nil, fmt.Errorf("%w: mediaBase64 e mediaType", ErrMissingRequiredField)
	}
	emoji, ok := allowedMediaTypes[in.MediaType]
	if !ok {
		return nil, fmt.Errorf("%w: tipo de mídia não suportado, use image, document, video ou sticker", ErrInvalidEncoding)
	}
	if err := ValidateMediaEncoding(in.MediaBase64); err != nil {
		return nil, err
	}

	fileSize := in.FileSize
	if fileSize == 0 {
		fileSize = DecodedSize(in.MediaBase64)
	}
	if fileSize > s.cfg.App.Limits.MaxMediaBytes {
		return nil, fmt.Errorf("%w: tamanho máximo %dMB", ErrPayloadTooLarge, s.cfg.App.Limits.MaxMediaBytes/(1024*1024))
	}

	now := s.now()
	receivedAt := ResolveTimestamp(in.Timestamp, now)
	messageID := ResolveMessageID(in.MessageID)

	fileName := in.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("%s_%d", in.MediaType, now.UnixMilli())
	}

	msg := &models.MediaMessage{
		Sender:      sender,
		MediaBase64: in.MediaBase64,
		MediaType:   in.MediaType,
		MimeType:    DataURIMimeType(in.MediaBase64, in.MimeType),
		FileName:    fileName,
		FileSize:    fileSize,
		Caption:     optional(in.Caption),
		MessageID:   optional(in.MessageID),
		ReceivedAt:  receivedAt,
	}
	if err := s.store.AppendMediaMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist media message: %w", err)
	}

	preview := emoji + " " + fileName
	if in.Caption != "" {
		preview += " - " + s.preview(in.Caption)
	}
	kind := KindImage
	if in.MediaType != "image" {
		kind = KindDocument
	}
	isNewLead := s.afterPersist(ctx, kind, sender, preview, receivedAt, false)

	return &Result{
		Kind:          kind,
		ID:            msg.ID,
		Sender:        sender,
		DisplaySender: display,
		ReceivedAt:    receivedAt,
		IsNewLead:     isNewLead,
		MessageID:     messageID,
	}, nil
}

// ingestWebhookMedia handles the image/document groups of the unified
// webhook, which carry looser defaults than the explicit media endpoint.
func (s *Service) ingestWebhookMedia(ctx context.Context, p *Payload, kind Kind, dataURI, analysis string) (*Result, error) {
	sender, display, err := NormalizeSender(p.Sender)
	if err != nil {
		return nil, err
	}
	if kind == KindImage {
		if err := ValidateImageEncoding(dataURI); err != nil {
			return nil, err
		}
	} else if err := ValidateMediaEncoding(dataURI); err != nil {
		return nil, err
	}

	fileSize := DecodedSize(dataURI)
	if fileSize > s.cfg.App.Limits.MaxMediaBytes {
		return nil, fmt.Errorf("%w: tamanho máximo %dMB", ErrPayloadTooLarge, s.cfg.App.Limits.MaxMediaBytes/(1024*1024))
	}

	now := s.now()
	receivedAt := ResolveTimestamp(p.Timestamp, now)
	messageID := ResolveMessageID(p.MessageID)

	mediaType, fallbackMime := "image", "image/jpeg"
	fileName := fmt.Sprintf("image_%d.jpg", now.UnixMilli())
	preview := "🖼️ Imagem recebida"
	if analysis != "" {
		preview = "🖼️ Imagem - " + s.preview(analysis)
	}
	if kind == KindDocument {
		mediaType, fallbackMime = "document", "application/octet-stream"
		fileName = fmt.Sprintf("document_%d", now.UnixMilli())
		preview = "📄 Documento recebido"
		if analysis != "" {
			preview = "📄 Documento - " + s.preview(analysis)
		}
	}

	msg := &models.MediaMessage{
		Sender:      sender,
		MediaBase64: dataURI,
		MediaType:   mediaType,
		MimeType:    DataURIMimeType(dataURI, fallbackMime),
		FileName:    fileName,
		FileSize:    fileSize,
		Caption:     optional(analysis),
		MessageID:   optional(p.MessageID),
		ReceivedAt:  receivedAt,
	}
	if err := s.store.AppendMediaMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist media message: %w", err)
	}

	isNewLead := s.afterPersist(ctx, kind, sender, preview, receivedAt, false)

	return &Result{
		Kind:          kind,
		ID:            msg.ID,
		Sender:        sender,
		DisplaySender: display,
		ReceivedAt:    receivedAt,
		IsNewLead:     isNewLead,
		MessageID:     messageID,
	}, nil
}

var interactionTypes = map[Kind]string{
	KindText:     "texto",
	KindAudio:    "áudio",
	KindImage:    "image",
	KindDocument: "document",
}

// afterPersist runs the derived-state updates that follow a successful
// message insert. The message is already safe at this point, so every step
// here is best-effort: failures are logged and the caller still gets a
// success response (counters may drift low, never corrupt).
func (s *Service) afterPersist(ctx context.Context, kind Kind, sender, preview string, receivedAt time.Time, hasTranscription bool) bool {
	now := s.now()

	interaction := &models.Interaction{
		Time:      now.In(s.cfg.Location).Format("15:04"),
		Type:      interactionTypes[kind],
		Message:   preview,
		Response:  s.cfg.App.Labels.ReceivedStatus,
		Sender:    &sender,
		CreatedAt: now,
	}

	isNewLead := false
	senderCount, err := s.store.LogInteraction(ctx, interaction)
	if err != nil {
		s.logger.Error("failed to log interaction",
			slog.String("sender", sender),
			slog.String("error", err.Error()))
	} else {
		// The just-inserted row is part of the count, so the first
		// interaction ever yields exactly 1.
		isNewLead = senderCount == 1
	}

	deltas := models.StatDeltas{Messages: 1}
	if hasTranscription {
		deltas.AudioConverted = 1
	}
	if isNewLead {
		deltas.LeadsAttended = 1
	}
	if kind == KindImage || kind == KindDocument {
		deltas.MediaMessages = 1
	}
	if err := s.store.IncrementStats(ctx, deltas); err != nil {
		s.logger.Error("failed to increment bot stats", slog.String("error", err.Error()))
	}

	// The daily rollup only tracks text and audio; it keys off the message
	// receivedAt date so replayed deliveries land on the right day.
	if kind == KindText || kind == KindAudio {
		day := s.dayOf(receivedAt)
		var textDelta, audioDelta int64
		if kind == KindText {
			textDelta = 1
		} else {
			audioDelta = 1
		}
		if err := s.store.UpsertDailyMetric(ctx, day, s.cfg.DayLabel(receivedAt), textDelta, audioDelta); err != nil {
			s.logger.Error("failed to update daily metric", slog.String("error", err.Error()))
		}
	}

	return isNewLead
}

// ResponseInput is a pre-formatted interaction pushed by the automation
// pipeline after it sends a reply.
type ResponseInput struct {
	Time     string `json:"time"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Response string `json:"response"`
}

// RecordResponse appends an outbound-response interaction and bumps the
// response counters plus today's rollup.
func (s *Service) RecordResponse(ctx context.Context, in *ResponseInput) (*models.Interaction, error) {
	if in.Time == "" || in.Type == "" || in.Message == "" || in.Response == "" {
		return nil, fmt.Errorf("%w: time, type, message e response", ErrMissingRequiredField)
	}
	if in.Type != "texto" && in.Type != "áudio" {
		return nil, fmt.Errorf("%w: type deve ser \"texto\" ou \"áudio\"", ErrMissingRequiredField)
	}

	now := s.now()
	interaction := &models.Interaction{
		Time:      in.Time,
		Type:      in.Type,
		Message:   in.Message,
		Response:  in.Response,
		CreatedAt: now,
	}
	if _, err := s.store.LogInteraction(ctx, interaction); err != nil {
		return nil, fmt.Errorf("failed to log interaction: %w", err)
	}

	deltas := models.StatDeltas{Messages: 1, ResponsesSent: 1}
	var textDelta, audioDelta int64 = 1, 0
	if in.Type == "áudio" {
		deltas.AudioConverted = 1
		textDelta, audioDelta = 0, 1
	}
	if err := s.store.IncrementStats(ctx, deltas); err != nil {
		s.logger.Error("failed to increment bot stats", slog.String("error", err.Error()))
	}
	if err := s.store.UpsertDailyMetric(ctx, s.dayOf(now), s.cfg.DayLabel(now), textDelta, audioDelta); err != nil {
		s.logger.Error("failed to update daily metric", slog.String("error", err.Error()))
	}

	return interaction, nil
}

// dayOf truncates t to midnight in the configured timezone
func (s *Service) dayOf(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// preview truncates long content for the activity feed
func (s *Service) preview(text string) string {
	limit := s.cfg.App.Limits.InteractionPreviewLength
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

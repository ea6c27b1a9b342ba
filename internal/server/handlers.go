package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rcardoso/zapboard/internal/ingest"
	"github.com/rcardoso/zapboard/pkg/models"
)

var kindLabels = map[ingest.Kind]string{
	ingest.KindText:     "texto",
	ingest.KindAudio:    "áudio",
	ingest.KindImage:    "imagem",
	ingest.KindDocument: "documento",
}

// writeIngestError maps service errors to the external contract: validation
// errors are 400 with no side effects; anything else is a server-side
// failure that also feeds the health tracker.
func (s *Server) writeIngestError(w http.ResponseWriter, source string, err error) {
	if ingest.IsValidationError(err) {
		ErrorResponse(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.logger.Error("ingestion failed", slog.String("source", source), slog.String("error", err.Error()))
	s.publishPipelineFailure(source, err.Error())
	ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload ingest.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	result, err := s.ingest.IngestPayload(r.Context(), &payload)
	if err != nil {
		s.writeIngestError(w, "webhook", err)
		return
	}

	s.publishPipelineSuccess("webhook")
	SuccessResponse(w, http.StatusOK, result, "Mensagem de "+kindLabels[result.Kind]+" processada com sucesso")
}

func (s *Server) handleReceiveText(w http.ResponseWriter, r *http.Request) {
	var in ingest.TextInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	result, err := s.ingest.IngestText(r.Context(), &in)
	if err != nil {
		s.writeIngestError(w, "receive-text", err)
		return
	}

	s.publishPipelineSuccess("receive-text")
	SuccessResponse(w, http.StatusOK, result, "Mensagem de texto salva com sucesso")
}

func (s *Server) handleReceiveAudio(w http.ResponseWriter, r *http.Request) {
	var in ingest.AudioInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	result, err := s.ingest.IngestAudio(r.Context(), &in)
	if err != nil {
		s.writeIngestError(w, "receive-audio", err)
		return
	}

	s.publishPipelineSuccess("receive-audio")
	SuccessResponse(w, http.StatusOK, result, "Mensagem de áudio salva com sucesso")
}

func (s *Server) handleReceiveMedia(w http.ResponseWriter, r *http.Request) {
	var in ingest.MediaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	result, err := s.ingest.IngestMedia(r.Context(), &in)
	if err != nil {
		s.writeIngestError(w, "receive-media", err)
		return
	}

	s.publishPipelineSuccess("receive-media")
	SuccessResponse(w, http.StatusOK, result, "Mídia salva com sucesso")
}

func (s *Server) handleGetBotStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.GetBotStats(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}
	if stats == nil {
		stats = &models.BotStats{
			AutomationRate:      0.92,
			Uptime:              0.998,
			AverageResponseTime: 1.2,
			LastUpdated:         time.Now(),
		}
	}

	JSONResponse(w, http.StatusOK, stats)
}

func (s *Server) handleSetBotStats(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TotalMessages       *int64   `json:"totalMessages"`
		AudioConverted      *int64   `json:"audioConverted"`
		ResponsesSent       *int64   `json:"responsesSent"`
		LeadsAttended       *int64   `json:"leadsAttended"`
		AutomationRate      *float64 `json:"automationRate"`
		Uptime              *float64 `json:"uptime"`
		AverageResponseTime *float64 `json:"averageResponseTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	stats, err := s.repo.GetBotStats(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}
	if stats == nil {
		stats = &models.BotStats{AutomationRate: 0.92, Uptime: 0.998, AverageResponseTime: 1.2}
	}

	if in.TotalMessages != nil {
		stats.TotalMessages = *in.TotalMessages
	}
	if in.AudioConverted != nil {
		stats.AudioConverted = *in.AudioConverted
	}
	if in.ResponsesSent != nil {
		stats.ResponsesSent = *in.ResponsesSent
	}
	if in.LeadsAttended != nil {
		stats.LeadsAttended = *in.LeadsAttended
	}
	if in.AutomationRate != nil {
		stats.AutomationRate = *in.AutomationRate
	}
	if in.Uptime != nil {
		stats.Uptime = *in.Uptime
	}
	if in.AverageResponseTime != nil {
		stats.AverageResponseTime = *in.AverageResponseTime
	}

	if err := s.repo.SetBotStats(r.Context(), stats); err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusOK, stats, "Estatísticas atualizadas com sucesso")
}

func (s *Server) handleIncrementBotStats(w http.ResponseWriter, r *http.Request) {
	var deltas models.StatDeltas
	if err := json.NewDecoder(r.Body).Decode(&deltas); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	if err := s.repo.IncrementStats(r.Context(), deltas); err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	stats, err := s.repo.GetBotStats(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusOK, stats, "Contadores incrementados com sucesso")
}

// parseLimit resolves a limit query parameter, falling back to def when
// absent or unparseable and clamping to max so a single request cannot
// stream the whole table.
func parseLimit(raw string, def, max int) int {
	limit := def
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func (s *Server) handleGetInteractions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"),
		s.cfg.App.Limits.DefaultInteractionsLimit, s.cfg.App.Limits.MaxInteractionsLimit)

	interactions, err := s.repo.ListInteractions(r.Context(), limit)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{"interactions": interactions})
}

func (s *Server) handleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	var in ingest.ResponseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}
	if in.Response == "" {
		in.Response = s.cfg.App.Labels.SentStatus
	}

	interaction, err := s.ingest.RecordResponse(r.Context(), &in)
	if err != nil {
		if ingest.IsValidationError(err) {
			ErrorResponse(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusCreated, interaction, "Interação criada com sucesso")
}

func (s *Server) handleGetSystemHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.tracker.Current(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	JSONResponse(w, http.StatusOK, h)
}

func (s *Server) handleSetSystemHealth(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status           *string  `json:"status"`
		FailuresLast24h  *int64   `json:"failuresLast24h"`
		PerformanceScore *float64 `json:"performanceScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "corpo da requisição inválido", "")
		return
	}

	h, err := s.tracker.Set(r.Context(), in.Status, in.FailuresLast24h, in.PerformanceScore)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusOK, h, "Saúde do sistema atualizada com sucesso")
}

func (s *Server) handleRecordSuccess(w http.ResponseWriter, r *http.Request) {
	h, err := s.tracker.RecordSuccess(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusOK, h, "Execução registrada com sucesso")
}

func (s *Server) handleRecordFailure(w http.ResponseWriter, r *http.Request) {
	h, err := s.tracker.RecordFailure(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	SuccessResponse(w, http.StatusOK, h, "Falha registrada com sucesso")
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Erro interno do servidor", err.Error())
		return
	}

	JSONResponse(w, http.StatusOK, snapshot)
}

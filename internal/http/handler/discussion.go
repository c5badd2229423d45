package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"roundtable.app/roundtable/internal/http/dto"
	"roundtable.app/roundtable/internal/queue"
	"roundtable.app/roundtable/internal/service"
	"roundtable.app/roundtable/internal/store"
)

type DiscussionHandler struct {
	svc      *service.Service
	producer queue.Producer
}

func NewDiscussionHandler(svc *service.Service, producer queue.Producer) *DiscussionHandler {
	return &DiscussionHandler{svc: svc, producer: producer}
}

// Create persists an INITIALIZED session and enqueues it for a worker.
func (h *DiscussionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid discussion request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.Create(ctx, req.Topic, req.OrganizationContext)
	if err != nil {
		if errors.Is(err, service.ErrEmptyTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic must not be empty"})
			return
		}
		slog.ErrorContext(ctx, "failed to create session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	task := queue.Task{SessionID: session.ID}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		task.TraceID = spanCtx.TraceID().String()
	}
	if err := h.producer.Enqueue(ctx, task); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue session", "error", err, "session_id", session.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue session"})
		return
	}

	c.JSON(http.StatusAccepted, dto.StartDiscussionResponse{
		SessionID: session.ID,
		Status:    string(session.Status),
		Enqueued:  true,
	})
}

func (h *DiscussionHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := h.svc.Status(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load session status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *DiscussionHandler) GetDetails(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := h.svc.Details(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load session details", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *DiscussionHandler) GetReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	report, err := h.svc.Report(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "session not completed"})
		default:
			slog.ErrorContext(ctx, "failed to render report", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ReportResponse{SessionID: id, Report: report})
}

func (h *DiscussionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	sessions, err := h.svc.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list sessions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, dto.ListSessionsResponse{Sessions: sessions})
}

func (h *DiscussionHandler) Health(c *gin.Context) {
	health := h.svc.Health(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

package httpapi

import (
	"context"
	"errors"
	"hemnet-images/internal/adapters/snsevent"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/port"
	"hemnet-images/internal/core/usecase"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

// IngestRunner запускает конвейер загрузки.
type IngestRunner interface {
	Execute(ctx context.Context) (domain.RunStats, error)
}

// NotificationSender отвечает на входящее письмо.
type NotificationSender interface {
	Execute(ctx context.Context, msg domain.InboundMessage) (*usecase.SendResult, error)
}

type Deps struct {
	Ingest     IngestRunner
	Notify     NotificationSender
	Properties port.PropertyStoragePort

	// запросов в минуту с одного IP, 0 - 60
	RateLimit int
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
	Stats *domain.RunStats `json:"stats,omitempty"`
}

// NewRouter собирает локальный API для ручного запуска операций.
func NewRouter(d Deps) http.Handler {
	limit := d.RateLimit
	if limit <= 0 {
		limit = 60
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(limit, time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]bool{"ok": true})
	})
	r.Post("/ingestions", d.handleIngest)
	r.Post("/notifications", d.handleNotification)
	r.Get("/properties/{propertyID}", d.handleGetProperty)
	return r
}

func (d Deps) handleIngest(w http.ResponseWriter, req *http.Request) {
	stats, err := d.Ingest.Execute(req.Context())
	if err != nil {
		kind, _ := domain.KindOf(err)
		render.Status(req, http.StatusBadGateway)
		render.JSON(w, req, errorResponse{Error: err.Error(), Kind: kind, Stats: &stats})
		return
	}
	render.JSON(w, req, stats)
}

func (d Deps) handleNotification(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 10<<20))
	if err != nil {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, errorResponse{Error: err.Error()})
		return
	}
	msg, err := snsevent.DecodeMessage(body)
	if err != nil {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, errorResponse{Error: err.Error()})
		return
	}

	result, err := d.Notify.Execute(req.Context(), msg)
	if err != nil {
		kind, _ := domain.KindOf(err)
		render.Status(req, statusForKind(kind))
		render.JSON(w, req, errorResponse{Error: err.Error(), Kind: kind})
		return
	}
	render.JSON(w, req, result)
}

func (d Deps) handleGetProperty(w http.ResponseWriter, req *http.Request) {
	propertyID := chi.URLParam(req, "propertyID")

	record, err := d.Properties.Get(req.Context(), propertyID)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, errorResponse{Error: err.Error(), Kind: domain.KindUnknownProperty})
		return
	}
	if err != nil {
		slog.ErrorContext(req.Context(), "HTTPAPI: property lookup failed", slog.String("property_id", propertyID), slog.Any("error", err))
		kind, _ := domain.KindOf(err)
		render.Status(req, http.StatusBadGateway)
		render.JSON(w, req, errorResponse{Error: err.Error(), Kind: kind})
		return
	}
	render.JSON(w, req, record)
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindPatternNotFound:
		return http.StatusUnprocessableEntity
	case domain.KindUnknownProperty:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

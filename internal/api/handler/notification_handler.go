package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/notification-dispatch/internal/api/middleware"
	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// NotificationHandler translates HTTP requests onto the notification service.
type NotificationHandler struct {
	svc      *service.NotificationService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, v *validator.Validate, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, validate: v, logger: logger}
}

// Send handles POST /api/notifications/send
//
// @Summary     Submit a notification for asynchronous delivery
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.CreateNotificationRequest  true  "Notification payload"
// @Success     200   {object}  domain.SendResult
// @Failure     422   {object}  map[string]string
// @Router      /api/notifications/send [post]
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	res, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("submit notification failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// History handles GET /api/notifications/history
//
// @Summary  List the caller's notifications, newest first
// @Tags     notifications
// @Produce  json
// @Param    limit   query     int  false  "Page size (1-100, default 50)"
// @Param    offset  query     int  false  "Rows to skip (default 0)"
// @Success  200     {array}   domain.Notification
// @Router   /api/notifications/history [get]
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := apimw.GetClaims(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusUnprocessableEntity, "offset must be >= 0")
		return
	}

	notifications, err := h.svc.History(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("list history failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to retrieve notification history")
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	respondJSON(w, http.StatusOK, notifications)
}

// GetByID handles GET /api/notifications/{id}
//
// @Summary  Get a notification by ID
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Notification UUID"
// @Success  200  {object}  domain.Notification
// @Failure  403  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Router   /api/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims := apimw.GetClaims(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		mapError(w, domain.ErrNotFound)
		return
	}

	n, err := h.svc.Get(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	if n.UserID != claims.UserID && !claims.Privileged() {
		mapError(w, domain.ErrForbidden)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// Stats handles GET /api/notifications/admin/stats
//
// @Summary  Delivery counts, queue length and worker state
// @Tags     admin
// @Produce  json
// @Success  200  {object}  domain.Stats
// @Failure  403  {object}  map[string]string
// @Router   /api/notifications/admin/stats [get]
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := apimw.GetClaims(r.Context())
	if claims == nil || !claims.Privileged() {
		respondError(w, http.StatusForbidden, "admin access required")
		return
	}

	st, err := h.svc.Stats(r.Context())
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Error("stats failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to retrieve notification statistics")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// validationMessage reports the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s: failed on %q", fe.Field(), fe.Tag())
	}
	return err.Error()
}

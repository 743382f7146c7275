package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qatalysthq/qatalyst-backend/api/responses"
	"github.com/qatalysthq/qatalyst-backend/api/validators"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
)

type joinQueueRequest struct {
	Phone       string  `json:"phone" validate:"required"`
	Name        string  `json:"name"`
	ServiceType string  `json:"serviceType"`
	KioskID     *string `json:"kioskId,omitempty"`
}

// JoinQueue handles kiosk/web joins. Phone normalization and the duplicate
// branch live in the queue service.
func JoinQueue(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		var req joinQueueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channel := enums.ChannelKiosk
		if req.KioskID == nil {
			channel = enums.ChannelWeb
		}

		result, err := svc.Join(r.Context(), queue.JoinInput{
			Phone:       req.Phone,
			Name:        req.Name,
			ServiceType: req.ServiceType,
			Channel:     channel,
			KioskID:     req.KioskID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadyInQueue {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// GetQueue returns all waiting tickets with their live positions.
func GetQueue(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		views, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// QueuePosition resolves the oldest active ticket position for a phone.
func QueuePosition(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		position, err := svc.PositionByPhone(r.Context(), chi.URLParam(r, "phone"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, position)
	}
}

// TicketStatus renders the ticket lookup used by the dashboard.
func TicketStatus(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		status, err := svc.Status(r.Context(), chi.URLParam(r, "ticketNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

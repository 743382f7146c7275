package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/qatalysthq/qatalyst-backend/api/responses"
	"github.com/qatalysthq/qatalyst-backend/api/validators"
	"github.com/qatalysthq/qatalyst-backend/internal/agents"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	"github.com/qatalysthq/qatalyst-backend/internal/ussd"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
)

// ussdCallbackRequest is the Africa's Talking gateway payload. The gateway
// posts form-encoded by default but some simulators send JSON.
type ussdCallbackRequest struct {
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

func decodeUSSDCallback(r *http.Request) (ussdCallbackRequest, error) {
	var req ussdCallbackRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.SessionID = r.PostFormValue("sessionId")
	req.ServiceCode = r.PostFormValue("serviceCode")
	req.PhoneNumber = r.PostFormValue("phoneNumber")
	req.Text = r.PostFormValue("text")
	return req, nil
}

// USSDCallback is the gateway entry point. It always answers 200 with a
// CON/END body; error envelopes would break the session.
func USSDCallback(engine *ussd.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeUSSDCallback(r)
		if err != nil {
			responses.WriteUSSD(w, "END Invalid request: malformed payload")
			return
		}
		if strings.TrimSpace(req.PhoneNumber) == "" {
			responses.WriteUSSD(w, "END Invalid request: phone number missing")
			return
		}

		ctx := r.Context()
		if logg != nil && req.SessionID != "" {
			ctx = logg.WithField(ctx, "ussd_session_id", req.SessionID)
		}

		reply := engine.Handle(ctx, req.PhoneNumber, req.Text)
		responses.WriteUSSD(w, reply.Render())
	}
}

type ussdJoinRequest struct {
	Phone       string `json:"phone" validate:"required"`
	Name        string `json:"name" validate:"required"`
	ServiceType string `json:"serviceType" validate:"required"`
}

// USSDJoin is the kiosk-assist join: unlike /queue/join, all three fields are
// required.
func USSDJoin(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		var req ussdJoinRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Join(r.Context(), queue.JoinInput{
			Phone:       req.Phone,
			Name:        req.Name,
			ServiceType: req.ServiceType,
			Channel:     enums.ChannelUSSD,
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

type callNextRequest struct {
	AgentID     string `json:"agentId" validate:"required"`
	ServiceType string `json:"serviceType"`
}

// CallNext completes the agent's held ticket and dispatches the next one.
func CallNext(svc queue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "queue service unavailable"))
			return
		}

		var req callNextRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CallNext(r.Context(), req.AgentID, req.ServiceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListAgents returns the agent roster for the dashboard.
func ListAgents(repo agents.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agents repository unavailable"))
			return
		}

		roster, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing agents"))
			return
		}
		responses.WriteSuccess(w, agents.Views(roster))
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	mw "github.com/edvin/instance-deploy/internal/api/middleware"
	"github.com/edvin/instance-deploy/internal/api/request"
	"github.com/edvin/instance-deploy/internal/api/response"
	"github.com/edvin/instance-deploy/internal/deploy"
	"github.com/edvin/instance-deploy/internal/model"
)

// Dispatcher hands an accepted deploy off for background execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, req model.ProvisionRequest) error
}

type Provision struct {
	dispatcher Dispatcher
}

func NewProvision(dispatcher Dispatcher) *Provision {
	return &Provision{dispatcher: dispatcher}
}

// Create validates the request and starts the deploy pipeline in the
// background. The response is sent before the pipeline runs; completion is
// reported by callback.
func (h *Provision) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ProvisionRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.JWT = mw.ActivationTokenFrom(r.Context())

	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("instance_id", req.InstanceID).Msg("deploy not dispatched")
		if errors.Is(err, deploy.ErrShuttingDown) {
			response.WriteError(w, http.StatusServiceUnavailable, "service is shutting down")
			return
		}
		response.WriteError(w, http.StatusInternalServerError, "failed to start deploy")
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("instance_id", req.InstanceID).
		Str("account_id", req.AccountID).
		Str("name", req.Name).
		Msg("deploy accepted")
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "deploy started"})
}

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/service/instance_service"
)

func (a *Api) HandlerCreateInstance(w http.ResponseWriter, r *http.Request) {
	var request instance_service.CreateInstanceRequest
	if err := decodeJsonBody(r, &request); err != nil {
		handlerError(w, err)
		return
	}

	instance, err := a.InstanceServiceConfig.CreateInstance(r.Context(), request)
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusCreated, instance)
}

func (a *Api) HandlerDestroyInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, err := uuid.Parse(chi.URLParam(r, "instance_id"))
	if err != nil {
		handlerError(w, fmt.Errorf(
			"%w, instance id must be a uuid",
			ctf_errors.ErrInvalidRequest,
		))
		return
	}

	instance, err := a.InstanceServiceConfig.DestroyInstance(r.Context(), instanceID)
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusOK, instance)
}

func (a *Api) HandlerGetActiveInstance(w http.ResponseWriter, r *http.Request) {
	challengeID, err := strconv.ParseInt(chi.URLParam(r, "challenge_id"), 10, 32)
	if err != nil {
		handlerError(w, fmt.Errorf(
			"%w, challenge id must be an integer",
			ctf_errors.ErrInvalidRequest,
		))
		return
	}

	instance, err := a.InstanceServiceConfig.GetActiveInstance(r.Context(), int32(challengeID))
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusOK, instance)
}

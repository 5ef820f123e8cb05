package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJsonBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf(
			"%w, cannot parse request body, %v",
			ctf_errors.ErrInvalidRequest,
			err,
		)
	}
	return nil
}

func respondWithJson(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal json response %v, %v", payload, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// handlerError translates the service error taxonomy to HTTP statuses.
// Internal details never reach the client.
func handlerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ctf_errors.ErrInvalidInput),
		errors.Is(err, ctf_errors.ErrInvalidRequest):
		respondWithJson(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ctf_errors.ErrUnAuthorized):
		respondWithJson(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, ctf_errors.ErrTeamBanned):
		respondWithJson(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, ctf_errors.ErrChallengeNotFound),
		errors.Is(err, ctf_errors.ErrNoActiveInstance),
		errors.Is(err, ctf_errors.ErrNotFound):
		respondWithJson(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ctf_errors.ErrConflict),
		errors.Is(err, ctf_errors.ErrAlreadySolved):
		respondWithJson(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ctf_errors.ErrProvisioner):
		log.Errorf("provisioner error surfaced to handler, %v", err)
		respondWithJson(w, http.StatusServiceUnavailable, errorResponse{Error: "environment backend unavailable"})
	default:
		log.Errorf("unhandled error in handler, %v", err)
		respondWithJson(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (a *Api) HandlerReadiness(w http.ResponseWriter, r *http.Request) {
	respondWithJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

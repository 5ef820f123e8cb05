package api

import (
	"net/http"

	"github.com/FloatCTF/cdm/internal/service/submission_service"
)

func (a *Api) HandlerSubmitFlag(w http.ResponseWriter, r *http.Request) {
	var request submission_service.SubmitFlagRequest
	if err := decodeJsonBody(r, &request); err != nil {
		handlerError(w, err)
		return
	}

	result, err := a.SubmissionServiceConfig.SubmitFlag(r.Context(), request)
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

package api

import (
	"net/http"

	"github.com/FloatCTF/cdm/internal/service/audit_service"
)

func (a *Api) HandlerGetLogs(w http.ResponseWriter, r *http.Request) {
	var filter audit_service.LogFilter
	if err := decodeJsonBody(r, &filter); err != nil {
		handlerError(w, err)
		return
	}

	entries, err := a.AuditServiceConfig.GetLogs(r.Context(), filter)
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusOK, entries)
}

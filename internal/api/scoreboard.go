package api

import (
	"net/http"
)

func (a *Api) HandlerGetScoreboard(w http.ResponseWriter, r *http.Request) {
	standings, err := a.ScoreboardServiceConfig.GetScoreboard(r.Context())
	if err != nil {
		handlerError(w, err)
		return
	}
	respondWithJson(w, http.StatusOK, standings)
}

// routes/tracking_handlers.go
package routes

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

func userID(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["userId"])
}

// TrackHandler добавляет сущность в отслеживаемые. Повтор не ошибка.
func (a *API) TrackHandler(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	id, err := entityID(r, "entityId")
	if user == "" || err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный ID пользователя или сущности")
		return
	}

	if _, err := a.Entities.GetEntity(r.Context(), id); err != nil {
		a.writeStoreError(w, err)
		return
	}

	if err := a.Tracking.TrackEntity(r.Context(), user, id); err != nil {
		a.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UntrackHandler убирает сущность из отслеживаемых
func (a *API) UntrackHandler(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	id, err := entityID(r, "entityId")
	if user == "" || err != nil {
		a.writeError(w, http.StatusBadRequest, "Неверный ID пользователя или сущности")
		return
	}

	if err := a.Tracking.UntrackEntity(r.Context(), user, id); err != nil {
		a.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTrackedHandler сущности, отслеживаемые пользователем
func (a *API) ListTrackedHandler(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		a.writeError(w, http.StatusBadRequest, "Неверный ID пользователя")
		return
	}

	entities, err := a.Tracking.ListTracked(r.Context(), user)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	if entities == nil {
		entities = []models.Entity{}
	}
	a.writeJSON(w, http.StatusOK, entities)
}

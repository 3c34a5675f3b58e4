package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chipledger/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps the service error kinds onto HTTP status codes. Anything
// outside the known kinds is a server fault and gets logged.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrState):
		status = http.StatusConflict
	case errors.Is(err, service.ErrIntegrity), errors.Is(err, service.ErrReconciliation):
		status = http.StatusUnprocessableEntity
	default:
		log.WithError(err).Error("Unhandled service error")
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

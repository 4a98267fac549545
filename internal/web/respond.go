package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/example/tablebook/internal/internaltypes"
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: msg})
}

// writeDomainError maps error kinds to status codes. Unknown errors are
// logged and surfaced as a plain 500; their details stay server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	var status int
	switch internaltypes.KindOf(err) {
	case internaltypes.KindNotFound:
		status = http.StatusNotFound
	case internaltypes.KindOutOfHours, internaltypes.KindPeakLimitExceeded:
		status = http.StatusBadRequest
	case internaltypes.KindConflict, internaltypes.KindInvariantViolation:
		status = http.StatusConflict
	default:
		log.Printf("web: internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "internal error"})
		return
	}
	writeJSON(w, status, envelope{Status: "error", Message: err.Error()})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/plantdex/plantdex/internal/adapter"
	"github.com/plantdex/plantdex/internal/config"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// can't send a clean status code at this point
		logH.Error("Error encoding response", "error", err)
	}
}

// WriteErrorResponse emits the uniform error shape for a plain message.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	body, _ := adapter.BadRequest(message)
	writeJsonResponse(w, httpCode, body)
}

// writeFaultResponse maps the error's fault kind onto a status code.
func writeFaultResponse(w http.ResponseWriter, err error) {
	body, status := adapter.FaultResponse(err)
	writeJsonResponse(w, status, body)
}

func traceID(ctx context.Context) string {
	v, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return v
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logH.Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

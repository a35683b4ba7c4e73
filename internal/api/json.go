package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the uniform error payload, matching the MCP surface.
type errResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, msg string) errResponse {
	return errResponse{Code: code, Message: msg}
}

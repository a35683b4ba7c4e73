package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tbrandt/othala/internal/apperr"
)

// toolError is the uniform error payload every tool returns on failure.
type toolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errResult wraps any component error into the {code, message} shape.
func errResult(err error) *mcp.CallToolResult {
	payload, mErr := json.Marshal(toolError{
		Code:    apperr.Code(err),
		Message: err.Error(),
	})
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(payload))
}

// argError reports a validation failure without touching the store.
func argError(msg string) *mcp.CallToolResult {
	payload, _ := json.Marshal(toolError{
		Code:    apperr.CodeInvalidArgument,
		Message: msg,
	})
	return mcp.NewToolResultError(string(payload))
}

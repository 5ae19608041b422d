package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/coderun/internal/apperror"
	"github.com/sakif/coderun/internal/executor"
)

// maxRequestBody caps the JSON body of one execution request.
const maxRequestBody = 1 << 20

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(exec executor.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:   exec,
		logger: logger,
	}
}

// HandleExecute decodes {code, language, stdin}, runs it and writes the
// ExecutionResult. Compile errors, runtime errors and timeouts are all 200
// responses; only bad input and system faults are not.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req executor.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("body", "Request body is too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("body", "Request body must be a JSON object"))
		return
	}

	if req.Code == "" || strings.TrimSpace(req.Language) == "" {
		writeError(w, apperror.ValidationFailed("code", "Code and language are required"))
		return
	}

	result, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperror.ErrSystemFault) {
			h.logger.Error("code execution failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

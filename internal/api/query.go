package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/executor"
	"github.com/sqlhunt/sqlhunt/internal/tasks"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryAccepted struct {
	TaskID string      `json:"task_id"`
	State  tasks.State `json:"state"`
}

type taskResponse struct {
	TaskID    string           `json:"task_id"`
	CaseID    string           `json:"case_id"`
	State     tasks.State      `json:"state"`
	Result    *executor.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func handleSubmitQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	caseID := r.PathValue("case")
	if deps.Cases != nil {
		if err := requireProgress(r, deps.Cases, userID, caseID); err != nil {
			writeDomainError(r.Context(), w, err)
			return
		}
	}

	taskID, err := deps.Runner.Submit(r.Context(), userID, caseID, request.SQL)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, queryAccepted{TaskID: taskID, State: tasks.StatePending})
}

// handlePollTask reads task state by id. The id is unguessable and acts as
// the read credential, so no ownership check happens here.
func handlePollTask(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Runner == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	task, err := deps.Runner.Poll(r.Context(), r.PathValue("task"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{
		TaskID:    task.ID,
		CaseID:    task.CaseID,
		State:     task.State,
		Result:    task.Result,
		Error:     task.Error,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	})
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sqlhunt/sqlhunt/internal/cases"
	"github.com/sqlhunt/sqlhunt/internal/catalog"
)

// caseSummary is the public view of a case. The stored answer never leaves
// the service.
type caseSummary struct {
	CaseID           string `json:"case_id"`
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	RequiredXP       int    `json:"required_xp"`
	RewardXP         int    `json:"reward_xp"`
}

type progressResponse struct {
	CaseID      string     `json:"case_id"`
	UserID      string     `json:"user_id"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type schemaResponse struct {
	CaseID string                `json:"case_id"`
	Tables []catalog.TableSchema `json:"tables"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type answerResponse struct {
	Correct      bool `json:"correct"`
	CompletedNow bool `json:"completed_now"`
	AwardedXP    int  `json:"awarded_xp"`
	TotalXP      int  `json:"total_xp"`
}

func toCaseSummary(c cases.Case) caseSummary {
	return caseSummary{
		CaseID:           c.ID,
		Title:            c.Title,
		ShortDescription: c.ShortDescription,
		Description:      c.Description,
		RequiredXP:       c.RequiredXP,
		RewardXP:         c.RewardXP,
	}
}

func handleListCases(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Cases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CASES_NOT_CONFIGURED", "case dependencies are not configured", false, nil)
		return
	}

	list, err := deps.Cases.List(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	summaries := make([]caseSummary, 0, len(list))
	for _, c := range list {
		summaries = append(summaries, toCaseSummary(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": summaries})
}

func handleGetCase(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Cases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CASES_NOT_CONFIGURED", "case dependencies are not configured", false, nil)
		return
	}

	gameCase, err := deps.Cases.Get(r.Context(), r.PathValue("case"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCaseSummary(gameCase))
}

func handleStartCase(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Cases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CASES_NOT_CONFIGURED", "case dependencies are not configured", false, nil)
		return
	}

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), false, nil)
		return
	}

	progress, err := deps.Cases.Start(r.Context(), userID, r.PathValue("case"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		CaseID:      progress.CaseID,
		UserID:      progress.UserID,
		Completed:   progress.Completed,
		StartedAt:   progress.StartedAt,
		CompletedAt: progress.CompletedAt,
	})
}

func handleCaseSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil || deps.Cases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependencies are not configured", false, nil)
		return
	}

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), false, nil)
		return
	}

	caseID := r.PathValue("case")
	if err := requireProgress(r, deps.Cases, userID, caseID); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	schemas, err := deps.Catalog.Schema(r.Context(), caseID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{CaseID: caseID, Tables: schemas})
}

func handleCheckAnswer(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Cases == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CASES_NOT_CONFIGURED", "case dependencies are not configured", false, nil)
		return
	}

	userID, err := userFromRequest(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), false, nil)
		return
	}

	var request answerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid answer request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Answer) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "ANSWER_REQUIRED", "answer is required", false, nil)
		return
	}

	outcome, err := deps.Cases.CheckAnswer(r.Context(), userID, r.PathValue("case"), request.Answer)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		Correct:      outcome.Correct,
		CompletedNow: outcome.CompletedNow,
		AwardedXP:    outcome.AwardedXP,
		TotalXP:      outcome.TotalXP,
	})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/api/shared"
	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/service"
)

// ClassificationHandler handles classification-related HTTP requests
type ClassificationHandler struct {
	classificationService service.ClassificationService
}

// NewClassificationHandler creates a new ClassificationHandler
func NewClassificationHandler(classificationService service.ClassificationService) *ClassificationHandler {
	return &ClassificationHandler{
		classificationService: classificationService,
	}
}

// SubmitClassification handles POST /api/classifications requests.
// Responds 200 with the result inline when the cache already holds the
// answer, 202 with a task ID otherwise.
func (h *ClassificationHandler) SubmitClassification(w http.ResponseWriter, r *http.Request) {
	var req SubmitClassificationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Review text is required")
		return
	}

	submission, err := h.classificationService.Submit(r.Context(), req.Text)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// Cache hit: no task was created, the answer is already known.
	if submission.TaskID == uuid.Nil {
		shared.RespondWithJSON(w, r, http.StatusOK, ClassificationResponse{
			State:  string(submission.State),
			Result: resultToDTO(submission.Result),
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, ClassificationResponse{
		TaskID: submission.TaskID,
		State:  string(submission.State),
	})
}

// GetClassification handles GET /api/classifications/{id} requests.
func (h *ClassificationHandler) GetClassification(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	status, err := h.classificationService.GetStatus(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := ClassificationResponse{
		TaskID: status.TaskID,
		State:  string(status.State),
		Result: resultToDTO(status.Result),
	}
	if status.State == domain.TaskStateFailure {
		response.Error = status.LastError
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// resultToDTO converts a domain.Result to its response representation.
func resultToDTO(result *domain.Result) *ClassificationResultResponse {
	if result == nil {
		return nil
	}
	return &ClassificationResultResponse{
		Label:      result.Label,
		Score:      result.Score,
		ComputedAt: result.ComputedAt,
	}
}

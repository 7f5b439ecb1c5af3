package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jobflow-backend/internal/apperr"
	"jobflow-backend/internal/middleware"
	"jobflow-backend/internal/models"
	"jobflow-backend/internal/services"
	"jobflow-backend/pkg/utils"
)

type JobHandler struct {
	Service *services.JobService
}

func NewJobHandler(service *services.JobService) *JobHandler {
	return &JobHandler{Service: service}
}

// NewJob claims files of an order for the caller
func (h *JobHandler) NewJob(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var req models.NewJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Service.NewJob(r.Context(), actor, orderID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

func (h *JobHandler) ResumeFile(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.Service.ResumeFile)
}

func (h *JobHandler) PauseFile(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.Service.PauseFile)
}

func (h *JobHandler) FinishFile(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.Service.FinishFile)
}

func (h *JobHandler) CancelFile(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.Service.CancelFile)
}

// TransferFile hands a file over to another employee
func (h *JobHandler) TransferFile(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var req models.TransferFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Service.TransferFile(r.Context(), actor, orderID, req.FileName, req.TargetEmployeeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

// ListAvailableFiles returns the unclaimed files of a stage folder
func (h *JobHandler) ListAvailableFiles(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := &models.AvailableFilesQuery{
		JobType:   q.Get("job_type"),
		Condition: q.Get("condition"),
	}
	if step := q.Get("qc_step"); step != "" {
		n, err := strconv.Atoi(step)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid qc_step")
			return
		}
		query.QCStep = n
	}

	files, err := h.Service.ListAvailableFiles(r.Context(), actor, orderID, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (h *JobHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	actor, orderID, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	progress, err := h.Service.GetProgress(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, progress)
}

type fileActionFunc func(ctx context.Context, actor *models.Actor, orderID int, fileName string) (*models.FileTrackingEntry, error)

func (h *JobHandler) fileAction(w http.ResponseWriter, r *http.Request, action fileActionFunc) {
	actor, orderID, ok := h.requestContext(w, r)
	if !ok {
		return
	}

	var req models.FileActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := action(r.Context(), actor, orderID, req.FileName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entry)
}

// requestContext resolves the caller and the {id} route variable
func (h *JobHandler) requestContext(w http.ResponseWriter, r *http.Request) (*models.Actor, int, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return nil, 0, false
	}

	orderID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || orderID <= 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid order ID")
		return nil, 0, false
	}
	return actor, orderID, true
}

// StatusForError maps a service error to its HTTP status
func StatusForError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRemote:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	kind := apperr.KindOf(err)

	message := err.Error()
	var appErr *apperr.Error
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] internal error: %v", err)
		// Hide store internals from clients
		if errors.As(err, &appErr) {
			message = appErr.Message
		} else {
			message = "Internal server error"
		}
	}
	utils.ErrorKind(w, status, string(kind), message)
}

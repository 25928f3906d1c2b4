package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/planfit/internal/progression"
	"github.com/2beens/planfit/pkg"
)

// UserIDHeader identifies the acting user. There is no session layer in
// front of this engine, the gateway sets the header.
const UserIDHeader = "X-Planfit-User"

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=planner_test

type planService interface {
	CreatePlan(ctx context.Context, profile TrainingProfile, reqInfo RequestInfo) (*Plan, error)
	GetPlan(ctx context.Context, planID int64) (*Plan, error)
	NextWorkout(ctx context.Context, userID int64, reqInfo RequestInfo) (*Workout, error)
	RescheduleWorkout(ctx context.Context, workoutID int64, newDate time.Time, actorID int64, reqInfo RequestInfo) error
	LogWorkout(ctx context.Context, entry WorkoutLogEntry, actorID int64, reqInfo RequestInfo) error
	AutosaveWorkoutDraft(ctx context.Context, draft WorkoutDraft) error
	ApplyProgression(ctx context.Context, history []progression.HistoryEntry, rule progression.Rule) ([]progression.Adjustment, error)
}

type Handler struct {
	service planService
}

func NewHandler(service planService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/plans", h.HandleCreatePlan).Methods("POST", "OPTIONS")
	router.HandleFunc("/plans/next", h.HandleNextWorkout).Methods("GET", "OPTIONS")
	router.HandleFunc("/plans/{id}", h.HandleGetPlan).Methods("GET", "OPTIONS")
	router.HandleFunc("/workouts/{id}/reschedule", h.HandleRescheduleWorkout).Methods("PUT", "OPTIONS")
	router.HandleFunc("/workouts/{id}/log", h.HandleLogWorkout).Methods("POST", "OPTIONS")
	router.HandleFunc("/workouts/{id}/draft", h.HandleAutosaveDraft).Methods("POST", "OPTIONS")
	router.HandleFunc("/progression/preview", h.HandleProgressionPreview).Methods("POST", "OPTIONS")
}

type rescheduleRequest struct {
	NewDate time.Time `json:"newDate"`
}

type progressionPreviewRequest struct {
	History []progression.HistoryEntry `json:"history"`
	Rule    progression.Rule           `json:"rule"`
}

func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var profile TrainingProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	profile.UserID = actorID

	plan, err := h.service.CreatePlan(r.Context(), profile, requestInfo(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, plan, http.StatusCreated)
}

func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}

	plan, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, plan, http.StatusOK)
}

func (h *Handler) HandleNextWorkout(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actingUser(w, r)
	if !ok {
		return
	}

	workout, err := h.service.NextWorkout(r.Context(), actorID, requestInfo(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if workout == nil {
		// everything completed: an empty answer, not an error
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, []byte("null"), http.StatusOK)
		return
	}
	h.writeJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleRescheduleWorkout(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actingUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.RescheduleWorkout(r.Context(), workoutID, req.NewDate, actorID, requestInfo(r)); err != nil {
		h.writeError(w, err)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, []byte(`{"rescheduled":true}`), http.StatusOK)
}

func (h *Handler) HandleLogWorkout(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actingUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}

	var entry WorkoutLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	entry.WorkoutID = workoutID

	if err := h.service.LogWorkout(r.Context(), entry, actorID, requestInfo(r)); err != nil {
		h.writeError(w, err)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, []byte(`{"logged":true}`), http.StatusOK)
}

func (h *Handler) HandleAutosaveDraft(w http.ResponseWriter, r *http.Request) {
	workoutID, ok := pathID(w, r)
	if !ok {
		return
	}

	var draft WorkoutDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	draft.WorkoutID = workoutID

	if err := h.service.AutosaveWorkoutDraft(r.Context(), draft); err != nil {
		h.writeError(w, err)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, []byte(`{"saved":true}`), http.StatusOK)
}

func (h *Handler) HandleProgressionPreview(w http.ResponseWriter, r *http.Request) {
	var req progressionPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	adjustments, err := h.service.ApplyProgression(r.Context(), req.History, req.Rule)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, adjustments, http.StatusOK)
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any, statusCode int) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payloadJson, statusCode)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalidErr *InvalidInputError
	var rateLimitedErr *RateLimitedError

	switch {
	case errors.As(err, &invalidErr):
		http.Error(w, invalidErr.Error(), http.StatusBadRequest)
	case errors.As(err, &rateLimitedErr):
		retryAfter := int(math.Ceil(rateLimitedErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		http.Error(w, fmt.Sprintf("rate limited, retry after %d seconds", retryAfter), http.StatusTooManyRequests)
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPlanNotFound),
		errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrOwnershipMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrWorkoutCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Errorf("handle request: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func actingUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userIDVal := r.Header.Get(UserIDHeader)
	if userIDVal == "" {
		http.Error(w, fmt.Sprintf("missing %s header", UserIDHeader), http.StatusBadRequest)
		return 0, false
	}
	userID, err := strconv.ParseInt(userIDVal, 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, fmt.Sprintf("invalid %s header", UserIDHeader), http.StatusBadRequest)
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// requestInfo tags the call for audit events: a fresh request id and the
// hashed client address, never the raw IP.
func requestInfo(r *http.Request) RequestInfo {
	var hashedIP string
	if userIP, err := pkg.ReadUserIP(r); err == nil {
		hashedIP = pkg.HashIP(userIP)
	} else {
		log.Tracef("read user ip: %s", err)
	}
	return RequestInfo{
		ID:       uuid.NewString(),
		HashedIP: hashedIP,
	}
}

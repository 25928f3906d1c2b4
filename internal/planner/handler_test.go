package planner_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/planfit/internal/planner"
	"github.com/2beens/planfit/internal/progression"
)

func testRouter(service *MockplanService) *mux.Router {
	router := mux.NewRouter()
	planner.NewHandler(service).SetupRoutes(router)
	return router
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_CreatePlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	profile := planner.TrainingProfile{
		Goal:      planner.GoalStrength,
		Frequency: 3,
		Equipment: []string{"gym completo"},
	}

	mockService.EXPECT().
		CreatePlan(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, p planner.TrainingProfile, reqInfo planner.RequestInfo) (*planner.Plan, error) {
			// the acting user comes from the header, not the body
			assert.Equal(t, int64(7), p.UserID)
			assert.Equal(t, planner.GoalStrength, p.Goal)
			assert.NotEmpty(t, reqInfo.ID)
			return &planner.Plan{ID: 44, UserID: 7, Goal: p.Goal}, nil
		})

	req := jsonRequest(t, "POST", "/plans", profile)
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var plan planner.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Equal(t, int64(44), plan.ID)
}

func TestHandler_CreatePlan_MissingUserHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := testRouter(NewMockplanService(ctrl))

	req := jsonRequest(t, "POST", "/plans", planner.TrainingProfile{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_CreatePlan_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name         string
		serviceErr   error
		expectedCode int
	}{
		{
			name:         "invalid input",
			serviceErr:   &planner.InvalidInputError{Field: "goal", Reason: "unsupported"},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown user",
			serviceErr:   planner.ErrUserNotFound,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "infrastructure failure",
			serviceErr:   errors.New("db down"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := NewMockplanService(ctrl)
			router := testRouter(mockService)

			mockService.EXPECT().
				CreatePlan(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, tc.serviceErr)

			req := jsonRequest(t, "POST", "/plans", planner.TrainingProfile{Goal: planner.GoalStrength, Frequency: 3})
			req.Header.Set(planner.UserIDHeader, "7")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func TestHandler_CreatePlan_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	mockService.EXPECT().
		CreatePlan(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &planner.RateLimitedError{RetryAfter: 30 * time.Second})

	req := jsonRequest(t, "POST", "/plans", planner.TrainingProfile{Goal: planner.GoalStrength, Frequency: 3})
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
}

func TestHandler_NextWorkout(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	mockService.EXPECT().
		NextWorkout(gomock.Any(), int64(7), gomock.Any()).
		Return(&planner.Workout{ID: 101, PlanID: 44, Title: "Push"}, nil)

	req := httptest.NewRequest("GET", "/plans/next", nil)
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var workout planner.Workout
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &workout))
	assert.Equal(t, int64(101), workout.ID)
}

func TestHandler_NextWorkout_NonePending(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	mockService.EXPECT().
		NextWorkout(gomock.Any(), int64(7), gomock.Any()).
		Return(nil, nil)

	req := httptest.NewRequest("GET", "/plans/next", nil)
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "null", rr.Body.String())
}

func TestHandler_GetPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	mockService.EXPECT().
		GetPlan(gomock.Any(), int64(44)).
		Return(&planner.Plan{ID: 44, UserID: 7}, nil)

	req := httptest.NewRequest("GET", "/plans/44", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var plan planner.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Equal(t, int64(44), plan.ID)
}

func TestHandler_RescheduleWorkout(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	newDate := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	mockService.EXPECT().
		RescheduleWorkout(gomock.Any(), int64(101), newDate, int64(7), gomock.Any()).
		Return(nil)

	req := jsonRequest(t, "PUT", "/workouts/101/reschedule", map[string]any{
		"newDate": newDate.Format(time.RFC3339),
	})
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_RescheduleWorkout_Errors(t *testing.T) {
	testCases := []struct {
		serviceErr   error
		expectedCode int
	}{
		{planner.ErrWorkoutNotFound, http.StatusNotFound},
		{planner.ErrOwnershipMismatch, http.StatusForbidden},
		{planner.ErrWorkoutCompleted, http.StatusConflict},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.expectedCode), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := NewMockplanService(ctrl)
			router := testRouter(mockService)

			mockService.EXPECT().
				RescheduleWorkout(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tc.serviceErr)

			req := jsonRequest(t, "PUT", "/workouts/101/reschedule", map[string]any{
				"newDate": time.Now().Format(time.RFC3339),
			})
			req.Header.Set(planner.UserIDHeader, "7")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func TestHandler_LogWorkout(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	mockService.EXPECT().
		LogWorkout(gomock.Any(), gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ any, entry planner.WorkoutLogEntry, _ int64, _ planner.RequestInfo) error {
			// the workout id comes from the path
			assert.Equal(t, int64(101), entry.WorkoutID)
			assert.Equal(t, int64(44), entry.PlanID)
			assert.Len(t, entry.Sets, 1)
			return nil
		})

	req := jsonRequest(t, "POST", "/workouts/101/log", planner.WorkoutLogEntry{
		PlanID: 44,
		Sets:   []planner.WorkoutSet{{ExerciseID: 1, Weight: 100, Reps: 4, RestSeconds: 180}},
	})
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_AutosaveDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	reps := 8
	mockService.EXPECT().
		AutosaveWorkoutDraft(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, draft planner.WorkoutDraft) error {
			assert.Equal(t, int64(101), draft.WorkoutID)
			require.Len(t, draft.Sets, 1)
			require.NotNil(t, draft.Sets[0].Reps)
			assert.Equal(t, 8, *draft.Sets[0].Reps)
			return nil
		})

	req := jsonRequest(t, "POST", "/workouts/101/draft", planner.WorkoutDraft{
		PlanID: 44,
		Sets:   []planner.DraftSet{{Reps: &reps}},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_ProgressionPreview(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := NewMockplanService(ctrl)
	router := testRouter(mockService)

	history := []progression.HistoryEntry{
		{Date: time.Now().UTC(), ExerciseID: 1, Weight: 100, Reps: 5, Adherence: 1},
	}
	mockService.EXPECT().
		ApplyProgression(gomock.Any(), gomock.Any(), progression.RuleIntensity).
		Return([]progression.Adjustment{
			{ExerciseID: 1, TargetWeight: 105, TargetReps: 5, Adherence: 1},
		}, nil)

	req := jsonRequest(t, "POST", "/progression/preview", map[string]any{
		"history": history,
		"rule":    "INTENSITY",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var adjustments []progression.Adjustment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &adjustments))
	require.Len(t, adjustments, 1)
	assert.Equal(t, 105.0, adjustments[0].TargetWeight)
}

func TestHandler_InvalidPathID(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := testRouter(NewMockplanService(ctrl))

	req := jsonRequest(t, "POST", "/workouts/abc/log", nil)
	req.Header.Set(planner.UserIDHeader, "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

//go:build integration_test || all_tests

package integration_testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/planfit/internal/planner"
)

var catalogSeed = []struct {
	name        string
	muscleGroup string
	equipment   string
}{
	{"Bench Press", "chest", "barbell"},
	{"Push Up", "chest", "bodyweight"},
	{"Overhead Press", "shoulders", "barbell"},
	{"Lateral Raise", "shoulders", "bodyweight"},
	{"Dips", "triceps", "bodyweight"},
	{"Close Grip Bench", "triceps", "barbell"},
	{"Barbell Row", "back", "barbell"},
	{"Pull Up", "back", "bodyweight"},
	{"Barbell Curl", "biceps", "barbell"},
	{"Chin Up", "biceps", "bodyweight"},
	{"Plank", "core", "bodyweight"},
	{"Hanging Leg Raise", "core", "bodyweight"},
	{"Back Squat", "legs", "barbell"},
	{"Lunge", "legs", "bodyweight"},
	{"Hip Thrust", "glutes", "barbell"},
	{"Glute Bridge", "glutes", "bodyweight"},
	{"Burpees", "cardio", "bodyweight"},
	{"Mountain Climbers", "cardio", "bodyweight"},
}

func (s *Suite) seedUser(t *testing.T, username string) int64 {
	t.Helper()
	var userID int64
	err := s.DB.QueryRow(
		"INSERT INTO planfit_user (username) VALUES ($1) RETURNING id",
		username,
	).Scan(&userID)
	require.NoError(t, err)
	return userID
}

func (s *Suite) seedCatalog(t *testing.T) {
	t.Helper()
	for _, e := range catalogSeed {
		_, err := s.DB.Exec(
			"INSERT INTO exercise (name, muscle_group, equipment) VALUES ($1, $2, $3)",
			e.name, e.muscleGroup, e.equipment,
		)
		require.NoError(t, err)
	}
}

func doRequest(t *testing.T, method, path string, userID int64, body string) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, serverEndpoint+path, reqBody)
	require.NoError(t, err)

	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set(planner.UserIDHeader, fmt.Sprintf("%d", userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, respBody
}

func waitServerReady(t *testing.T) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, serverEndpoint+"/version", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	for i := 0; i < 50; i++ {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

func TestPlanLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()

	waitServerReady(t)

	userID := suite.seedUser(t, "integration-tester")
	suite.seedCatalog(t)

	// create a strength plan, 3 days per week
	resp, body := doRequest(t, http.MethodPost, "/plans", userID,
		`{"goal":"strength","frequency":3,"equipment":["barbell","bodyweight"]}`,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var plan planner.Plan
	require.NoError(t, json.Unmarshal(body, &plan))
	require.NotZero(t, plan.ID)
	assert.Equal(t, userID, plan.UserID)
	assert.Equal(t, planner.GoalStrength, plan.Goal)
	require.Len(t, plan.Workouts, 12)
	require.NotEmpty(t, plan.Workouts[0].Exercises)

	// the stored plan matches the one returned on creation
	resp, body = doRequest(t, http.MethodGet, fmt.Sprintf("/plans/%d", plan.ID), userID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var fetched planner.Plan
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, plan.ID, fetched.ID)
	assert.Len(t, fetched.Workouts, 12)

	// next workout is the first scheduled one
	resp, body = doRequest(t, http.MethodGet, "/plans/next", userID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var next planner.Workout
	require.NoError(t, json.Unmarshal(body, &next))
	assert.Equal(t, plan.ID, next.PlanID)
	assert.Equal(t, plan.Workouts[0].ID, next.ID)

	// autosave a partial draft for it
	resp, body = doRequest(t, http.MethodPost, fmt.Sprintf("/workouts/%d/draft", next.ID), userID,
		fmt.Sprintf(`{"planId":%d,"sets":[{"weight":60}]}`, plan.ID),
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// log the workout
	exerciseID := next.Exercises[0].ExerciseID
	logBody := fmt.Sprintf(
		`{"planId":%d,"sets":[{"exerciseId":%d,"weight":60,"reps":5,"restSeconds":120},{"exerciseId":%d,"weight":60,"reps":5,"restSeconds":120}]}`,
		plan.ID, exerciseID, exerciseID,
	)
	resp, body = doRequest(t, http.MethodPost, fmt.Sprintf("/workouts/%d/log", next.ID), userID, logBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// a second log of the same workout conflicts
	resp, body = doRequest(t, http.MethodPost, fmt.Sprintf("/workouts/%d/log", next.ID), userID, logBody)
	require.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	// next workout moves on to the second scheduled one
	resp, body = doRequest(t, http.MethodGet, "/plans/next", userID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var afterLog planner.Workout
	require.NoError(t, json.Unmarshal(body, &afterLog))
	assert.Equal(t, plan.Workouts[1].ID, afterLog.ID)
}

func TestRescheduleWorkout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()

	waitServerReady(t)

	ownerID := suite.seedUser(t, "plan-owner")
	strangerID := suite.seedUser(t, "stranger")
	suite.seedCatalog(t)

	resp, body := doRequest(t, http.MethodPost, "/plans", ownerID,
		`{"goal":"hypertrophy","frequency":4,"equipment":["barbell","bodyweight"]}`,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var plan planner.Plan
	require.NoError(t, json.Unmarshal(body, &plan))
	require.Len(t, plan.Workouts, 16)
	workoutID := plan.Workouts[0].ID

	newDate := time.Now().UTC().AddDate(0, 0, 3).Format(time.RFC3339)

	// only the plan owner may move a workout
	resp, body = doRequest(t, http.MethodPut, fmt.Sprintf("/workouts/%d/reschedule", workoutID), strangerID,
		fmt.Sprintf(`{"newDate":%q}`, newDate),
	)
	require.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))

	resp, body = doRequest(t, http.MethodPut, fmt.Sprintf("/workouts/%d/reschedule", workoutID), ownerID,
		fmt.Sprintf(`{"newDate":%q}`, newDate),
	)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"rescheduled":true}`, string(body))
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/config"
	"github.com/browoko/assessment-api/internal/handler"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/repository"
	"github.com/browoko/assessment-api/internal/router"
	"github.com/browoko/assessment-api/internal/service"
	"github.com/browoko/assessment-api/internal/utils"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

// setupApp wires the full HTTP stack against sqlite, with a fake JWT
// middleware that trusts the X-Test-User and X-Test-Role headers.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Test{}, &models.TestBlock{}, &models.TestSubmission{}, &models.ReviewComment{}))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_test_submissions_draft ON test_submissions (test_id, user_id) WHERE status = 'DRAFT'",
	).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	testRepo := repository.NewTestRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	testService := service.NewTestService(testRepo, nil, 0, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, commentRepo, testService, validate, logger)
	commentService := service.NewCommentService(commentRepo, submissionRepo, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		TestHandler:       handler.NewTestHandler(testService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		CommentHandler:    handler.NewCommentHandler(commentService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
				}
				c.Locals("user_id", id)
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return &testApp{app: app, db: db}
}

func (ta *testApp) request(t *testing.T, method, path string, body any, userID uuid.UUID, role string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set("X-Test-User", userID.String())
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func (ta *testApp) seedQuiz(t *testing.T) (models.Test, models.TestBlock) {
	t.Helper()

	test := models.Test{Title: "API Quiz", PassPercentage: 80, MaxAttempts: 3}
	require.NoError(t, ta.db.Create(&test).Error)
	block := models.TestBlock{
		TestID:  test.ID,
		Type:    models.BlockMultipleChoice,
		Title:   "Pick",
		Content: datatypes.JSON(`{"options":["a","b"],"correctAnswer":"a"}`),
		Points:  10,
	}
	require.NoError(t, ta.db.Create(&block).Error)

	return test, block
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	ta := setupApp(t)
	test, block := ta.seedQuiz(t)
	userID := uuid.New()

	resp := ta.request(t, fiber.MethodPost, "/api/v1/submissions", fiber.Map{
		"testId": test.ID,
		"userId": userID,
	}, userID, service.RoleEmployee)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var draft struct {
		ID            uuid.UUID               `json:"id"`
		Status        models.SubmissionStatus `json:"status"`
		AttemptNumber int                     `json:"attemptNumber"`
	}
	decodeData(t, resp, &draft)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.Equal(t, 1, draft.AttemptNumber)

	resp = ta.request(t, fiber.MethodPost, "/api/v1/submissions/"+draft.ID.String()+"/submit", fiber.Map{
		"autoAnswers": fiber.Map{block.ID.String(): "a"},
	}, userID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var submitted struct {
		Status     models.SubmissionStatus `json:"status"`
		FinalScore int                     `json:"finalScore"`
		Passed     bool                    `json:"passed"`
	}
	decodeData(t, resp, &submitted)
	assert.Equal(t, models.StatusApproved, submitted.Status)
	assert.Equal(t, 100, submitted.FinalScore)
	assert.True(t, submitted.Passed)
}

func TestSubmissionEndpointsRejectAnonymous(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, fiber.MethodGet, "/api/v1/submissions", nil, uuid.Nil, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body utils.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusUnauthorized, body.StatusCode)
	assert.NotEmpty(t, body.Error)
}

func TestReviewEndpointEnforcesRole(t *testing.T) {
	ta := setupApp(t)
	test, _ := ta.seedQuiz(t)
	userID := uuid.New()

	resp := ta.request(t, fiber.MethodPost, "/api/v1/submissions", fiber.Map{
		"testId": test.ID,
		"userId": userID,
	}, userID, service.RoleEmployee)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var draft struct {
		ID uuid.UUID `json:"id"`
	}
	decodeData(t, resp, &draft)

	resp = ta.request(t, fiber.MethodPost, "/api/v1/submissions/"+draft.ID.String()+"/review", fiber.Map{
		"reviewerId": userID,
		"decision":   "approve",
		"reason":     "employees are not allowed in here",
	}, userID, service.RoleEmployee)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSubmissionNotFoundShape(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, fiber.MethodGet, "/api/v1/submissions/"+uuid.NewString(), nil, uuid.New(), service.RoleEmployee)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body utils.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusNotFound, body.StatusCode)
	assert.Equal(t, "submission not found", body.Error)
}

func TestSubmissionInvalidIDParam(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, fiber.MethodGet, "/api/v1/submissions/not-a-uuid", nil, uuid.New(), service.RoleEmployee)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAttemptLimitOverHTTP(t *testing.T) {
	ta := setupApp(t)
	test, block := ta.seedQuiz(t)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		resp := ta.request(t, fiber.MethodPost, "/api/v1/submissions", fiber.Map{
			"testId": test.ID,
			"userId": userID,
		}, userID, service.RoleEmployee)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var draft struct {
			ID uuid.UUID `json:"id"`
		}
		decodeData(t, resp, &draft)

		resp = ta.request(t, fiber.MethodPost, "/api/v1/submissions/"+draft.ID.String()+"/submit", fiber.Map{
			"autoAnswers": fiber.Map{block.ID.String(): "b"},
		}, userID, service.RoleEmployee)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp := ta.request(t, fiber.MethodPost, "/api/v1/submissions", fiber.Map{
		"testId": test.ID,
		"userId": userID,
	}, userID, service.RoleEmployee)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body utils.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "maximum number of attempts")
}

func TestHealthEndpoint(t *testing.T) {
	ta := setupApp(t)

	resp := ta.request(t, fiber.MethodGet, "/api/v1/health", nil, uuid.Nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health handler.HealthResponse
	decodeData(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "Test", health.Service)
}

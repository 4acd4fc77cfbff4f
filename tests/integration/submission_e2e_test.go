package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/config"
	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/handler"
	"github.com/browoko/assessment-api/internal/middleware"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/repository"
	"github.com/browoko/assessment-api/internal/router"
	"github.com/browoko/assessment-api/internal/service"
)

type integrationStorage struct{}

func (integrationStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func setupAssessmentApp(t *testing.T) *fiber.App {
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
	uploadService := service.NewUploadService(integrationStorage{}, submissionRepo, 50, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		TestHandler:       handler.NewTestHandler(testService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		CommentHandler:    handler.NewCommentHandler(commentService, logger),
		UploadHandler:     handler.NewUploadHandler(uploadService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					c.Locals("user_id", id)
				}
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return app
}

func jsonRequest(t *testing.T, app *fiber.App, method, path string, payload any, userID uuid.UUID, role string) *http.Response {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", userID.String())
	req.Header.Set("X-Test-Role", role)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestAssessmentEndToEndFlow(t *testing.T) {
	app := setupAssessmentApp(t)

	adminID := uuid.New()
	trainerID := uuid.New()
	employeeID := uuid.New()

	// Step 1: admin creates the assessment definition
	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/tests", map[string]any{
		"title":          "Onboarding Assessment",
		"passPercentage": 80,
		"maxAttempts":    3,
	}, adminID, service.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var testBody struct {
		Success bool             `json:"success"`
		Data    dto.TestResponse `json:"data"`
	}
	decode(t, resp, &testBody)
	require.True(t, testBody.Success)
	testID := testBody.Data.ID

	// Step 2: admin adds a quiz block and a practical block
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/tests/"+testID.String()+"/blocks", map[string]any{
		"type":    models.BlockMultipleChoice,
		"title":   "Pick the right option",
		"content": map[string]any{"options": []string{"a", "b"}, "correctAnswer": "a"},
		"points":  10,
	}, adminID, service.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var quizBlockBody struct {
		Data dto.TestBlockResponse `json:"data"`
	}
	decode(t, resp, &quizBlockBody)
	quizBlockID := quizBlockBody.Data.ID

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/tests/"+testID.String()+"/blocks", map[string]any{
		"type":   models.BlockFileUpload,
		"title":  "Upload your design",
		"points": 10,
	}, adminID, service.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var practicalBlockBody struct {
		Data dto.TestBlockResponse `json:"data"`
	}
	decode(t, resp, &practicalBlockBody)
	practicalBlockID := practicalBlockBody.Data.ID

	// Step 3: employee starts a draft
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions", map[string]any{
		"testId": testID,
		"userId": employeeID,
	}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var draftBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &draftBody)
	require.Equal(t, models.StatusDraft, draftBody.Data.Status)
	submissionID := draftBody.Data.ID

	// Step 4: employee uploads the practical artifact
	pngBytes := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 64)...)

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("blockId", practicalBlockID.String()))
	filePart, err := writer.CreateFormFile("file", "design.png")
	require.NoError(t, err)
	_, err = filePart.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	uploadReq := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/upload", buf)
	uploadReq.Header.Set("Content-Type", writer.FormDataContentType())
	uploadReq.Header.Set("X-Test-User", employeeID.String())
	uploadReq.Header.Set("X-Test-Role", service.RoleEmployee)
	uploadResp, err := app.Test(uploadReq, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, uploadResp.StatusCode)

	var uploadBody struct {
		Data dto.UploadResponse `json:"data"`
	}
	decode(t, uploadResp, &uploadBody)
	require.Contains(t, uploadBody.Data.FileURL, "https://files.test/")
	require.Equal(t, "design.png", uploadBody.Data.FileName)

	// Step 5: employee attaches the artifact to the draft and hands it in
	resp = jsonRequest(t, app, http.MethodPatch, "/api/v1/submissions/"+submissionID.String(), map[string]any{
		"practicalSubmissions": []map[string]any{{
			"blockId":  practicalBlockID,
			"type":     "file",
			"fileUrl":  uploadBody.Data.FileURL,
			"fileName": uploadBody.Data.FileName,
			"fileSize": uploadBody.Data.FileSize,
			"filePath": uploadBody.Data.FilePath,
		}},
	}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/submit", map[string]any{
		"autoAnswers": map[string]any{quizBlockID.String(): "a"},
	}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var submittedBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &submittedBody)
	require.Equal(t, models.StatusPendingReview, submittedBody.Data.Status)
	require.Equal(t, float64(100), submittedBody.Data.AutoPercentage)

	// Step 6: trainer approves the pending submission with an annotation
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/review", map[string]any{
		"reviewerId": trainerID,
		"decision":   "approve",
		"reason":     "Design fulfils every acceptance criterion",
		"comments": []map[string]any{{
			"blockId":   practicalBlockID,
			"type":      "image",
			"positionX": 30.0,
			"positionY": 55.0,
			"text":      "nice use of whitespace here",
		}},
	}, trainerID, service.RoleTrainer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reviewedBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &reviewedBody)
	require.Equal(t, models.StatusApproved, reviewedBody.Data.Status)
	require.Equal(t, 100, reviewedBody.Data.FinalScore)
	require.True(t, reviewedBody.Data.Passed)
	require.NotNil(t, reviewedBody.Data.ReviewerID)
	require.Equal(t, trainerID, *reviewedBody.Data.ReviewerID)

	// Step 7: the employee can read the annotation on their submission
	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/"+submissionID.String()+"/comments", nil, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var commentsBody struct {
		Data []dto.CommentResponse `json:"data"`
	}
	decode(t, resp, &commentsBody)
	require.Len(t, commentsBody.Data, 1)
	require.Equal(t, trainerID, commentsBody.Data[0].ReviewerID)
	require.Equal(t, "nice use of whitespace here", commentsBody.Data[0].Text)

	// Step 8: the reviewer can retract their own annotation
	resp = jsonRequest(t, app, http.MethodDelete, "/api/v1/comments/"+commentsBody.Data[0].ID.String(), nil, trainerID, service.RoleTrainer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/"+submissionID.String()+"/comments", nil, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &commentsBody)
	require.Empty(t, commentsBody.Data)
}

func TestRevisionRoundTrip(t *testing.T) {
	app := setupAssessmentApp(t)

	adminID := uuid.New()
	trainerID := uuid.New()
	employeeID := uuid.New()

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/tests", map[string]any{
		"title": "Practical Review",
	}, adminID, service.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var testBody struct {
		Data dto.TestResponse `json:"data"`
	}
	decode(t, resp, &testBody)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/tests/"+testBody.Data.ID.String()+"/blocks", map[string]any{
		"type":  models.BlockVideo,
		"title": "Record a walkthrough",
	}, adminID, service.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions", map[string]any{
		"testId": testBody.Data.ID,
		"userId": employeeID,
	}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var draftBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &draftBody)
	submissionID := draftBody.Data.ID

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/submit", map[string]any{}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/review", map[string]any{
		"reviewerId": trainerID,
		"decision":   "needs_revision",
		"reason":     "The walkthrough skips the deployment step entirely",
	}, trainerID, service.RoleTrainer)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reviewedBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &reviewedBody)
	require.Equal(t, models.StatusNeedsRevision, reviewedBody.Data.Status)
	require.False(t, reviewedBody.Data.Passed)

	// a second review on the same submission must be rejected
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/"+submissionID.String()+"/review", map[string]any{
		"reviewerId": trainerID,
		"decision":   "approve",
		"reason":     "Changed my mind about the missing deployment step",
	}, trainerID, service.RoleTrainer)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// the employee retries: a fresh draft starts attempt two and leaves the
	// reviewed submission untouched
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions", map[string]any{
		"testId": testBody.Data.ID,
		"userId": employeeID,
	}, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var retryBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decode(t, resp, &retryBody)
	require.NotEqual(t, submissionID, retryBody.Data.ID)
	require.Equal(t, models.StatusDraft, retryBody.Data.Status)
	require.Equal(t, 2, retryBody.Data.AttemptNumber)

	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/"+submissionID.String(), nil, employeeID, service.RoleEmployee)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var unchangedBody struct {
		Data dto.SubmissionDetailResponse `json:"data"`
	}
	decode(t, resp, &unchangedBody)
	require.Equal(t, models.StatusNeedsRevision, unchangedBody.Data.Status)
}

package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browoko/assessment-api/internal/repository"
	"github.com/browoko/assessment-api/internal/service"
)

type stubStorage struct {
	lastPath string
	fail     bool
}

func (s *stubStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	if s.fail {
		return "", fmt.Errorf("storage unavailable")
	}
	s.lastPath = name
	return "https://files.test/" + name, nil
}

// pngBytes is a minimal PNG header, enough for content type detection.
func pngBytes() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func newUploadFixture(t *testing.T, maxMB int) (*fixture, *stubStorage, service.UploadService) {
	t.Helper()

	f := newFixture(t)
	storage := &stubStorage{}
	uploads := service.NewUploadService(storage, repository.NewSubmissionRepository(f.db), maxMB, zerolog.New(io.Discard))
	return f, storage, uploads
}

func TestUploadStoresArtifactForDraft(t *testing.T) {
	f, storage, uploads := newUploadFixture(t, 50)
	test, blocks := f.seedPracticalTest(t)
	caller := employee()
	draft := f.startDraft(t, test, caller)
	blockID := blocks[2].ID

	result, err := uploads.Upload(context.Background(), caller, draft.ID, blockID, fileHeader(t, "proof.png", pngBytes()))
	require.NoError(t, err)

	assert.Equal(t, "proof.png", result.FileName)
	assert.EqualValues(t, len(pngBytes()), result.FileSize)
	assert.Contains(t, result.FilePath, draft.ID.String()+"/")
	assert.Contains(t, result.FilePath, blockID.String())
	assert.Equal(t, "https://files.test/"+result.FilePath, result.FileURL)
	assert.Equal(t, result.FilePath, storage.lastPath)
}

func TestUploadRejectsForeignSubmission(t *testing.T) {
	f, _, uploads := newUploadFixture(t, 50)
	test, blocks := f.seedPracticalTest(t)
	caller := employee()
	draft := f.startDraft(t, test, caller)

	_, err := uploads.Upload(context.Background(), employee(), draft.ID, blocks[2].ID, fileHeader(t, "proof.png", pngBytes()))
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestUploadRejectsSubmittedSubmission(t *testing.T) {
	f, _, uploads := newUploadFixture(t, 50)
	caller := employee()
	_, blocks, pending := submitPractical(t, f, caller, true)

	_, err := uploads.Upload(context.Background(), caller, pending.ID, blocks[2].ID, fileHeader(t, "late.png", pngBytes()))
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	f, _, uploads := newUploadFixture(t, 50)
	test, blocks := f.seedPracticalTest(t)
	caller := employee()
	draft := f.startDraft(t, test, caller)

	_, err := uploads.Upload(context.Background(), caller, draft.ID, blocks[2].ID, fileHeader(t, "notes.txt", []byte("plain text, not media")))
	require.ErrorIs(t, err, service.ErrUploadTypeNotAllowed)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f, _, uploads := newUploadFixture(t, 1)
	test, blocks := f.seedPracticalTest(t)
	caller := employee()
	draft := f.startDraft(t, test, caller)

	oversized := append(pngBytes(), make([]byte, 2*1024*1024)...)
	_, err := uploads.Upload(context.Background(), caller, draft.ID, blocks[2].ID, fileHeader(t, "big.png", oversized))
	require.ErrorIs(t, err, service.ErrUploadTooLarge)
}

func TestUploadPropagatesStorageFailure(t *testing.T) {
	f, storage, uploads := newUploadFixture(t, 50)
	test, blocks := f.seedPracticalTest(t)
	caller := employee()
	draft := f.startDraft(t, test, caller)
	storage.fail = true

	_, err := uploads.Upload(context.Background(), caller, draft.ID, blocks[2].ID, fileHeader(t, "proof.png", pngBytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store artifact")
}

func TestUploadUnknownSubmission(t *testing.T) {
	_, _, uploads := newUploadFixture(t, 50)

	_, err := uploads.Upload(context.Background(), employee(), uuid.New(), uuid.New(), fileHeader(t, "proof.png", pngBytes()))
	require.ErrorIs(t, err, service.ErrSubmissionNotFound)
}

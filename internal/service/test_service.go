package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/repository"
	"github.com/browoko/assessment-api/internal/scoring"
)

// TestService manages test definitions and their blocks. Definitions are
// read on every hand-in to grade answers, so they are cached in Redis and
// invalidated on every mutation.
type TestService interface {
	TestDefinitions
	List(ctx context.Context, organizationID *uuid.UUID) ([]dto.TestResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.TestDetailResponse, error)
	Create(ctx context.Context, caller Identity, payload dto.TestCreateRequest) (dto.TestResponse, error)
	Update(ctx context.Context, caller Identity, id uuid.UUID, payload dto.TestUpdateRequest) (dto.TestResponse, error)
	Delete(ctx context.Context, caller Identity, id uuid.UUID) error
	CreateBlock(ctx context.Context, caller Identity, testID uuid.UUID, payload dto.TestBlockCreateRequest) (dto.TestBlockResponse, error)
	UpdateBlock(ctx context.Context, caller Identity, blockID uuid.UUID, payload dto.TestBlockUpdateRequest) (dto.TestBlockResponse, error)
	DeleteBlock(ctx context.Context, caller Identity, blockID uuid.UUID) error
}

type testService struct {
	tests     repository.TestRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTestService constructs a TestService instance. The cache client may be
// nil, in which case every definition read hits the database.
func NewTestService(testRepo repository.TestRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) TestService {
	return &testService{
		tests:     testRepo,
		cache:     cache,
		cacheTTL:  ttl,
		validator: validate,
		logger:    logger.With().Str("component", "test_service").Logger(),
	}
}

type testDefinition struct {
	Test   models.Test        `json:"test"`
	Blocks []models.TestBlock `json:"blocks"`
}

func definitionCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("test:definition:%s", id)
}

func (s *testService) Definition(ctx context.Context, id uuid.UUID) (models.Test, []models.TestBlock, error) {
	cacheKey := definitionCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var def testDefinition
			if unmarshalErr := json.Unmarshal([]byte(cached), &def); unmarshalErr == nil {
				s.logger.Debug().Str("test_id", id.String()).Msg("test definition cache hit")
				return def.Test, def.Blocks, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read test definition cache")
		}
	}

	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Test{}, nil, ErrTestNotFound
		}
		return models.Test{}, nil, err
	}
	blocks, err := s.tests.ListBlocks(ctx, id)
	if err != nil {
		return models.Test{}, nil, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(testDefinition{Test: test, Blocks: blocks})
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store test definition cache")
			}
		}
	}

	return test, blocks, nil
}

func (s *testService) List(ctx context.Context, organizationID *uuid.UUID) ([]dto.TestResponse, error) {
	tests, err := s.tests.List(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return dto.NewTestResponseSlice(tests), nil
}

func (s *testService) Get(ctx context.Context, id uuid.UUID) (dto.TestDetailResponse, error) {
	test, blocks, err := s.Definition(ctx, id)
	if err != nil {
		return dto.TestDetailResponse{}, err
	}
	return dto.TestDetailResponse{
		TestResponse: dto.NewTestResponse(test),
		Blocks:       dto.NewTestBlockResponseSlice(blocks),
	}, nil
}

func (s *testService) Create(ctx context.Context, caller Identity, payload dto.TestCreateRequest) (dto.TestResponse, error) {
	if err := s.requireAdmin(caller); err != nil {
		return dto.TestResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	createdBy := caller.UserID
	test := models.Test{
		OrganizationID:   payload.OrganizationID,
		Title:            payload.Title,
		Description:      payload.Description,
		PassPercentage:   payload.PassPercentage,
		RewardCoins:      payload.RewardCoins,
		MaxAttempts:      payload.MaxAttempts,
		TimeLimitMinutes: payload.TimeLimitMinutes,
		IsActive:         true,
		CreatedBy:        &createdBy,
	}
	if test.PassPercentage <= 0 {
		test.PassPercentage = models.DefaultPassPercentage
	}
	if test.MaxAttempts <= 0 {
		test.MaxAttempts = models.DefaultMaxAttempts
	}

	if err := s.tests.Create(ctx, &test); err != nil {
		return dto.TestResponse{}, err
	}

	s.logger.Info().Str("test_id", test.ID.String()).Str("title", test.Title).Msg("test created")
	return dto.NewTestResponse(test), nil
}

func (s *testService) Update(ctx context.Context, caller Identity, id uuid.UUID, payload dto.TestUpdateRequest) (dto.TestResponse, error) {
	if err := s.requireAdmin(caller); err != nil {
		return dto.TestResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestResponse{}, err
	}

	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, err
	}

	if payload.Title != nil {
		test.Title = *payload.Title
	}
	if payload.Description != nil {
		test.Description = *payload.Description
	}
	if payload.PassPercentage != nil {
		test.PassPercentage = *payload.PassPercentage
	}
	if payload.RewardCoins != nil {
		test.RewardCoins = *payload.RewardCoins
	}
	if payload.MaxAttempts != nil {
		test.MaxAttempts = *payload.MaxAttempts
	}
	if payload.TimeLimitMinutes != nil {
		test.TimeLimitMinutes = payload.TimeLimitMinutes
	}
	if payload.IsActive != nil {
		test.IsActive = *payload.IsActive
	}

	if err := s.tests.Update(ctx, &test); err != nil {
		return dto.TestResponse{}, err
	}
	s.invalidate(ctx, id)

	return dto.NewTestResponse(test), nil
}

func (s *testService) Delete(ctx context.Context, caller Identity, id uuid.UUID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	if err := s.tests.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTestNotFound
		}
		return err
	}
	s.invalidate(ctx, id)

	s.logger.Info().Str("test_id", id.String()).Msg("test deleted")
	return nil
}

func (s *testService) CreateBlock(ctx context.Context, caller Identity, testID uuid.UUID, payload dto.TestBlockCreateRequest) (dto.TestBlockResponse, error) {
	if err := s.requireAdmin(caller); err != nil {
		return dto.TestBlockResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestBlockResponse{}, err
	}
	if err := s.validateBlockContent(payload.Type, payload.Content); err != nil {
		return dto.TestBlockResponse{}, err
	}

	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestBlockResponse{}, ErrTestNotFound
		}
		return dto.TestBlockResponse{}, err
	}

	block := models.TestBlock{
		TestID:           testID,
		Type:             payload.Type,
		Title:            payload.Title,
		Description:      payload.Description,
		Content:          datatypes.JSON(payload.Content),
		Points:           payload.Points,
		IsRequired:       true,
		TimeLimitSeconds: payload.TimeLimitSeconds,
		Position:         payload.Position,
	}
	if payload.IsRequired != nil {
		block.IsRequired = *payload.IsRequired
	}
	if block.Points <= 0 {
		block.Points = models.DefaultBlockPoints
	}

	if err := s.tests.CreateBlock(ctx, &block); err != nil {
		return dto.TestBlockResponse{}, err
	}
	s.invalidate(ctx, testID)

	return dto.NewTestBlockResponse(block), nil
}

func (s *testService) UpdateBlock(ctx context.Context, caller Identity, blockID uuid.UUID, payload dto.TestBlockUpdateRequest) (dto.TestBlockResponse, error) {
	if err := s.requireAdmin(caller); err != nil {
		return dto.TestBlockResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestBlockResponse{}, err
	}

	block, err := s.tests.GetBlockByID(ctx, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestBlockResponse{}, ErrBlockNotFound
		}
		return dto.TestBlockResponse{}, err
	}

	if payload.Content != nil {
		if err := s.validateBlockContent(block.Type, payload.Content); err != nil {
			return dto.TestBlockResponse{}, err
		}
		block.Content = datatypes.JSON(payload.Content)
	}
	if payload.Title != nil {
		block.Title = *payload.Title
	}
	if payload.Description != nil {
		block.Description = *payload.Description
	}
	if payload.Points != nil {
		block.Points = *payload.Points
	}
	if payload.IsRequired != nil {
		block.IsRequired = *payload.IsRequired
	}
	if payload.TimeLimitSeconds != nil {
		block.TimeLimitSeconds = payload.TimeLimitSeconds
	}
	if payload.Position != nil {
		block.Position = *payload.Position
	}

	if err := s.tests.UpdateBlock(ctx, &block); err != nil {
		return dto.TestBlockResponse{}, err
	}
	s.invalidate(ctx, block.TestID)

	return dto.NewTestBlockResponse(block), nil
}

func (s *testService) DeleteBlock(ctx context.Context, caller Identity, blockID uuid.UUID) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	block, err := s.tests.GetBlockByID(ctx, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlockNotFound
		}
		return err
	}

	if err := s.tests.DeleteBlock(ctx, blockID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlockNotFound
		}
		return err
	}
	s.invalidate(ctx, block.TestID)

	return nil
}

// validateBlockContent rejects content payloads that the grader would not be
// able to interpret on hand-in.
func (s *testService) validateBlockContent(blockType models.BlockType, content []byte) error {
	if len(content) == 0 {
		if blockType.IsAutoGradable() {
			return fmt.Errorf("%w: %s blocks require content with a correct answer", ErrValidation, blockType)
		}
		return nil
	}
	if _, err := scoring.ParseContent(blockType, content); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (s *testService) requireAdmin(caller Identity) error {
	if caller.IsZero() {
		return ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: administrator role required", ErrForbidden)
	}
	return nil
}

func (s *testService) invalidate(ctx context.Context, testID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, definitionCacheKey(testID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("test_id", testID.String()).Msg("failed to invalidate test definition cache")
	}
}

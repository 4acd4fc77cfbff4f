package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/browoko/assessment-api/internal/models"
)

// TestRepository defines data operations for tests and their blocks. The
// submission workflow only reads; administrators also mutate.
type TestRepository interface {
	List(ctx context.Context, organizationID *uuid.UUID) ([]models.Test, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Test, error)
	ListBlocks(ctx context.Context, testID uuid.UUID) ([]models.TestBlock, error)
	GetBlockByID(ctx context.Context, id uuid.UUID) (models.TestBlock, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateBlock(ctx context.Context, block *models.TestBlock) error
	UpdateBlock(ctx context.Context, block *models.TestBlock) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

type testRepository struct {
	db *gorm.DB
}

// NewTestRepository instantiates the repository.
func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) List(ctx context.Context, organizationID *uuid.UUID) ([]models.Test, error) {
	query := r.db.WithContext(ctx).Model(&models.Test{})
	if organizationID != nil {
		query = query.Where("organization_id = ?", *organizationID)
	}

	var tests []models.Test
	if err := query.Order("created_at DESC").Find(&tests).Error; err != nil {
		return nil, err
	}

	return tests, nil
}

func (r *testRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return models.Test{}, err
	}

	return test, nil
}

func (r *testRepository) ListBlocks(ctx context.Context, testID uuid.UUID) ([]models.TestBlock, error) {
	var blocks []models.TestBlock
	if err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("position ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}

	return blocks, nil
}

func (r *testRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (models.TestBlock, error) {
	var block models.TestBlock
	if err := r.db.WithContext(ctx).First(&block, "id = ?", id).Error; err != nil {
		return models.TestBlock{}, err
	}

	return block, nil
}

func (r *testRepository) Create(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *testRepository) Update(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Save(test).Error
}

func (r *testRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Test{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *testRepository) CreateBlock(ctx context.Context, block *models.TestBlock) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *testRepository) UpdateBlock(ctx context.Context, block *models.TestBlock) error {
	return r.db.WithContext(ctx).Save(block).Error
}

func (r *testRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TestBlock{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"gorm.io/gorm"
)

type ListingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
}

type GormListingRepo struct {
	db *gorm.DB
}

func NewGormListingRepo(db *gorm.DB) *GormListingRepo {
	return &GormListingRepo{db: db}
}

func (r *GormListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	var model ListingModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return listingModelToDomain(&model), nil
}

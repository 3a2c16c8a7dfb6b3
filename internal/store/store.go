package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"museum-stream-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	Ratings(ctx context.Context) ([]model.Rating, error)
	InsertVote(ctx context.Context, vote *model.Vote) error
	InsertAssistance(ctx context.Context, req *model.Assistance) error
	InsertEmergency(ctx context.Context, req *model.Emergency) error
	SeedRatings(ctx context.Context) (int64, error)

	StaffSubscriptions(ctx context.Context, kind string) ([]model.StaffSubscription, error)
	PutStaffSubscription(ctx context.Context, sub *model.StaffSubscription) error
	DeleteStaffSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Ratings reads the whole Rating reference table.
func (s *gormStore) Ratings(ctx context.Context) ([]model.Rating, error) {
	var ratings []model.Rating
	if err := s.db.WithContext(ctx).Order("ratingid").Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	return ratings, nil
}

func (s *gormStore) InsertVote(ctx context.Context, vote *model.Vote) error {
	return s.insert(ctx, vote)
}

func (s *gormStore) InsertAssistance(ctx context.Context, req *model.Assistance) error {
	return s.insert(ctx, req)
}

func (s *gormStore) InsertEmergency(ctx context.Context, req *model.Emergency) error {
	return s.insert(ctx, req)
}

// insert writes a single row in its own transaction, committed before returning.
func (s *gormStore) insert(ctx context.Context, row any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

// SeedRatings installs the default rating rows, skipping values already present.
// It returns the number of rows inserted.
func (s *gormStore) SeedRatings(ctx context.Context) (int64, error) {
	rows := make([]model.Rating, len(model.DefaultRatings))
	copy(rows, model.DefaultRatings)

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rating"}},
			DoNothing: true,
		}).Create(&rows)
		inserted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("seed ratings failed: %w", err)
	}
	return inserted, nil
}

// StaffSubscriptions returns the subscriptions that asked for alerts of the given kind.
func (s *gormStore) StaffSubscriptions(ctx context.Context, kind string) ([]model.StaffSubscription, error) {
	var subs []model.StaffSubscription
	if err := s.db.WithContext(ctx).
		Where("kinds LIKE ?", "%"+kind+"%").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s subscriptions: %w", kind, err)
	}
	return subs, nil
}

// PutStaffSubscription creates or replaces a subscription keyed by endpoint.
func (s *gormStore) PutStaffSubscription(ctx context.Context, sub *model.StaffSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "kinds"}),
	}).Create(sub).Error
}

func (s *gormStore) DeleteStaffSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.StaffSubscription{Endpoint: endpoint}).Error
}

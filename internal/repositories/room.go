package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

type RoomRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// FindByID implements RoomRepository.
func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to find room: %w", apperr.ErrPersistence, err)
	}

	return &room, nil
}

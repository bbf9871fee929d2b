package repository

import (
	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(msg *models.UserMessage) error {
	return r.db.Create(msg).Error
}

func (r *messageRepository) GetByID(id uint) (*models.UserMessage, error) {
	var m models.UserMessage
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) Delete(id uint) error {
	return r.db.Delete(&models.UserMessage{}, id).Error
}

// ListByRecipients returns messages sent to any of the groups, newest first
func (r *messageRepository) ListByRecipients(groupIDs []uint, limit int) ([]models.UserMessage, error) {
	if len(groupIDs) == 0 {
		return []models.UserMessage{}, nil
	}
	var msgs []models.UserMessage
	q := r.db.Where("recipient_id IN ?", groupIDs).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

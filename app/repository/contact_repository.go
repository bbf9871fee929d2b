package repository

import (
	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/gorm"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(msg *models.ContactMessage) error {
	return r.db.Create(msg).Error
}

func (r *contactRepository) GetByID(id uint) (*models.ContactMessage, error) {
	var m models.ContactMessage
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

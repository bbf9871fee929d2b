package repository

import (
	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/gorm"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *eventRepository) GetByID(id uint) (*models.Event, error) {
	var e models.Event
	if err := r.db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) Update(event *models.Event) error {
	return r.db.Model(event).Select("title", "description", "date", "end_date").Updates(event).Error
}

func (r *eventRepository) Delete(id uint) error {
	return r.db.Delete(&models.Event{}, id).Error
}

// ListPersonal returns the user's own events outside any group or planner
func (r *eventRepository) ListPersonal(userID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("group_id IS NULL AND schedule_id IS NULL AND created_by = ?", userID).
		Order("date ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepository) ListByGroupIDs(groupIDs []uint) ([]models.Event, error) {
	if len(groupIDs) == 0 {
		return []models.Event{}, nil
	}
	var events []models.Event
	err := r.db.Where("group_id IN ?", groupIDs).Order("date ASC").Find(&events).Error
	return events, err
}

func (r *eventRepository) ListBySchedule(scheduleID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.Where("schedule_id = ?", scheduleID).Order("date ASC").Find(&events).Error
	return events, err
}

func (r *eventRepository) ListPlannedForOwner(ownerID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("schedule_id IS NOT NULL AND created_by = ?", ownerID).
		Order("date ASC").
		Find(&events).Error
	return events, err
}

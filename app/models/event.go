package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Event is a calendar entry. GroupID nil means personal, ScheduleID set means
// the event was generated for a planner.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupID     *uint     `gorm:"index" json:"group_id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Description string    `gorm:"type:text" json:"description" validate:"max=5000"`
	Date        time.Time `gorm:"index;not null" json:"date" validate:"required"`
	EndDate     time.Time `gorm:"not null" json:"end_date" validate:"required"`
	CreatedBy   uint      `gorm:"index;not null" json:"created_by"`
	ScheduleID  *uint     `gorm:"index" json:"schedule_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrEventEndsBeforeStart = errors.New("event end must not be before its start")

func (e *Event) Validate() error {
	v := validator.New()
	if err := v.Struct(e); err != nil {
		return err
	}
	if e.EndDate.Before(e.Date) {
		return ErrEventEndsBeforeStart
	}
	return nil
}

func (e *Event) IsPersonal() bool {
	return e.GroupID == nil
}

func (e *Event) IsPlanned() bool {
	return e.ScheduleID != nil
}

// Planner is a named batch of generated study events.
type Planner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	OwnedBy   uint      `gorm:"index;not null" json:"owned_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

// EventStore is the log of received Stripe webhook events. A row is claimed
// once per (provider, event id); redeliveries find the existing row and its
// outcome instead of applying the event twice.
type EventStore interface {
	// Claim inserts the event unless it is already logged. created reports
	// whether this call inserted it; stored is the row as persisted.
	Claim(event *models.BillingWebhookEvent) (created bool, stored *models.BillingWebhookEvent, err error)
	// Finish records when the event was applied and the failure text, empty on success.
	Finish(id uint, at time.Time, failure string) error
}

type gormEventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) EventStore {
	return &gormEventStore{db: db}
}

func (s *gormEventStore) Claim(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, event, nil
	}

	var stored models.BillingWebhookEvent
	err := s.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error
	if err != nil {
		return false, nil, err
	}
	return false, &stored, nil
}

func (s *gormEventStore) Finish(id uint, at time.Time, failure string) error {
	return s.db.Model(&models.BillingWebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed_at": at, "processing_error": failure}).Error
}

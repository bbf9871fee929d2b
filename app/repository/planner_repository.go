package repository

import (
	"github.com/biblestudybuddy/studybuddy/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type plannerRepository struct {
	db *gorm.DB
}

// NewPlannerRepository creates a new planner repository instance
func NewPlannerRepository(db *gorm.DB) PlannerRepository {
	return &plannerRepository{db: db}
}

func (r *plannerRepository) GetByID(id uint) (*models.Planner, error) {
	var p models.Planner
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *plannerRepository) ListByOwner(ownerID uint) ([]models.Planner, error) {
	var planners []models.Planner
	err := r.db.Where("owned_by = ?", ownerID).Order("created_at DESC").Find(&planners).Error
	return planners, err
}

// lockProfile reads the profile with a row lock held until tx ends, so
// concurrent planner writes never drop an id from profiles.planners.
func lockProfile(tx *gorm.DB, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateWithEvents charges the owner's quota, stores the planner with its
// events and records the planner on the profile in one transaction.
// The events slice is updated in place with ids and schedule ids.
func (r *plannerRepository) CreateWithEvents(planner *models.Planner, events []models.Event, tokensUsed int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		profile, err := lockProfile(tx, planner.OwnedBy)
		if err != nil {
			return err
		}

		if tokensUsed > 0 {
			err := tx.Model(&models.Profile{}).
				Where("user_id = ?", planner.OwnedBy).
				Update("tokens_left", gorm.Expr("CASE WHEN tokens_left > ? THEN tokens_left - ? ELSE 0 END", tokensUsed, tokensUsed)).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Create(planner).Error; err != nil {
			return err
		}

		for i := range events {
			events[i].ScheduleID = &planner.ID
			events[i].CreatedBy = planner.OwnedBy
			events[i].GroupID = nil
		}
		if len(events) > 0 {
			if err := tx.CreateInBatches(&events, 100).Error; err != nil {
				return err
			}
		}

		planners := append(datatypes.JSONSlice[uint]{}, profile.Planners...)
		planners = append(planners, planner.ID)
		return tx.Model(&models.Profile{}).
			Where("user_id = ?", planner.OwnedBy).
			Update("planners", planners).Error
	})
}

// DeleteWithEvents removes the planner, every event scheduled for it and its
// id on the owner's profile. Returns gorm.ErrRecordNotFound when the owner
// does not own the planner.
func (r *plannerRepository) DeleteWithEvents(ownerID, plannerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var planner models.Planner
		if err := tx.Where("id = ? AND owned_by = ?", plannerID, ownerID).First(&planner).Error; err != nil {
			return err
		}

		if err := tx.Where("schedule_id = ?", planner.ID).Delete(&models.Event{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&planner).Error; err != nil {
			return err
		}

		profile, err := lockProfile(tx, ownerID)
		if err != nil {
			return err
		}
		remaining := make([]uint, 0, len(profile.Planners))
		for _, id := range profile.Planners {
			if id != planner.ID {
				remaining = append(remaining, id)
			}
		}
		return tx.Model(&models.Profile{}).
			Where("user_id = ?", ownerID).
			Update("planners", datatypes.JSONSlice[uint](remaining)).Error
	})
}

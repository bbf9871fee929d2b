package repository

import (
	"time"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

// UserRepository defines the interface for login identities
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	TouchLastLogin(id uint, at time.Time) error
	GetProviderAccount(provider, providerUserID string) (*models.ProviderAccount, error)
	LinkProviderAccount(account *models.ProviderAccount) error
}

// ProfileRepository defines the interface for profile rows keyed by user id
type ProfileRepository interface {
	GetOrCreate(userID uint, email string) (*models.Profile, error)
	GetByUserID(userID uint) (*models.Profile, error)
	GetByStripeSubscriptionID(subscriptionID string) (*models.Profile, error)
	UpdateFields(userID uint, fields map[string]interface{}) error
	SaveGoogleTokens(userID uint, accessToken, refreshToken string, expiresAt time.Time) error
	ClearGoogleTokens(userID uint) error
	ListExpiredTrials(now time.Time, limit int) ([]models.Profile, error)
}

// GroupWithStats is a group as listed for one user.
type GroupWithStats struct {
	models.Group
	UserCount int64 `json:"user_count"`
	IsCreator bool  `json:"isCreator"`
}

// GroupMember is the public projection of a member.
type GroupMember struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupRepository defines the interface for groups and memberships
type GroupRepository interface {
	Create(group *models.Group) error
	GetByID(id uint) (*models.Group, error)
	GetByJoinCode(code string) (*models.Group, error)
	JoinCodeExists(code string) (bool, error)
	CountCreatedBy(userID uint) (int64, error)
	AddMember(userID, groupID uint) (bool, error)
	IsMember(userID, groupID uint) (bool, error)
	GroupIDsForUser(userID uint) ([]uint, error)
	ListForUser(userID uint) ([]GroupWithStats, error)
	Members(groupID uint) ([]GroupMember, error)
}

// EventRepository defines the interface for calendar events
type EventRepository interface {
	Create(event *models.Event) error
	GetByID(id uint) (*models.Event, error)
	Update(event *models.Event) error
	Delete(id uint) error
	ListPersonal(userID uint) ([]models.Event, error)
	ListByGroupIDs(groupIDs []uint) ([]models.Event, error)
	ListBySchedule(scheduleID uint) ([]models.Event, error)
	ListPlannedForOwner(ownerID uint) ([]models.Event, error)
}

// PlannerRepository defines the interface for planners and their events
type PlannerRepository interface {
	GetByID(id uint) (*models.Planner, error)
	ListByOwner(ownerID uint) ([]models.Planner, error)
	CreateWithEvents(planner *models.Planner, events []models.Event, tokensUsed int) error
	DeleteWithEvents(ownerID, plannerID uint) error
}

// MessageRepository defines the interface for group notifications
type MessageRepository interface {
	Create(msg *models.UserMessage) error
	GetByID(id uint) (*models.UserMessage, error)
	Delete(id uint) error
	ListByRecipients(groupIDs []uint, limit int) ([]models.UserMessage, error)
}

// ContactRepository defines the interface for contact form submissions
type ContactRepository interface {
	Create(msg *models.ContactMessage) error
	GetByID(id uint) (*models.ContactMessage, error)
}

package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles every repository over one database handle
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
	Group   GroupRepository
	Event   EventRepository
	Planner PlannerRepository
	Message MessageRepository
	Contact ContactRepository
}

// NewRepositories creates all repositories for db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Profile: NewProfileRepository(db),
		Group:   NewGroupRepository(db),
		Event:   NewEventRepository(db),
		Planner: NewPlannerRepository(db),
		Message: NewMessageRepository(db),
		Contact: NewContactRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// DB exposes the handle the factory was built with
func (f *Factory) DB() *gorm.DB {
	return f.db
}

package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
)

var (
	ErrNotCreator    = errors.New("only the creator may change this event")
	ErrNotMember     = errors.New("not a member of this group")
	ErrEventNotFound = errors.New("event not found")
)

// Input is the editable part of an event.
type Input struct {
	GroupID     *uint
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

type Service struct {
	events repository.EventRepository
	groups repository.GroupRepository
}

func NewService(events repository.EventRepository, groups repository.GroupRepository) *Service {
	return &Service{events: events, groups: groups}
}

// Create stores a personal event, or a group event when the user is a member.
func (s *Service) Create(userID uint, in Input) (*models.Event, error) {
	if in.GroupID != nil {
		ok, err := s.groups.IsMember(userID, *in.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotMember
		}
	}

	event := &models.Event{
		GroupID:     in.GroupID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Start,
		EndDate:     in.End,
		CreatedBy:   userID,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.events.Create(event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *Service) owned(userID, eventID uint) (*models.Event, error) {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.CreatedBy != userID {
		return nil, ErrNotCreator
	}
	return event, nil
}

// Update changes title, description and times. The group is fixed.
func (s *Service) Update(userID, eventID uint, in Input) (*models.Event, error) {
	event, err := s.owned(userID, eventID)
	if err != nil {
		return nil, err
	}

	event.Title = strings.TrimSpace(in.Title)
	event.Description = strings.TrimSpace(in.Description)
	event.Date = in.Start
	event.EndDate = in.End
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.events.Update(event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *Service) Delete(userID, eventID uint) error {
	if _, err := s.owned(userID, eventID); err != nil {
		return err
	}
	return s.events.Delete(eventID)
}

// ListGroup returns a group's events for a member.
func (s *Service) ListGroup(userID, groupID uint) ([]models.Event, error) {
	ok, err := s.groups.IsMember(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	return s.events.ListByGroupIDs([]uint{groupID})
}

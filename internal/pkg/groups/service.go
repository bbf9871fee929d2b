// Package groups creates, joins and lists shared calendar groups.
package groups

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/joincode"
)

const maxCodeAttempts = 5

var (
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrGroupLimitReached = errors.New("group limit reached for your plan")
	ErrNotMember         = errors.New("not a member of this group")
	ErrGroupNotFound     = errors.New("group not found")
	ErrEmptyName         = errors.New("group name is required")
	errCodeExhausted     = errors.New("could not generate a unique join code")
)

type Service struct {
	groups   repository.GroupRepository
	profiles repository.ProfileRepository
	now      func() time.Time
	newCode  func() (string, error)
}

func NewService(groups repository.GroupRepository, profiles repository.ProfileRepository) *Service {
	return &Service{
		groups:   groups,
		profiles: profiles,
		now:      time.Now,
		newCode:  func() (string, error) { return joincode.Generate(joincode.Length) },
	}
}

// CreateGroup stores a new group owned by the user and makes them a member.
func (s *Service) CreateGroup(userID uint, email, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	profile, err := s.profiles.GetOrCreate(userID, email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	created, err := s.groups.CountCreatedBy(userID)
	if err != nil {
		return nil, err
	}
	if !entitlements.CanCreateGroup(entitlements.ForProfile(profile, s.now()), created) {
		return nil, ErrGroupLimitReached
	}

	code, err := s.uniqueCode()
	if err != nil {
		return nil, err
	}

	group := &models.Group{Name: name, JoinCode: code, CreatedBy: userID}
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if err := s.groups.Create(group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	if _, err := s.groups.AddMember(userID, group.ID); err != nil {
		return nil, fmt.Errorf("add creator: %w", err)
	}

	log.Infof("[Groups] user %d created group %d", userID, group.ID)
	return group, nil
}

func (s *Service) uniqueCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		exists, err := s.groups.JoinCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errCodeExhausted
}

// JoinGroup adds the user to the group with the given code. Joining twice is a no-op.
func (s *Service) JoinGroup(userID uint, code string) (*models.Group, error) {
	code = joincode.Normalize(code)
	if !joincode.Valid(code) {
		return nil, ErrInvalidJoinCode
	}

	group, err := s.groups.GetByJoinCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidJoinCode
		}
		return nil, err
	}

	added, err := s.groups.AddMember(userID, group.ID)
	if err != nil {
		return nil, fmt.Errorf("join group: %w", err)
	}
	if added {
		log.Infof("[Groups] user %d joined group %d", userID, group.ID)
	}
	return group, nil
}

func (s *Service) ListUserGroups(userID uint) ([]repository.GroupWithStats, error) {
	return s.groups.ListForUser(userID)
}

// GetGroup returns the group if the user belongs to it.
func (s *Service) GetGroup(userID, groupID uint) (*models.Group, error) {
	group, err := s.groups.GetByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if err := s.RequireMember(userID, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Service) RequireMember(userID, groupID uint) error {
	ok, err := s.groups.IsMember(userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (s *Service) Members(groupID uint) ([]repository.GroupMember, error) {
	if _, err := s.groups.GetByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	members, err := s.groups.Members(groupID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []repository.GroupMember{}
	}
	return members, nil
}

package notifications

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
)

const listLimit = 100

var (
	ErrForbidden       = errors.New("not allowed to remove this message")
	ErrNotMember       = errors.New("not a member of this group")
	ErrMessageNotFound = errors.New("message not found")
)

// PostInput is what a member sends to a group.
type PostInput struct {
	GroupID   uint
	MsgType   string
	Content   string
	Anonymous bool
	EventIDs  []uint
}

// Notification is a message as shown to one reader.
type Notification struct {
	models.UserMessage
	GroupName string `json:"group_name"`
	CanDelete bool   `json:"can_delete"`
}

type Service struct {
	messages repository.MessageRepository
	groups   repository.GroupRepository
	events   repository.EventRepository
	now      func() time.Time
}

func NewService(messages repository.MessageRepository, groups repository.GroupRepository, events repository.EventRepository) *Service {
	return &Service{messages: messages, groups: groups, events: events, now: time.Now}
}

func (s *Service) Post(senderID uint, senderEmail string, in PostInput) (*models.UserMessage, error) {
	group, err := s.groups.GetByID(in.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	ok, err := s.groups.IsMember(senderID, group.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	now := s.now().UTC()
	var content models.MessageContent
	switch in.MsgType {
	case models.MsgTypeGroupAlert:
		content, err = GroupAlert(group.Name, in.Content, now)
	case models.MsgTypePrayerReq:
		content = PrayerRequest(senderEmail, in.Content, in.Anonymous, now)
	case models.MsgTypeAbsent:
		var evts []models.Event
		evts, err = s.groupEvents(group.ID, in.EventIDs)
		if err == nil {
			content, err = Absence(group.Name, senderEmail, evts, now)
		}
	default:
		err = ErrUnknownType
	}
	if err != nil {
		return nil, err
	}

	msg := &models.UserMessage{
		SenderID:    senderID,
		RecipientID: group.ID,
		MsgType:     in.MsgType,
		MsgContent:  datatypes.NewJSONType(content),
	}
	if err := s.messages.Create(msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	log.Infof("[Notifications] user %d posted %s to group %d", senderID, in.MsgType, group.ID)
	return msg, nil
}

// groupEvents loads the referenced events, ignoring ids outside the group.
func (s *Service) groupEvents(groupID uint, ids []uint) ([]models.Event, error) {
	out := make([]models.Event, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, err := s.events.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if e.GroupID == nil || *e.GroupID != groupID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

// List returns messages of all the user's groups, newest first.
func (s *Service) List(userID uint) ([]Notification, error) {
	groups, err := s.groups.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []Notification{}, nil
	}

	byID := make(map[uint]repository.GroupWithStats, len(groups))
	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}

	msgs, err := s.messages.ListByRecipients(ids, listLimit)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(msgs))
	for _, m := range msgs {
		g := byID[m.RecipientID]
		out = append(out, Notification{
			UserMessage: m,
			GroupName:   g.Name,
			CanDelete:   m.SenderID == userID || g.CreatedBy == userID,
		})
	}
	return out, nil
}

// Delete removes a message if the user sent it or owns its group.
func (s *Service) Delete(userID, messageID uint) error {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if msg.SenderID != userID {
		group, err := s.groups.GetByID(msg.RecipientID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if group == nil || group.CreatedBy != userID {
			return ErrForbidden
		}
	}
	return s.messages.Delete(messageID)
}

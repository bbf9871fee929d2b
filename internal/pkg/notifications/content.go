package notifications

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

const noPrayerDetails = "No details provided"

var (
	ErrContentRequired = errors.New("message content is required")
	ErrEventsRequired  = errors.New("select at least one event")
	ErrUnknownType     = errors.New("unknown message type")
)

// GroupAlert is a free-form update to the whole group.
func GroupAlert(groupName, content string, sentAt time.Time) (models.MessageContent, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageContent{}, ErrContentRequired
	}
	return models.MessageContent{
		Title:        groupName + " Update",
		Content:      content,
		DatetimeSent: sentAt,
	}, nil
}

// PrayerRequest hides the sender's email when anonymous.
func PrayerRequest(senderEmail, content string, anonymous bool, sentAt time.Time) models.MessageContent {
	title := "Prayer request for " + senderEmail
	if anonymous {
		title = "Anonymous prayer request for a member"
	}
	content = strings.TrimSpace(content)
	if content == "" {
		content = noPrayerDetails
	}
	return models.MessageContent{
		Title:        title,
		Content:      content,
		DatetimeSent: sentAt,
	}
}

// Absence announces that the sender misses the given events.
func Absence(groupName, senderEmail string, events []models.Event, sentAt time.Time) (models.MessageContent, error) {
	if len(events) == 0 {
		return models.MessageContent{}, ErrEventsRequired
	}

	refs := &models.EventRefs{}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		refs.ID = append(refs.ID, e.ID)
		refs.Name = append(refs.Name, e.Title)
		refs.Date = append(refs.Date, e.Date)
		lines = append(lines, fmt.Sprintf("%s won't be able to attend %s.", senderEmail, e.Title))
	}

	return models.MessageContent{
		Title:        groupName + " Absence",
		Content:      strings.Join(lines, "\n"),
		DatetimeSent: sentAt,
		Event:        refs,
	}, nil
}

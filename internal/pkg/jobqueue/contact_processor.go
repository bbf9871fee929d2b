package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/mail"
)

// EnqueueContactMail schedules delivery of a stored contact message
func EnqueueContactMail(q *Queue, msg *models.ContactMessage) (*Job, error) {
	if msg == nil || msg.ID == 0 {
		return nil, fmt.Errorf("cannot enqueue unsaved contact message")
	}
	payload := ContactMailJobPayload{
		ContactID: msg.ID,
		Name:      msg.Name,
		Email:     msg.Email,
		Message:   msg.Message,
	}
	return q.EnqueueJob(JobTypeContactMail, payload.ToMap())
}

// NewContactMailHandler returns the handler that forwards contact messages
// to inbox.
func NewContactMailHandler(sender mail.Sender, inbox string) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := ContactMailJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode contact payload: %w", err)
		}
		if inbox == "" {
			return fmt.Errorf("contact inbox is not configured")
		}

		subject := fmt.Sprintf("Contact form: %s", payload.Name)
		body := contactMailBody(payload)
		if err := sender.SendMail(inbox, subject, body); err != nil {
			return fmt.Errorf("send contact mail %d: %w", payload.ContactID, err)
		}
		log.Infof("[JobQueue] Contact message %d forwarded", payload.ContactID)
		return nil
	}
}

func contactMailBody(p *ContactMailJobPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", p.Name, p.Email)
	fmt.Fprintf(&b, "Message #%d\r\n\r\n", p.ContactID)
	b.WriteString(p.Message)
	b.WriteString("\r\n")
	return b.String()
}

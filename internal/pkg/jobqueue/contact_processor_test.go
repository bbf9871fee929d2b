package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendMail(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func TestContactMailHandler_SendsToInbox(t *testing.T) {
	sender := &fakeSender{}
	h := NewContactMailHandler(sender, "inbox@biblestudybuddy.test")

	payload := ContactMailJobPayload{ContactID: 3, Name: "Lydia", Email: "lydia@example.com", Message: "Can groups share planners?"}
	require.NoError(t, h(context.Background(), &Job{Type: JobTypeContactMail, Payload: payload.ToMap()}))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "inbox@biblestudybuddy.test", sender.sent[0].to)
	assert.Equal(t, "Contact form: Lydia", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "lydia@example.com")
	assert.Contains(t, sender.sent[0].body, "Can groups share planners?")
}

func TestContactMailHandler_Errors(t *testing.T) {
	job := &Job{Payload: ContactMailJobPayload{ContactID: 1, Name: "x"}.ToMap()}

	err := NewContactMailHandler(&fakeSender{}, "")(context.Background(), job)
	assert.Error(t, err)

	err = NewContactMailHandler(&fakeSender{err: errors.New("smtp down")}, "inbox@x.test")(context.Background(), job)
	assert.ErrorContains(t, err, "smtp down")
}

func TestEnqueueContactMail(t *testing.T) {
	q, _ := newTestQueue(t, 1)

	_, err := EnqueueContactMail(q, &models.ContactMessage{Name: "unsaved"})
	assert.Error(t, err)

	job, err := EnqueueContactMail(q, &models.ContactMessage{ID: 9, Name: "Ruth", Email: "ruth@example.com", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, JobTypeContactMail, job.Type)

	stored, err := q.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	payload, err := ContactMailJobPayloadFromMap(stored.Payload)
	require.NoError(t, err)
	assert.EqualValues(t, 9, payload.ContactID)
	assert.Equal(t, "Ruth", payload.Name)
}

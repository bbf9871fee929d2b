package studyplan

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrNoSessions      = errors.New("no study session fits the calendar")
)

// InvalidScheduleError is returned when the model output cannot be used.
type InvalidScheduleError struct {
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return "invalid schedule: " + e.Reason
}

func (e *InvalidScheduleError) Unwrap() error {
	return ErrInvalidSchedule
}

func invalid(reason string) error {
	return &InvalidScheduleError{Reason: reason}
}

// Session is one study session after the end time has been computed.
type Session struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// proposedSession is a session as the model returns it. Times are local
// wall clock strings and end is expected to be empty.
type proposedSession struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// scheduleEnvelope accepts a bare array or an object holding the array
// under "schedule" or "events".
type scheduleEnvelope struct {
	Sessions []proposedSession
}

func (e *scheduleEnvelope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return invalid("empty response")
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &e.Sessions); err != nil {
			return invalid("malformed session array: " + err.Error())
		}
		return nil
	case '{':
		var obj struct {
			Schedule json.RawMessage `json:"schedule"`
			Events   json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return invalid("malformed object: " + err.Error())
		}
		list := obj.Schedule
		if isNull(list) {
			list = obj.Events
		}
		if isNull(list) {
			return invalid(`object has neither "schedule" nor "events"`)
		}
		if err := json.Unmarshal(list, &e.Sessions); err != nil {
			return invalid("malformed session array: " + err.Error())
		}
		return nil
	}
	return invalid("response is not a JSON array or object")
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseSchedule decodes the completion text. Markdown code fences around
// the JSON are tolerated.
func parseSchedule(text string) ([]proposedSession, error) {
	text = stripFences(text)

	var env scheduleEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		var ise *InvalidScheduleError
		if errors.As(err, &ise) {
			return nil, err
		}
		return nil, invalid(err.Error())
	}
	if len(env.Sessions) == 0 {
		return nil, invalid("no sessions returned")
	}
	return env.Sessions, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

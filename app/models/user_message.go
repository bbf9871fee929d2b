package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MsgTypeGroupAlert = "group_alert"
	MsgTypePrayerReq  = "prayer_req"
	MsgTypeAbsent     = "absent"
)

// UserMessage is a notification posted by a member to a whole group.
// RecipientID is the group id.
type UserMessage struct {
	ID          uint                               `gorm:"primaryKey" json:"id"`
	SenderID    uint                               `gorm:"index;not null" json:"sender"`
	RecipientID uint                               `gorm:"index;not null" json:"recipient"`
	MsgType     string                             `gorm:"type:varchar(20);not null" json:"msg_type"`
	MsgContent  datatypes.JSONType[MessageContent] `json:"msg_content"`
	CreatedAt   time.Time                          `gorm:"autoCreateTime;index" json:"created_at"`
}

type MessageContent struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	DatetimeSent time.Time  `json:"datetime_sent"`
	Event        *EventRefs `json:"event,omitempty"`
}

// EventRefs lists the events a message refers to as parallel slices.
type EventRefs struct {
	ID   []uint      `json:"id"`
	Name []string    `json:"name"`
	Date []time.Time `json:"date"`
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	Email     string    `gorm:"type:varchar(200);not null" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

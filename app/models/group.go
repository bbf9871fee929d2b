package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const JoinCodeLength = 6

// Group is a shared calendar and notification scope, joined via JoinCode.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	JoinCode  string    `gorm:"type:varchar(6);uniqueIndex;not null" json:"join_code" validate:"required,len=6,alphanum,uppercase"`
	CreatedBy uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (g *Group) Validate() error {
	v := validator.New()

	return v.Struct(g)
}

// UserGroup is one membership row; (user_id, group_id) is unique.
type UserGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_user_groups_user_group,unique,priority:1" json:"user_id"`
	GroupID   uint      `gorm:"not null;index:ux_user_groups_user_group,unique,priority:2;index" json:"group_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

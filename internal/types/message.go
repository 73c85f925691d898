package types

import (
	"time"

	"github.com/google/uuid"
)

// Message is an append-only chat entry scoped to a match. There is no edit
// or delete path; ordering within a match is by created_at ascending.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MatchID   uuid.UUID `gorm:"type:uuid;not null;index;column:match_id" json:"match_id"`
	Match     *Match    `gorm:"constraint:OnDelete:CASCADE;foreignKey:MatchID;references:ID" json:"-"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;column:sender_id" json:"sender_id"`
	Content   string    `gorm:"not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

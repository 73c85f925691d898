package types

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

const MatchStatusAccepted = "accepted"

// Match pairs two secrets (and their owners) for anonymous messaging.
// PairFirstID/PairSecondID hold the canonicalized (min, max) secret pair;
// the composite unique index makes duplicate pairs fail at insert time
// regardless of argument order, so concurrent create requests cannot
// produce two matches for the same pair.
type Match struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Secret1ID    uuid.UUID `gorm:"type:uuid;not null;column:secret1_id" json:"secret1_id"`
	Secret1      *Secret   `gorm:"constraint:OnDelete:CASCADE;foreignKey:Secret1ID;references:ID" json:"-"`
	Secret2ID    uuid.UUID `gorm:"type:uuid;not null;column:secret2_id" json:"secret2_id"`
	Secret2      *Secret   `gorm:"constraint:OnDelete:CASCADE;foreignKey:Secret2ID;references:ID" json:"-"`
	User1ID      uuid.UUID `gorm:"type:uuid;not null;index;column:user1_id" json:"user1_id"`
	User2ID      uuid.UUID `gorm:"type:uuid;not null;index;column:user2_id" json:"user2_id"`
	PairFirstID  uuid.UUID `gorm:"type:uuid;not null;index:idx_match_pair,unique,priority:1;column:pair_first_id" json:"-"`
	PairSecondID uuid.UUID `gorm:"type:uuid;not null;index:idx_match_pair,unique,priority:2;column:pair_second_id" json:"-"`
	Status       string    `gorm:"not null;default:'accepted';column:status" json:"status"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Match) TableName() string {
	return "matches"
}

// CanonicalPair orders two secret identifiers so the same unordered pair
// always maps to the same (first, second) key.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

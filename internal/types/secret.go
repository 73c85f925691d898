package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EmbeddingDim is the dimensionality produced by the embedding model.
// Stored vectors of any other length are treated as malformed.
const EmbeddingDim = 1536

// MaxSecretTextLength is the submission cap enforced before any embedding call.
const MaxSecretTextLength = 1500

// Secret is a submitted confession. UserID is nil for anonymous authorship
// and may be set exactly once afterwards via the claim operation.
type Secret struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SecretText string         `gorm:"not null;column:secret_text" json:"secret_text"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"-"`
	Embedding  datatypes.JSON `gorm:"column:embedding" json:"-"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Secret) TableName() string {
	return "secrets"
}

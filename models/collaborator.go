package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collaborator is an external contractor that projects are assigned to.
type Collaborator struct {
	ID        uuid.UUID `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	FirstName string    `json:"first_name" bson:"first_name" gorm:"type:text;not null"`
	LastName  string    `json:"last_name" bson:"last_name" gorm:"type:text;not null"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

// FullName joins first and last name, falling back to "Unknown".
func (c *Collaborator) FullName() string {
	if c == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

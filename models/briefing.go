package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectBriefing is the client's written brief for a project.
type ProjectBriefing struct {
	ID                 uuid.UUID  `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	ProjectID          uuid.UUID  `json:"project_id" bson:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_briefing_project"`
	OverallDescription string     `json:"overall_description" bson:"overall_description" gorm:"type:text"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty" bson:"submitted_at,omitempty" gorm:"type:timestamp"`
}

// BriefingImage is one reference image attached to a briefing. Order may be
// unset on legacy rows.
type BriefingImage struct {
	ID        uuid.UUID `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	ProjectID uuid.UUID `json:"project_id" bson:"project_id" gorm:"type:uuid;not null;index:idx_briefing_image_project"`
	ImageURL  string    `json:"url" bson:"image_url" gorm:"type:text;not null"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
	Order     *int      `json:"order,omitempty" bson:"order,omitempty" gorm:"column:order;type:integer"`
}

// SortKey puts images without an explicit order last.
func (i BriefingImage) SortKey() int {
	if i.Order == nil {
		return int(^uint(0) >> 1)
	}
	return *i.Order
}

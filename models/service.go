package models

import "github.com/google/uuid"

// Service is a catalog entry a custom project can select.
type Service struct {
	ID               uuid.UUID `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	Name             string    `json:"name" bson:"name" gorm:"type:text;not null"`
	Description      string    `json:"description,omitempty" bson:"description,omitempty" gorm:"type:text"`
	Price            float64   `json:"price" bson:"price" gorm:"type:decimal(12,2);not null;default:0"`
	DeliveryTimeline string    `json:"delivery_timeline,omitempty" bson:"delivery_timeline,omitempty" gorm:"type:text"`
}

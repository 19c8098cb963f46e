// internal/domain/models/pin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field limits for pins.
const (
	PinTitleMax       = 100
	PinDescriptionMax = 500
)

// Engagement holds view and click counters for a pin.
type Engagement struct {
	Views      int            `bson:"views" json:"views"`
	Clicks     int            `bson:"clicks" json:"clicks"`
	ByDevice   map[string]int `bson:"by_device" json:"by_device"`     // mobile | tablet | desktop
	ByLocation map[string]int `bson:"by_location" json:"by_location"` // country code or "unknown"
}

// Pin is an image post filed under exactly one board.
//
// Visibility mirrors the privacy of Board so feeds can filter without a join.
type Pin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	ImageURL     string             `bson:"image_url" json:"image_url"`
	Link         string             `bson:"link,omitempty" json:"link,omitempty"`
	Tags         []string           `bson:"tags" json:"tags"`
	Category     string             `bson:"category" json:"category"`
	Owner        primitive.ObjectID `bson:"owner" json:"owner"`
	Board        primitive.ObjectID `bson:"board" json:"board"`
	Visibility   Privacy            `bson:"visibility" json:"visibility"`
	Saves        IDSet              `bson:"saves" json:"saves"`
	SaveCount    int                `bson:"save_count" json:"save_count"`
	CommentCount int                `bson:"comment_count" json:"comment_count"`
	Engagement   Engagement         `bson:"engagement" json:"engagement"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PinView is a pin with its owner and board references populated.
type PinView struct {
	Pin `bson:",inline"`

	OwnerInfo *UserSummary  `bson:"owner_info,omitempty" json:"owner_info,omitempty"`
	BoardInfo *BoardSummary `bson:"board_info,omitempty" json:"board_info,omitempty"`
}

// BoardSummary is the populated form of a board reference.
type BoardSummary struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Privacy Privacy            `bson:"privacy" json:"privacy"`
}

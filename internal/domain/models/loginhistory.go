// internal/domain/models/loginhistory.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginRecord captures a single successful login event.
// (user_id, created_at) is indexed for the per-user history.
type LoginRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	IP        string             `bson:"ip" json:"ip"`
	Device    string             `bson:"device" json:"device"`
	Location  string             `bson:"location" json:"location"`
	UserAgent string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
}

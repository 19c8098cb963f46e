// internal/domain/models/comment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentTextMax is the maximum comment length in characters.
const CommentTextMax = 500

// Comment is a standalone comment on a pin.
// It may be deleted by its author or by the pin's owner.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Pin       primitive.ObjectID `bson:"pin" json:"pin"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	AuthorInfo *UserSummary `bson:"author_info,omitempty" json:"author_info,omitempty"`
}

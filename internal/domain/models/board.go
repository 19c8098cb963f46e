// internal/domain/models/board.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Privacy controls who may read a board and the pins filed under it.
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
	// PrivacySecret behaves like private and is also left out of the owner's public profile.
	PrivacySecret  Privacy = "secret"
)

// ParsePrivacy normalizes s. The second return is false for unknown values.
func ParsePrivacy(s string) (Privacy, bool) {
	switch p := Privacy(strings.ToLower(strings.TrimSpace(s))); p {
	case PrivacyPublic, PrivacyPrivate, PrivacySecret:
		return p, true
	}
	return "", false
}

// PrivacyFromLegacy maps the older boolean flag onto the enum.
func PrivacyFromLegacy(isPrivate bool) Privacy {
	if isPrivate {
		return PrivacyPrivate
	}
	return PrivacyPublic
}

// IsPublic reports whether anyone may read content with this privacy.
func (p Privacy) IsPublic() bool { return p == "" || p == PrivacyPublic }

// Board is a named collection of pins owned by one user.
//
// A pin appears in exactly one board's Pins at a time.
type Board struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Privacy       Privacy            `bson:"privacy" json:"privacy"`
	Owner         primitive.ObjectID `bson:"owner" json:"owner"`
	Pins          IDSet              `bson:"pins" json:"pins"`
	Collaborators IDSet              `bson:"collaborators" json:"collaborators"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsCollaborator reports whether uid is listed as a collaborator.
func (b Board) IsCollaborator(uid primitive.ObjectID) bool {
	return b.Collaborators.Contains(uid)
}

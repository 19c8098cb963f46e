// internal/domain/models/user.go
package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Segment buckets users by activity score.
type Segment string

const (
	SegmentCasual     Segment = "casual"
	SegmentPower      Segment = "power"
	SegmentCreator    Segment = "creator"
	SegmentInfluencer Segment = "influencer"
)

// Profile holds the user-editable public profile fields.
type Profile struct {
	Bio       string `bson:"bio" json:"bio"`
	AvatarURL string `bson:"avatar_url" json:"avatar_url"`
	Location  string `bson:"location" json:"location"`
	Website   string `bson:"website" json:"website"`
}

// Counters tracks lifetime engagement used to derive the activity score.
type Counters struct {
	LoginCount    int `bson:"login_count" json:"login_count"`
	TotalPins     int `bson:"total_pins" json:"total_pins"`
	TotalComments int `bson:"total_comments" json:"total_comments"`
	TotalBoards   int `bson:"total_boards" json:"total_boards"`
}

// User is an account that owns boards and pins and participates in the follow graph.
//
// Followers and Following never contain the user's own ID.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"` // folded, used for unique index
	Email        string             `bson:"email" json:"email"`   // lowercased
	PasswordHash string             `bson:"password_hash" json:"-"`

	Profile   Profile `bson:"profile" json:"profile"`
	Followers IDSet   `bson:"followers" json:"followers"`
	Following IDSet   `bson:"following" json:"following"`

	Counters      Counters   `bson:"counters" json:"counters"`
	ActivityScore float64    `bson:"activity_score" json:"activity_score"`
	Segment       Segment    `bson:"segment" json:"segment"`
	LastLoginAt   *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`

	Settings *SettingsPatch `bson:"settings,omitempty" json:"-"` // overrides of DefaultSettings

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ActivityScore computes the weighted score for the given counters and follower count,
// rounded to two decimals.
func ActivityScore(c Counters, followers int) float64 {
	score := float64(c.TotalPins)*0.3 +
		float64(c.TotalComments)*0.2 +
		float64(c.TotalBoards)*0.2 +
		float64(followers)*0.3
	return math.Round(score*100) / 100
}

// SegmentFor maps a score to its segment.
func SegmentFor(score float64) Segment {
	switch {
	case score > 80:
		return SegmentInfluencer
	case score > 50:
		return SegmentCreator
	case score > 20:
		return SegmentPower
	default:
		return SegmentCasual
	}
}

// RecomputeActivity refreshes ActivityScore and Segment from the current counters.
func (u *User) RecomputeActivity() {
	u.ActivityScore = ActivityScore(u.Counters, u.Followers.Len())
	u.Segment = SegmentFor(u.ActivityScore)
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Username  string             `bson:"username" json:"username"`
	AvatarURL string             `bson:"avatar_url" json:"avatar_url"`
}

// Summary returns the populated reference form of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.Profile.AvatarURL}
}

// EffectiveSettings returns DefaultSettings with u's overrides applied.
func (u User) EffectiveSettings() Settings {
	return Merge(DefaultSettings(), u.Settings)
}

// SelfView is the caller's own account as returned by /auth/me and /profile:
// the full user plus effective settings.
type SelfView struct {
	User
	Settings Settings `json:"settings"`
}

// Self builds the SelfView for u.
func (u User) Self() SelfView {
	return SelfView{User: u, Settings: u.EffectiveSettings()}
}

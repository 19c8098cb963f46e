// internal/app/policy/boardpolicy/boardpolicy.go
package boardpolicy

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNoAccess = apperr.AccessDenied("You do not have access to this board.")
	ErrNotOwner = apperr.AccessDenied("Only the board owner can do that.")
	ErrNoPinAdd = apperr.AccessDenied("Only the board owner or a collaborator can add pins.")
)

// CanView reports whether the request user may read b:
// - anyone can read public boards
// - private and secret boards are limited to the owner and collaborators
func CanView(r *http.Request, b *models.Board) bool {
	if b.Privacy.IsPublic() {
		return true
	}
	uid := authz.UserID(r)
	if uid.IsZero() {
		return false
	}
	return b.Owner == uid || b.Collaborators.Contains(uid)
}

// CanEdit reports whether the request user owns b.
func CanEdit(r *http.Request, b *models.Board) bool {
	return authz.IsSelf(r, b.Owner)
}

// CanAddPin reports whether the request user may file pins under b.
func CanAddPin(r *http.Request, b *models.Board) bool {
	uid := authz.UserID(r)
	if uid.IsZero() {
		return false
	}
	return b.Owner == uid || b.Collaborators.Contains(uid)
}

// View returns ErrNoAccess when CanView is false.
func View(r *http.Request, b *models.Board) error {
	if !CanView(r, b) {
		return ErrNoAccess
	}
	return nil
}

// Edit returns ErrNotOwner when CanEdit is false.
func Edit(r *http.Request, b *models.Board) error {
	if !CanEdit(r, b) {
		return ErrNotOwner
	}
	return nil
}

// AddPin returns ErrNoPinAdd when CanAddPin is false.
func AddPin(r *http.Request, b *models.Board) error {
	if !CanAddPin(r, b) {
		return ErrNoPinAdd
	}
	return nil
}

// CanViewPin reports whether the request user may read p. Public pins and
// the pin owner's own pins need no lookup; otherwise the caller must own
// or collaborate on the pin's board. Returns an error only when the
// database check fails.
func CanViewPin(ctx context.Context, db *mongo.Database, r *http.Request, p *models.Pin) (bool, error) {
	if p.Visibility.IsPublic() {
		return true, nil
	}
	uid := authz.UserID(r)
	if uid.IsZero() {
		return false, nil
	}
	if p.Owner == uid {
		return true, nil
	}
	return IsMember(ctx, db, p.Board, uid)
}

// IsMember reports whether uid owns boardID or is listed as a collaborator.
func IsMember(ctx context.Context, db *mongo.Database, boardID, uid primitive.ObjectID) (bool, error) {
	err := db.Collection("boards").FindOne(ctx,
		bson.M{"_id": boardID, "$or": bson.A{
			bson.M{"owner": uid},
			bson.M{"collaborators": uid},
		}},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CanDeleteComment: the comment's author or the pin's owner.
func CanDeleteComment(r *http.Request, c *models.Comment, p *models.Pin) bool {
	uid := authz.UserID(r)
	if uid.IsZero() {
		return false
	}
	return c.Author == uid || p.Owner == uid
}

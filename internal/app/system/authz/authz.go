// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the username, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false, so ok=true always means a usable ObjectID.
func UserCtx(r *http.Request) (username string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed ID in a signed token; fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Username, userID, true
}

// UserID returns the caller's ObjectID, or NilObjectID when anonymous.
func UserID(r *http.Request) primitive.ObjectID {
	_, id, _ := UserCtx(r)
	return id
}

// IsSelf reports whether the signed-in caller is id.
func IsSelf(r *http.Request, id primitive.ObjectID) bool {
	_, uid, ok := UserCtx(r)
	return ok && uid == id
}

package boardpolicy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/dalemusser/pinhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func as(id primitive.ObjectID) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	if id.IsZero() {
		return r
	}
	return auth.WithTestUser(r, &auth.SessionUser{ID: id.Hex(), Username: "u"})
}

func TestBoardRules(t *testing.T) {
	owner := primitive.NewObjectID()
	collab := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	board := func(p models.Privacy) *models.Board {
		return &models.Board{ID: primitive.NewObjectID(), Owner: owner, Privacy: p, Collaborators: models.NewIDSet(collab)}
	}

	tests := []struct {
		name               string
		privacy            models.Privacy
		caller             primitive.ObjectID
		view, edit, addPin bool
	}{
		{"public anonymous", models.PrivacyPublic, primitive.NilObjectID, true, false, false},
		{"public stranger", models.PrivacyPublic, stranger, true, false, false},
		{"private anonymous", models.PrivacyPrivate, primitive.NilObjectID, false, false, false},
		{"private stranger", models.PrivacyPrivate, stranger, false, false, false},
		{"private owner", models.PrivacyPrivate, owner, true, true, true},
		{"private collaborator", models.PrivacyPrivate, collab, true, false, true},
		{"secret collaborator", models.PrivacySecret, collab, true, false, true},
		{"secret stranger", models.PrivacySecret, stranger, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board(tt.privacy)
			r := as(tt.caller)
			if got := boardpolicy.CanView(r, b); got != tt.view {
				t.Errorf("CanView = %v, want %v", got, tt.view)
			}
			if got := boardpolicy.CanEdit(r, b); got != tt.edit {
				t.Errorf("CanEdit = %v, want %v", got, tt.edit)
			}
			if got := boardpolicy.CanAddPin(r, b); got != tt.addPin {
				t.Errorf("CanAddPin = %v, want %v", got, tt.addPin)
			}
			if (boardpolicy.View(r, b) == nil) != tt.view {
				t.Error("View disagrees with CanView")
			}
		})
	}
}

func TestCanDeleteComment(t *testing.T) {
	author := primitive.NewObjectID()
	pinOwner := primitive.NewObjectID()
	c := &models.Comment{Author: author}
	p := &models.Pin{Owner: pinOwner}

	if !boardpolicy.CanDeleteComment(as(author), c, p) {
		t.Error("author should be able to delete")
	}
	if !boardpolicy.CanDeleteComment(as(pinOwner), c, p) {
		t.Error("pin owner should be able to delete")
	}
	if boardpolicy.CanDeleteComment(as(primitive.NewObjectID()), c, p) {
		t.Error("stranger must not delete")
	}
	if boardpolicy.CanDeleteComment(as(primitive.NilObjectID), c, p) {
		t.Error("anonymous must not delete")
	}
}

func TestCanViewPin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	collab := fx.CreateUser(ctx, "collab")
	stranger := fx.CreateUser(ctx, "stranger")

	b := fx.CreateBoard(ctx, owner.ID, "Private", models.PrivacyPrivate)
	fx.AddCollaborator(ctx, b.ID, collab.ID)
	ownPin := fx.CreatePin(ctx, owner.ID, b, "hidden")
	collabPin := fx.CreatePin(ctx, collab.ID, b, "filed by collaborator")

	for _, tc := range []struct {
		name string
		pin  models.Pin
		who  primitive.ObjectID
		want bool
	}{
		{"owner on own pin", ownPin, owner.ID, true},
		{"collaborator on owner pin", ownPin, collab.ID, true},
		{"stranger", ownPin, stranger.ID, false},
		{"anonymous", ownPin, primitive.NilObjectID, false},
		{"board owner on collaborator pin", collabPin, owner.ID, true},
		{"collaborator on own pin", collabPin, collab.ID, true},
		{"stranger on collaborator pin", collabPin, stranger.ID, false},
	} {
		got, err := boardpolicy.CanViewPin(ctx, db, as(tc.who), &tc.pin)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("%s: CanViewPin = %v, want %v", tc.name, got, tc.want)
		}
	}

	open := fx.CreateBoard(ctx, owner.ID, "Open", models.PrivacyPublic)
	pub := fx.CreatePin(ctx, owner.ID, open, "visible")
	if ok, _ := boardpolicy.CanViewPin(ctx, db, as(primitive.NilObjectID), &pub); !ok {
		t.Error("public pin should be visible to anyone")
	}
}

func TestCanView_EmptyPrivacyIsPublic(t *testing.T) {
	b := &models.Board{Owner: primitive.NewObjectID()}
	if !boardpolicy.CanView(as(primitive.NilObjectID), b) {
		t.Error("board without a privacy value should read as public")
	}
	p := &models.Pin{Owner: primitive.NewObjectID()}
	ok, err := boardpolicy.CanViewPin(context.Background(), nil, as(primitive.NilObjectID), p)
	if err != nil || !ok {
		t.Errorf("pin without a visibility value: ok=%v err=%v", ok, err)
	}
}

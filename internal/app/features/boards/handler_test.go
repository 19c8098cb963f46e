package boards_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dalemusser/pinhub/internal/app/features/boards"
	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/dalemusser/pinhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*boards.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return boards.NewHandler(db, uierrors.NewErrorLogger(logger), logger), db
}

func as(r *http.Request, u models.User) *http.Request {
	return testutil.WithUser(r, testutil.AsTestUser(u))
}

func withID(r *http.Request, id primitive.ObjectID) *http.Request {
	return testutil.WithChiURLParam(r, "id", id.Hex())
}

func loadBoard(t *testing.T, db *mongo.Database, id primitive.ObjectID) *models.Board {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var b models.Board
	if err := db.Collection("boards").FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		t.Fatal(err)
	}
	return &b
}

func loadPin(t *testing.T, db *mongo.Database, id primitive.ObjectID) *models.Pin {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var p models.Pin
	if err := db.Collection("pins").FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		t.Fatal(err)
	}
	return &p
}

func loadUser(t *testing.T, db *mongo.Database, id primitive.ObjectID) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var u models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreate(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")

	tests := []struct {
		name    string
		body    map[string]any
		status  int
		privacy models.Privacy
	}{
		{"default public", map[string]any{"name": "Food"}, http.StatusCreated, models.PrivacyPublic},
		{"explicit secret", map[string]any{"name": "Gifts", "privacy": "secret"}, http.StatusCreated, models.PrivacySecret},
		{"legacy flag", map[string]any{"name": "Diary", "is_private": true}, http.StatusCreated, models.PrivacyPrivate},
		{"privacy wins over flag", map[string]any{"name": "Trips", "privacy": "public", "is_private": true}, http.StatusCreated, models.PrivacyPublic},
		{"missing name", map[string]any{"description": "x"}, http.StatusBadRequest, ""},
		{"markup only name", map[string]any{"name": "<b></b>"}, http.StatusBadRequest, ""},
		{"unknown privacy", map[string]any{"name": "X", "privacy": "hidden"}, http.StatusBadRequest, ""},
	}

	created := 0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/boards", tt.body), alice))
			rec.AssertStatus(t, tt.status)
			if tt.status != http.StatusCreated {
				if rec.ErrorCode() != "validation_error" {
					t.Errorf("code = %q", rec.ErrorCode())
				}
				return
			}
			created++
			var b models.Board
			rec.DecodeJSON(t, &b)
			if b.Privacy != tt.privacy {
				t.Errorf("privacy = %q, want %q", b.Privacy, tt.privacy)
			}
			if b.Owner != alice.ID {
				t.Errorf("owner = %s", b.Owner.Hex())
			}
		})
	}

	if got := loadUser(t, db, alice.ID).Counters.TotalBoards; got != created {
		t.Errorf("total_boards = %d, want %d", got, created)
	}
}

func TestServeBoard_Privacy(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	collab := fx.CreateUser(ctx, "collab")
	stranger := fx.CreateUser(ctx, "stranger")
	private := fx.CreateBoard(ctx, owner.ID, "Private", models.PrivacyPrivate)
	public := fx.CreateBoard(ctx, owner.ID, "Public", models.PrivacyPublic)
	fx.AddCollaborator(ctx, private.ID, collab.ID)

	tests := []struct {
		name   string
		board  models.Board
		user   *models.User
		status int
	}{
		{"stranger on private", private, &stranger, http.StatusForbidden},
		{"anonymous on private", private, nil, http.StatusForbidden},
		{"owner on private", private, &owner, http.StatusOK},
		{"collaborator on private", private, &collab, http.StatusOK},
		{"anonymous on public", public, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withID(testutil.NewRequest("GET", "/api/boards/"+tt.board.ID.Hex()), tt.board.ID)
			if tt.user != nil {
				req = as(req, *tt.user)
			}
			rec := testutil.NewRecorder()
			h.ServeBoard(rec, req)
			rec.AssertStatus(t, tt.status)
		})
	}

	rec := testutil.NewRecorder()
	h.ServeBoard(rec, testutil.WithChiURLParam(testutil.NewRequest("GET", "/api/boards/nope"), "id", "nope"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServeBoard(rec, withID(testutil.NewRequest("GET", "/api/boards/x"), primitive.NewObjectID()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList_OwnedAndCollaborating(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	fx.CreateBoard(ctx, alice.ID, "Mine", models.PrivacySecret)
	shared := fx.CreateBoard(ctx, bob.ID, "Shared", models.PrivacyPrivate)
	fx.CreateBoard(ctx, bob.ID, "Not mine", models.PrivacyPublic)
	fx.AddCollaborator(ctx, shared.ID, alice.ID)

	rec := testutil.NewRecorder()
	h.ServeList(rec, as(testutil.NewRequest("GET", "/api/boards"), alice))
	rec.AssertStatus(t, http.StatusOK)

	var page struct {
		Items []models.Board `json:"items"`
		Total int64          `json:"total"`
	}
	rec.DecodeJSON(t, &page)
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("got %d boards, want 2", page.Total)
	}
	rec.AssertNotContains(t, "Not mine")
}

func TestUpdate_PrivacySyncsPins(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	collab := fx.CreateUser(ctx, "collab")
	b := fx.CreateBoard(ctx, alice.ID, "Food", models.PrivacyPublic)
	fx.AddCollaborator(ctx, b.ID, collab.ID)
	p := fx.CreatePin(ctx, alice.ID, b, "Soup")

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, withID(as(testutil.NewJSONRequest("PUT", "/", map[string]any{"privacy": "private"}), collab), b.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, withID(as(testutil.NewJSONRequest("PUT", "/", map[string]any{
		"description": "Things to cook",
		"privacy":     "private",
	}), alice), b.ID))
	rec.AssertStatus(t, http.StatusOK)

	got := loadBoard(t, db, b.ID)
	if got.Name != "Food" || got.Description != "Things to cook" || got.Privacy != models.PrivacyPrivate {
		t.Errorf("board after update: %+v", got)
	}
	if vis := loadPin(t, db, p.ID).Visibility; vis != models.PrivacyPrivate {
		t.Errorf("pin visibility = %q, want private", vis)
	}

	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, withID(as(testutil.NewJSONRequest("PUT", "/", map[string]any{"is_private": false}), alice), b.ID))
	rec.AssertStatus(t, http.StatusOK)
	if vis := loadPin(t, db, p.ID).Visibility; vis != models.PrivacyPublic {
		t.Errorf("pin visibility = %q, want public", vis)
	}
}

func TestDelete_Cascade(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")

	// create through the handler so counters start from real values
	rec := testutil.NewRecorder()
	h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/boards", map[string]any{"name": "Food"}), alice))
	rec.AssertStatus(t, http.StatusCreated)
	var b models.Board
	rec.DecodeJSON(t, &b)

	p1 := fx.CreatePin(ctx, alice.ID, b, "Soup")
	p2 := fx.CreatePin(ctx, alice.ID, b, "Bread")
	fx.CreateComment(ctx, bob.ID, p1.ID, "yum")

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, withID(as(testutil.NewRequest("DELETE", "/"), bob), b.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, withID(as(testutil.NewRequest("DELETE", "/"), alice), b.ID))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		DeletedPins int64 `json:"deleted_pins"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.DeletedPins != 2 {
		t.Errorf("deleted_pins = %d, want 2", resp.DeletedPins)
	}

	if loadBoard(t, db, b.ID) != nil {
		t.Error("board should be gone")
	}
	if loadPin(t, db, p1.ID) != nil || loadPin(t, db, p2.ID) != nil {
		t.Error("pins should be gone")
	}
	if n, _ := db.Collection("comments").CountDocuments(ctx, bson.M{"pin": p1.ID}); n != 0 {
		t.Errorf("comments left = %d", n)
	}
	if got := loadUser(t, db, alice.ID).Counters.TotalBoards; got != 0 {
		t.Errorf("total_boards = %d, want 0", got)
	}
}

func TestServePins(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	b := fx.CreateBoard(ctx, alice.ID, "Secret stuff", models.PrivacySecret)
	fx.CreatePin(ctx, alice.ID, b, "Hidden soup")

	rec := testutil.NewRecorder()
	h.ServePins(rec, withID(as(testutil.NewRequest("GET", "/"), bob), b.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.ServePins(rec, withID(as(testutil.NewRequest("GET", "/"), alice), b.ID))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Hidden soup")
}

func TestAddPin_Move(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	from := fx.CreateBoard(ctx, alice.ID, "From", models.PrivacyPublic)
	to := fx.CreateBoard(ctx, bob.ID, "To", models.PrivacyPrivate)
	p := fx.CreatePin(ctx, alice.ID, from, "Soup")

	body := map[string]any{"pin": p.ID.Hex()}

	rec := testutil.NewRecorder()
	h.HandleAddPin(rec, withID(as(testutil.NewJSONRequest("POST", "/", body), alice), to.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	fx.AddCollaborator(ctx, to.ID, alice.ID)

	rec = testutil.NewRecorder()
	h.HandleAddPin(rec, withID(as(testutil.NewJSONRequest("POST", "/", body), bob), to.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleAddPin(rec, withID(as(testutil.NewJSONRequest("POST", "/", body), alice), to.ID))
	rec.AssertStatus(t, http.StatusOK)

	moved := loadPin(t, db, p.ID)
	if moved.Board != to.ID || moved.Visibility != models.PrivacyPrivate {
		t.Errorf("pin after move: board=%s vis=%s", moved.Board.Hex(), moved.Visibility)
	}
	if loadBoard(t, db, from.ID).Pins.Contains(p.ID) {
		t.Error("source board still lists the pin")
	}
	if !loadBoard(t, db, to.ID).Pins.Contains(p.ID) {
		t.Error("target board should list the pin")
	}

	rec = testutil.NewRecorder()
	h.HandleAddPin(rec, withID(as(testutil.NewJSONRequest("POST", "/", body), alice), to.ID))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "already on this board")

	rec = testutil.NewRecorder()
	h.HandleAddPin(rec, withID(as(testutil.NewJSONRequest("POST", "/", map[string]any{"pin": "bad"}), alice), to.ID))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestRemovePin_Rejected(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewRequest("DELETE", "/")
	req = testutil.WithChiURLParam(req, "id", primitive.NewObjectID().Hex())
	req = testutil.WithChiURLParam(req, "pinID", primitive.NewObjectID().Hex())

	rec := testutil.NewRecorder()
	h.HandleRemovePin(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Move it to another board")
}

func TestCollaborators(t *testing.T) {
	h, db := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	b := fx.CreateBoard(ctx, alice.ID, "Food", models.PrivacyPrivate)

	add := func(user models.User, username string) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.HandleAddCollaborator(rec, withID(as(testutil.NewJSONRequest("POST", "/", map[string]any{"username": username}), user), b.ID))
		return rec
	}

	rec := add(alice, "BOB")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"username":"bob"`)
	if !loadBoard(t, db, b.ID).Collaborators.Contains(bob.ID) {
		t.Fatal("bob should be a collaborator")
	}

	if rec := add(alice, "bob"); rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: status %d", rec.Code)
	}
	if rec := add(alice, "alice"); rec.Code != http.StatusBadRequest {
		t.Errorf("owner add: status %d", rec.Code)
	}
	if rec := add(alice, "nobody"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: status %d", rec.Code)
	}
	if rec := add(bob, "alice"); rec.Code != http.StatusForbidden {
		t.Errorf("collaborator adding: status %d", rec.Code)
	}

	remove := func(user models.User) *testutil.ResponseRecorder {
		req := withID(as(testutil.NewRequest("DELETE", "/"), user), b.ID)
		req = testutil.WithChiURLParam(req, "userID", bob.ID.Hex())
		rec := testutil.NewRecorder()
		h.HandleRemoveCollaborator(rec, req)
		return rec
	}

	remove(bob).AssertStatus(t, http.StatusForbidden)
	remove(alice).AssertStatus(t, http.StatusOK)
	remove(alice).AssertStatus(t, http.StatusOK)
	if loadBoard(t, db, b.ID).Collaborators.Contains(bob.ID) {
		t.Error("bob should no longer be a collaborator")
	}
}

package pins_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/pinhub/internal/app/features/errors"
	"github.com/dalemusser/pinhub/internal/app/features/pins"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/dalemusser/pinhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func newTestHandler(t *testing.T) (*pins.Handler, *mongo.Database, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	dir := t.TempDir()
	disk, err := uploads.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	return pins.NewHandler(db, uploads.New(disk, 0), nil, uierrors.NewErrorLogger(logger), logger), db, dir
}

func as(r *http.Request, u models.User) *http.Request {
	return testutil.WithUser(r, testutil.AsTestUser(u))
}

func withID(r *http.Request, id primitive.ObjectID) *http.Request {
	return testutil.WithChiURLParam(r, "id", id.Hex())
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

type pinBody struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	ImageURL   string   `json:"image_url"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
	OwnerInfo  *struct {
		Username string `json:"username"`
	} `json:"owner_info"`
	BoardInfo *struct {
		Name string `json:"name"`
	} `json:"board_info"`
}

func TestCreate_JSON(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	board := fx.CreateBoard(ctx, alice.ID, "Hidden", models.PrivacyPrivate)

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/pins", map[string]any{
		"title":     "  <b>Sunset</b> ",
		"image_url": "https://img.example.com/s.jpg",
		"tags":      []string{"#Beach", "beach", " sky "},
		"board":     board.ID.Hex(),
		"owner":     primitive.NewObjectID().Hex(), // server-set, ignored
	}), alice))
	rec.AssertStatus(t, http.StatusCreated)

	var body pinBody
	rec.DecodeJSON(t, &body)
	if body.Title != "Sunset" {
		t.Errorf("title = %q, markup should be stripped", body.Title)
	}
	if strings.Join(body.Tags, ",") != "beach,sky" {
		t.Errorf("tags = %v", body.Tags)
	}
	if body.Visibility != string(models.PrivacyPrivate) {
		t.Errorf("visibility = %q, want board privacy", body.Visibility)
	}
	if body.OwnerInfo == nil || body.OwnerInfo.Username != "alice" || body.BoardInfo == nil || body.BoardInfo.Name != "Hidden" {
		t.Errorf("references not populated: %+v", body)
	}

	pinID, _ := primitive.ObjectIDFromHex(body.ID)
	p := loadPin(t, db, pinID)
	if p == nil || p.Owner != alice.ID {
		t.Fatalf("stored pin: %+v", p)
	}

	var b models.Board
	_ = db.Collection("boards").FindOne(ctx, bson.M{"_id": board.ID}).Decode(&b)
	if !b.Pins.Contains(pinID) {
		t.Error("board pin list should contain the new pin")
	}
	if got := loadUser(t, db, alice.ID).Counters.TotalPins; got != 1 {
		t.Errorf("total_pins = %d, want 1", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	board := fx.CreateBoard(ctx, alice.ID, "B", models.PrivacyPublic)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing title", map[string]any{"image_url": "/uploads/a.png", "board": board.ID.Hex()}, "title"},
		{"title too long", map[string]any{"title": strings.Repeat("x", 101), "image_url": "/uploads/a.png", "board": board.ID.Hex()}, "title"},
		{"no image", map[string]any{"title": "t", "board": board.ID.Hex()}, "image_url"},
		{"bad image", map[string]any{"title": "t", "image_url": "javascript:alert(1)", "board": board.ID.Hex()}, "image_url"},
		{"bad link", map[string]any{"title": "t", "image_url": "/uploads/a.png", "link": "ftp://x", "board": board.ID.Hex()}, "link"},
		{"missing board", map[string]any{"title": "t", "image_url": "/uploads/a.png"}, "board"},
		{"bad board id", map[string]any{"title": "t", "image_url": "/uploads/a.png", "board": "nope"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/pins", tt.body), alice))
			rec.AssertStatus(t, http.StatusBadRequest)
			if tt.field != "" {
				rec.AssertContains(t, `"`+tt.field+`"`)
			}
		})
	}

	n, _ := db.Collection("pins").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("no pin should be created, got %d", n)
	}
}

func TestCreate_BoardAccess(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	collab := fx.CreateUser(ctx, "collab")
	stranger := fx.CreateUser(ctx, "stranger")
	board := fx.CreateBoard(ctx, owner.ID, "Shared", models.PrivacyPublic)
	fx.AddCollaborator(ctx, board.ID, collab.ID)

	body := map[string]any{"title": "t", "image_url": "/uploads/a.png", "board": board.ID.Hex()}

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/pins", body), stranger))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/pins", body), collab))
	rec.AssertStatus(t, http.StatusCreated)

	body["board"] = primitive.NewObjectID().Hex()
	rec = testutil.NewRecorder()
	h.HandleCreate(rec, as(testutil.NewJSONRequest("POST", "/api/pins", body), owner))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestCreate_MultipartUpload(t *testing.T) {
	h, db, dir := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	board := fx.CreateBoard(ctx, alice.ID, "B", models.PrivacyPublic)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Cat")
	_ = mw.WriteField("tags", "cats,pets")
	_ = mw.WriteField("board", board.ID.Hex())
	fw, _ := mw.CreateFormFile("image", "cat.png")
	_, _ = fw.Write(pngBytes)
	_ = mw.Close()

	req := as(httptest.NewRequest("POST", "/api/pins", &buf), alice)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var body pinBody
	rec.DecodeJSON(t, &body)
	if !strings.HasPrefix(body.ImageURL, "/uploads/pins/") || !strings.HasSuffix(body.ImageURL, "-cat.png") {
		t.Fatalf("image_url = %q", body.ImageURL)
	}
	if strings.Join(body.Tags, ",") != "cats,pets" {
		t.Errorf("tags = %v", body.Tags)
	}
	stored := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(body.ImageURL, "/uploads/")))
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}
}

func TestServePin_PrivacyAndViews(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	collab := fx.CreateUser(ctx, "collab")
	stranger := fx.CreateUser(ctx, "stranger")
	board := fx.CreateBoard(ctx, owner.ID, "Private", models.PrivacyPrivate)
	fx.AddCollaborator(ctx, board.ID, collab.ID)
	pin := fx.CreatePin(ctx, owner.ID, board, "secret sauce")

	rec := testutil.NewRecorder()
	h.ServePin(rec, withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.ServePin(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID), stranger))
	rec.AssertStatus(t, http.StatusForbidden)

	req := as(withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID), collab)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148")
	req.Header.Set("CF-IPCountry", "de")
	rec = testutil.NewRecorder()
	h.ServePin(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServePin(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	got := loadPin(t, db, pin.ID)
	if got.Engagement.Views != 2 {
		t.Errorf("views = %d, want 2 (denied reads do not count)", got.Engagement.Views)
	}
	if got.Engagement.ByDevice["mobile"] != 1 || got.Engagement.ByDevice["desktop"] != 1 {
		t.Errorf("by_device = %v", got.Engagement.ByDevice)
	}
	if got.Engagement.ByLocation["DE"] != 1 || got.Engagement.ByLocation["unknown"] != 1 {
		t.Errorf("by_location = %v", got.Engagement.ByLocation)
	}

	rec = testutil.NewRecorder()
	h.ServePin(rec, withID(testutil.NewRequest("GET", "/api/pins/x"), primitive.NewObjectID()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServePin_BoardOwnerSeesCollaboratorPins(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	collab := fx.CreateUser(ctx, "collab")
	stranger := fx.CreateUser(ctx, "stranger")
	board := fx.CreateBoard(ctx, owner.ID, "Shared", models.PrivacyPrivate)
	fx.AddCollaborator(ctx, board.ID, collab.ID)
	pin := fx.CreatePin(ctx, collab.ID, board, "from a collaborator")

	rec := testutil.NewRecorder()
	h.ServePin(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServeComments(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x/comments"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleSave(rec, as(withID(testutil.NewRequest("POST", "/api/pins/x/save"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServePin(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x"), pin.ID), stranger))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestUpdate_PartialAndOwnerOnly(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	other := fx.CreateUser(ctx, "other")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "Before")

	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, as(withID(testutil.NewJSONRequest("PUT", "/api/pins/x", map[string]any{"title": "Hijack"}), pin.ID), other))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, as(withID(testutil.NewJSONRequest("PUT", "/api/pins/x", map[string]any{
		"description": "now with words",
		"tags":        []string{"New"},
	}), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	got := loadPin(t, db, pin.ID)
	if got.Title != "Before" {
		t.Errorf("title changed to %q; omitted fields must be kept", got.Title)
	}
	if got.Description != "now with words" || len(got.Tags) != 1 || got.Tags[0] != "new" {
		t.Errorf("update not applied: %+v", got)
	}

	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, as(withID(testutil.NewJSONRequest("PUT", "/api/pins/x", map[string]any{"title": "  "}), pin.ID), owner))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestDelete_CascadesCommentsAndBoardList(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	commenter := fx.CreateUser(ctx, "commenter")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "doomed")
	keep := fx.CreatePin(ctx, owner.ID, board, "kept")
	fx.CreateComment(ctx, commenter.ID, pin.ID, "nice")
	fx.CreateComment(ctx, commenter.ID, keep.ID, "also nice")
	_, _ = db.Collection("users").UpdateByID(ctx, owner.ID, bson.M{"$set": bson.M{"counters.total_pins": 2}})
	_, _ = db.Collection("users").UpdateByID(ctx, commenter.ID, bson.M{"$set": bson.M{"counters.total_comments": 2}})

	rec := testutil.NewRecorder()
	h.HandleDelete(rec, as(withID(testutil.NewRequest("DELETE", "/api/pins/x"), pin.ID), commenter))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleDelete(rec, as(withID(testutil.NewRequest("DELETE", "/api/pins/x"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)

	if loadPin(t, db, pin.ID) != nil {
		t.Error("pin should be deleted")
	}
	if loadPin(t, db, keep.ID) == nil {
		t.Error("other pin should survive")
	}
	var b models.Board
	_ = db.Collection("boards").FindOne(ctx, bson.M{"_id": board.ID}).Decode(&b)
	if b.Pins.Contains(pin.ID) || !b.Pins.Contains(keep.ID) {
		t.Errorf("board pins = %v", b.Pins.Slice())
	}
	if n, _ := db.Collection("comments").CountDocuments(ctx, bson.M{"pin": pin.ID}); n != 0 {
		t.Errorf("comments on deleted pin: %d", n)
	}
	if n, _ := db.Collection("comments").CountDocuments(ctx, bson.M{}); n != 1 {
		t.Errorf("remaining comments: %d, want 1", n)
	}
	if got := loadUser(t, db, owner.ID).Counters.TotalPins; got != 1 {
		t.Errorf("owner total_pins = %d, want 1", got)
	}
	if got := loadUser(t, db, commenter.ID).Counters.TotalComments; got != 1 {
		t.Errorf("commenter total_comments = %d, want 1", got)
	}
}

func TestSave_ConflictOnRepeat_UnsaveIdempotent(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	fan := fx.CreateUser(ctx, "fan")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "p")

	save := func() *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.HandleSave(rec, as(withID(testutil.NewRequest("POST", "/api/pins/x/save"), pin.ID), fan))
		return rec
	}
	unsave := func() *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.HandleUnsave(rec, as(withID(testutil.NewRequest("DELETE", "/api/pins/x/save"), pin.ID), fan))
		return rec
	}

	save().AssertStatus(t, http.StatusOK)
	again := save()
	again.AssertStatus(t, http.StatusConflict)
	if again.ErrorCode() != "conflict" {
		t.Errorf("code = %q", again.ErrorCode())
	}
	if got := loadPin(t, db, pin.ID); got.Saves.Len() != 1 || got.SaveCount != 1 {
		t.Errorf("saves = %v count = %d", got.Saves.Slice(), got.SaveCount)
	}

	unsave().AssertStatus(t, http.StatusOK)
	rec := unsave()
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"save_count":0`)
	if got := loadPin(t, db, pin.ID); got.Saves.Len() != 0 || got.SaveCount != 0 {
		t.Errorf("after unsave: saves = %v count = %d", got.Saves.Slice(), got.SaveCount)
	}
}

func TestSave_PrivatePinDenied(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	fan := fx.CreateUser(ctx, "fan")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacySecret)
	pin := fx.CreatePin(ctx, owner.ID, board, "p")

	rec := testutil.NewRecorder()
	h.HandleSave(rec, as(withID(testutil.NewRequest("POST", "/api/pins/x/save"), pin.ID), fan))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestComments_CreateListDelete(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	author := fx.CreateUser(ctx, "author")
	stranger := fx.CreateUser(ctx, "stranger")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "p")

	rec := testutil.NewRecorder()
	h.HandleCreateComment(rec, as(withID(testutil.NewJSONRequest("POST", "/api/pins/x/comments", map[string]string{
		"text": "<script>x</script>lovely",
	}), pin.ID), author))
	rec.AssertStatus(t, http.StatusCreated)
	var created struct {
		ID         string `json:"id"`
		Text       string `json:"text"`
		AuthorInfo struct {
			Username string `json:"username"`
		} `json:"author_info"`
	}
	rec.DecodeJSON(t, &created)
	if created.Text != "lovely" || created.AuthorInfo.Username != "author" {
		t.Errorf("created = %+v", created)
	}
	if got := loadPin(t, db, pin.ID).CommentCount; got != 1 {
		t.Errorf("comment_count = %d", got)
	}
	if got := loadUser(t, db, author.ID).Counters.TotalComments; got != 1 {
		t.Errorf("total_comments = %d", got)
	}

	rec = testutil.NewRecorder()
	h.HandleCreateComment(rec, as(withID(testutil.NewJSONRequest("POST", "/api/pins/x/comments", map[string]string{
		"text": strings.Repeat("y", models.CommentTextMax+1),
	}), pin.ID), author))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServeComments(rec, withID(testutil.NewRequest("GET", "/api/pins/x/comments"), pin.ID))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)

	commentID, _ := primitive.ObjectIDFromHex(created.ID)
	del := func(u models.User, pinID primitive.ObjectID) *testutil.ResponseRecorder {
		req := withID(testutil.NewRequest("DELETE", "/api/pins/x/comments/y"), pinID)
		req = testutil.WithChiURLParam(req, "commentID", commentID.Hex())
		rec := testutil.NewRecorder()
		h.HandleDeleteComment(rec, as(req, u))
		return rec
	}

	del(stranger, pin.ID).AssertStatus(t, http.StatusForbidden)
	other := fx.CreatePin(ctx, owner.ID, board, "other")
	del(owner, other.ID).AssertStatus(t, http.StatusNotFound)

	del(owner, pin.ID).AssertStatus(t, http.StatusOK)
	if n, _ := db.Collection("comments").CountDocuments(ctx, bson.M{}); n != 0 {
		t.Errorf("comments left: %d", n)
	}
	if got := loadPin(t, db, pin.ID).CommentCount; got != 0 {
		t.Errorf("comment_count = %d", got)
	}
	if got := loadUser(t, db, author.ID).Counters.TotalComments; got != 0 {
		t.Errorf("author total_comments = %d", got)
	}
}

func TestComments_OwnerCanDisable(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	fan := fx.CreateUser(ctx, "fan")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "p")
	_, _ = db.Collection("users").UpdateByID(ctx, owner.ID, bson.M{"$set": bson.M{"settings.privacy.allow_comments": false}})

	body := map[string]string{"text": "hi"}
	rec := testutil.NewRecorder()
	h.HandleCreateComment(rec, as(withID(testutil.NewJSONRequest("POST", "/api/pins/x/comments", body), pin.ID), fan))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleCreateComment(rec, as(withID(testutil.NewJSONRequest("POST", "/api/pins/x/comments", body), pin.ID), owner))
	rec.AssertStatus(t, http.StatusCreated)
}

func TestClickAndStats(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "owner")
	other := fx.CreateUser(ctx, "other")
	board := fx.CreateBoard(ctx, owner.ID, "B", models.PrivacyPublic)
	pin := fx.CreatePin(ctx, owner.ID, board, "p")

	for i := 0; i < 2; i++ {
		rec := testutil.NewRecorder()
		h.HandleClick(rec, withID(testutil.NewRequest("POST", "/api/pins/x/click"), pin.ID))
		rec.AssertStatus(t, http.StatusOK)
	}

	rec := testutil.NewRecorder()
	h.ServeStats(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x/stats"), pin.ID), other))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.ServeStats(rec, as(withID(testutil.NewRequest("GET", "/api/pins/x/stats"), pin.ID), owner))
	rec.AssertStatus(t, http.StatusOK)
	var stats struct {
		Engagement models.Engagement `json:"engagement"`
	}
	rec.DecodeJSON(t, &stats)
	if stats.Engagement.Clicks != 2 {
		t.Errorf("clicks = %d, want 2", stats.Engagement.Clicks)
	}
}

func TestListAndSearch(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	pub := fx.CreateBoard(ctx, alice.ID, "Pub", models.PrivacyPublic)
	priv := fx.CreateBoard(ctx, alice.ID, "Priv", models.PrivacyPrivate)
	fx.CreatePin(ctx, alice.ID, pub, "Red Barn")
	fx.CreatePin(ctx, alice.ID, priv, "Red Door")
	bobBoard := fx.CreateBoard(ctx, bob.ID, "Bob", models.PrivacyPublic)
	fx.CreatePin(ctx, bob.ID, bobBoard, "Blue Lake")

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/api/pins?user=alice"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)

	rec = testutil.NewRecorder()
	h.ServeList(rec, as(testutil.NewRequest("GET", "/api/pins?user=alice"), alice))
	rec.AssertContains(t, `"total":2`)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/api/pins?user=nobody"))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.ServeSearch(rec, testutil.NewRequest("GET", "/api/pins/search?q=red"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)
	rec.AssertContains(t, "Red Barn")

	rec = testutil.NewRecorder()
	h.ServeSearch(rec, testutil.NewRequest("GET", "/api/pins/search"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/api/pins?board=zzz"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestSaved(t *testing.T) {
	h, db, _ := newTestHandler(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	board := fx.CreateBoard(ctx, bob.ID, "B", models.PrivacyPublic)
	saved := fx.CreatePin(ctx, bob.ID, board, "saved one")
	fx.CreatePin(ctx, bob.ID, board, "not saved")
	fx.SavePin(ctx, saved.ID, alice.ID)

	rec := testutil.NewRecorder()
	h.ServeSaved(rec, as(testutil.NewRequest("GET", "/api/pins/saved"), alice))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)
	rec.AssertContains(t, "saved one")
}

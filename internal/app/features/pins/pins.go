// internal/app/features/pins/pins.go
package pins

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/pinhub/internal/app/policy/boardpolicy"
	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	"github.com/dalemusser/pinhub/internal/app/store/cascade"
	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	"github.com/dalemusser/pinhub/internal/app/store/queries/feedqueries"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/clientinfo"
	"github.com/dalemusser/pinhub/internal/app/system/formutil"
	"github.com/dalemusser/pinhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/search"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/app/system/txn"
	"github.com/dalemusser/pinhub/internal/app/system/uploads"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNoAccess   = apperr.AccessDenied("You do not have access to this pin.")
	ErrNotOwner   = apperr.AccessDenied("Only the pin owner can do that.")
	ErrNoImage    = apperr.ValidationFields("Validation failed.", map[string]string{"image_url": "An image URL or an uploaded image is required."})
	ErrBadLink    = apperr.ValidationFields("Validation failed.", map[string]string{"link": "Link must be a valid http(s) URL."})
	ErrUserFilter = apperr.NotFound("User not found.")
)

type createInput struct {
	Title       string   `json:"title" validate:"required,max=100" label:"Title"`
	Description string   `json:"description" validate:"max=500" label:"Description"`
	ImageURL    string   `json:"image_url" validate:"omitempty,imageref" label:"Image URL"`
	Link        string   `json:"link" validate:"max=2048" label:"Link"`
	Tags        []string `json:"tags" validate:"max=30" label:"Tags"`
	Category    string   `json:"category" validate:"max=50" label:"Category"`
	Board       string   `json:"board" validate:"required" label:"Board"`
}

type updateInput struct {
	Title       *string   `json:"title" validate:"omitnil,min=1,max=100" label:"Title"`
	Description *string   `json:"description" validate:"omitnil,max=500" label:"Description"`
	ImageURL    *string   `json:"image_url" validate:"omitnil,imageref" label:"Image URL"`
	Link        *string   `json:"link" validate:"omitnil,max=2048" label:"Link"`
	Tags        *[]string `json:"tags" validate:"omitnil,max=30" label:"Tags"`
	Category    *string   `json:"category" validate:"omitnil,max=50" label:"Category"`
}

func (in *createInput) clean() {
	in.Title = htmlsanitize.PlainText(in.Title)
	in.Description = htmlsanitize.PlainText(in.Description)
	in.Link = normalize.QueryParam(in.Link)
	in.ImageURL = normalize.QueryParam(in.ImageURL)
	in.Tags = normalize.Tags(htmlsanitize.PlainTexts(in.Tags))
	in.Category = normalize.Category(htmlsanitize.PlainText(in.Category))
}

func (in *updateInput) clean() {
	sanitize := func(p *string) {
		if p != nil {
			*p = htmlsanitize.PlainText(*p)
		}
	}
	sanitize(in.Title)
	sanitize(in.Description)
	if in.Link != nil {
		*in.Link = normalize.QueryParam(*in.Link)
	}
	if in.ImageURL != nil {
		*in.ImageURL = normalize.QueryParam(*in.ImageURL)
	}
	if in.Category != nil {
		*in.Category = normalize.Category(htmlsanitize.PlainText(*in.Category))
	}
	if in.Tags != nil {
		tags := normalize.Tags(htmlsanitize.PlainTexts(*in.Tags))
		in.Tags = &tags
	}
}

// readCreate fills in from a JSON body or a multipart form.
func (h *Handler) readCreate(w http.ResponseWriter, r *http.Request, in *createInput) error {
	if !uploads.IsMultipart(r) {
		return respond.Decode(w, r, in)
	}
	if h.Uploader == nil {
		return apperr.Validation("Image uploads are not enabled.")
	}
	if err := h.Uploader.ParseForm(w, r); err != nil {
		return err
	}
	in.Title = formutil.String(r, "title")
	in.Description = formutil.String(r, "description")
	in.ImageURL = formutil.String(r, "image_url")
	in.Link = formutil.String(r, "link")
	in.Tags = formutil.List(r, "tags")
	in.Category = formutil.String(r, "category")
	in.Board = formutil.String(r, "board")
	return nil
}

func hasImagePart(r *http.Request) bool {
	if r.MultipartForm == nil {
		return false
	}
	return len(r.MultipartForm.File["image"]) > 0
}

// loadViewable fetches the pin and checks the caller may read it.
func (h *Handler) loadViewable(ctx context.Context, r *http.Request, id primitive.ObjectID) (*models.Pin, error) {
	p, err := pinstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := boardpolicy.CanViewPin(ctx, h.DB, r, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAccess
	}
	return p, nil
}

// loadOwned fetches the pin and checks the caller owns it.
func (h *Handler) loadOwned(ctx context.Context, r *http.Request, id primitive.ObjectID) (*models.Pin, error) {
	p, err := pinstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.IsSelf(r, p.Owner) {
		return nil, ErrNotOwner
	}
	return p, nil
}

func (h *Handler) writeList(w http.ResponseWriter, res feedqueries.Result, p paging.Params) {
	respond.OK(w, paging.NewPage(res.Items, res.Total, p))
}

// ServeList handles GET /api/pins with optional q, mode, tag, category,
// board, and user filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sp, err := search.FromRequest(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list pins")
	defer cancel()

	f := feedqueries.Filter{
		Query:      sp.Query,
		TextSearch: sp.Text,
		Category:   normalize.Category(query.Get(r, "category")),
		Viewer:     authz.UserID(r),
	}
	if tags := normalize.Tags([]string{query.Get(r, "tag")}); len(tags) > 0 {
		f.Tag = tags[0]
	}
	if s := query.Get(r, "board"); s != "" {
		if f.Board, err = formutil.ParseID(s, "board"); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
	}
	if s := normalize.QueryParam(query.Get(r, "user")); s != "" {
		if f.Owner, err = h.resolveUser(ctx, s); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
	}

	res, err := feedqueries.List(ctx, h.DB, f, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeList(w, res, pg)
}

// resolveUser accepts a user id or a username.
func (h *Handler) resolveUser(ctx context.Context, s string) (primitive.ObjectID, error) {
	if id, err := primitive.ObjectIDFromHex(s); err == nil {
		return id, nil
	}
	id, err := userstore.New(h.DB).IDByUsername(ctx, s)
	if errors.Is(err, userstore.ErrNotFound) {
		return primitive.NilObjectID, ErrUserFilter
	}
	return id, err
}

// ServeSearch handles GET /api/pins/search?q=...&mode=regex|text.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	sp, err := search.Required(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "search pins")
	defer cancel()

	res, err := feedqueries.Search(ctx, h.DB, sp.Query, sp.Text, authz.UserID(r), pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeList(w, res, pg)
}

// ServeSaved handles GET /api/pins/saved.
func (h *Handler) ServeSaved(w http.ResponseWriter, r *http.Request) {
	pg := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "saved pins")
	defer cancel()

	res, err := feedqueries.Saved(ctx, h.DB, authz.UserID(r), pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeList(w, res, pg)
}

// ServePin handles GET /api/pins/{id} and counts a view.
func (h *Handler) ServePin(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get pin")
	defer cancel()

	if _, err := h.loadViewable(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := pinstore.New(h.DB).RecordView(ctx, id, clientinfo.DeviceType(r.UserAgent()), clientinfo.Location(r)); err != nil {
		h.Log.Warn("record view failed", zap.Error(err), zap.String("pin_id", id.Hex()))
	}

	v, err := feedqueries.Get(ctx, h.DB, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, v)
}

// HandleCreate handles POST /api/pins. The body is JSON with image_url, or
// multipart/form-data with an "image" file part.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid := authz.UserID(r)

	var in createInput
	if err := h.readCreate(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.clean()
	if err := inputval.Validate(in).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Link != "" && !inputval.IsValidHTTPURL(in.Link) {
		h.ErrLog.Write(w, r, ErrBadLink)
		return
	}
	withFile := hasImagePart(r)
	if in.ImageURL == "" && !withFile {
		h.ErrLog.Write(w, r, ErrNoImage)
		return
	}
	boardID, err := formutil.ParseID(in.Board, "board")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create pin")
	defer cancel()

	boards := boardstore.New(h.DB)
	b, err := boards.GetByID(ctx, boardID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := boardpolicy.AddPin(r, b); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	var upload uploads.Result
	if withFile {
		if upload, err = h.Uploader.FromRequest(w, r, "image"); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		in.ImageURL = upload.URL
	}

	var created models.Pin
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		p, err := pinstore.New(h.DB).Create(ctx, models.Pin{
			Title:       in.Title,
			Description: in.Description,
			ImageURL:    in.ImageURL,
			Link:        in.Link,
			Tags:        in.Tags,
			Category:    in.Category,
			Owner:       uid,
			Board:       b.ID,
			Visibility:  b.Privacy,
		})
		if err != nil {
			return err
		}
		if err := boards.AddPin(ctx, b.ID, p.ID); err != nil {
			return err
		}
		if err := userstore.New(h.DB).BumpCounter(ctx, uid, userstore.CounterPins, 1); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		if withFile {
			if derr := h.Uploader.Discard(context.WithoutCancel(ctx), upload); derr != nil {
				h.Log.Warn("discard upload failed", zap.Error(derr), zap.String("path", upload.Path))
			}
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Metrics.PinCreated()
	h.Log.Info("pin created",
		zap.String("pin_id", created.ID.Hex()),
		zap.String("board_id", b.ID.Hex()),
		zap.String("user_id", uid.Hex()))

	v, err := feedqueries.Get(ctx, h.DB, created.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Created(w, v)
}

// HandleUpdate handles PUT /api/pins/{id}. Omitted fields keep their value.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in updateInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.clean()
	if err := inputval.Validate(in).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Link != nil && *in.Link != "" && !inputval.IsValidHTTPURL(*in.Link) {
		h.ErrLog.Write(w, r, ErrBadLink)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update pin")
	defer cancel()

	if _, err := h.loadOwned(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if _, err := pinstore.New(h.DB).Update(ctx, id, pinstore.Update{
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Link:        in.Link,
		Category:    in.Category,
		Tags:        in.Tags,
	}); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	v, err := feedqueries.Get(ctx, h.DB, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, v)
}

// HandleDelete handles DELETE /api/pins/{id}. The pin's comments go with it
// and its board's pin list is updated, in one transaction.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.PathID(r, "id", "pin")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete pin")
	defer cancel()

	p, err := h.loadOwned(ctx, r, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		_, err := cascade.DeletePins(ctx, h.DB, []primitive.ObjectID{p.ID})
		return err
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("pin deleted", zap.String("pin_id", p.ID.Hex()), zap.String("user_id", p.Owner.Hex()))
	respond.Message(w, "Pin deleted.")
}

// internal/app/features/settings/settings.go
package settings

import (
	"net/http"
	"strings"

	settingsstore "github.com/dalemusser/pinhub/internal/app/store/settings"
	"github.com/dalemusser/pinhub/internal/app/system/authz"
	"github.com/dalemusser/pinhub/internal/app/system/inputval"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
	"github.com/dalemusser/pinhub/internal/app/system/timeouts"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.uber.org/zap"
)

// ServeSettings handles GET /api/settings and returns the effective settings.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get settings")
	defer cancel()

	s, err := settingsstore.New(h.DB).Get(ctx, authz.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, s)
}

// HandleUpdate handles PUT /api/settings. The body is a sparse patch:
// groups and fields left out keep their current value.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if err := respond.Decode(w, r, &patch); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	trimPatch(&patch)
	if err := inputval.Validate(patch).Err(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update settings")
	defer cancel()

	uid := authz.UserID(r)
	s, err := settingsstore.New(h.DB).Apply(ctx, uid, &patch)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Debug("settings updated", zap.String("user_id", uid.Hex()))
	respond.OK(w, s)
}

// HandleReset handles POST /api/settings/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "reset settings")
	defer cancel()

	uid := authz.UserID(r)
	s, err := settingsstore.New(h.DB).Reset(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("settings reset", zap.String("user_id", uid.Hex()))
	respond.OK(w, s)
}

// trimPatch lowercases and trims the enum-like string fields so " Dark "
// validates as "dark".
func trimPatch(p *models.SettingsPatch) {
	clean := func(s *string) {
		if s != nil {
			*s = strings.ToLower(strings.TrimSpace(*s))
		}
	}
	if p.Privacy != nil {
		clean(p.Privacy.ProfileVisibility)
	}
	if p.Display != nil {
		clean(p.Display.Theme)
		clean(p.Display.Language)
		clean(p.Display.GridSize)
	}
}

// internal/domain/models/settings.go
package models

// Settings is the effective per-user configuration returned by the API.
// It is always fully populated: DefaultSettings with the user's overrides applied.
type Settings struct {
	Notifications NotificationSettings `bson:"notifications" json:"notifications"`
	Privacy       PrivacySettings      `bson:"privacy" json:"privacy"`
	Display       DisplaySettings      `bson:"display" json:"display"`
}

type NotificationSettings struct {
	Email     bool `bson:"email" json:"email"`
	Push      bool `bson:"push" json:"push"`
	Comments  bool `bson:"comments" json:"comments"`
	Followers bool `bson:"followers" json:"followers"`
	Saves     bool `bson:"saves" json:"saves"`
}

type PrivacySettings struct {
	ProfileVisibility string `bson:"profile_visibility" json:"profile_visibility"` // public | private
	ShowActivity      bool   `bson:"show_activity" json:"show_activity"`
	AllowComments     bool   `bson:"allow_comments" json:"allow_comments"`
}

type DisplaySettings struct {
	Theme    string `bson:"theme" json:"theme"` // light | dark | system
	Language string `bson:"language" json:"language"`
	GridSize string `bson:"grid_size" json:"grid_size"` // small | medium | large
}

// DefaultSettings returns the settings every user starts with.
func DefaultSettings() Settings {
	return Settings{
		Notifications: NotificationSettings{
			Email:     true,
			Push:      true,
			Comments:  true,
			Followers: true,
			Saves:     false,
		},
		Privacy: PrivacySettings{
			ProfileVisibility: "public",
			ShowActivity:      true,
			AllowComments:     true,
		},
		Display: DisplaySettings{
			Theme:    "system",
			Language: "en",
			GridSize: "medium",
		},
	}
}

// SettingsPatch is a sparse set of overrides. A nil field means "leave unchanged".
// It is both the PUT /settings payload and the stored form on the user document.
type SettingsPatch struct {
	Notifications *NotificationPatch `bson:"notifications,omitempty" json:"notifications,omitempty"`
	Privacy       *PrivacyPatch      `bson:"privacy,omitempty" json:"privacy,omitempty"`
	Display       *DisplayPatch      `bson:"display,omitempty" json:"display,omitempty"`
}

type NotificationPatch struct {
	Email     *bool `bson:"email,omitempty" json:"email,omitempty"`
	Push      *bool `bson:"push,omitempty" json:"push,omitempty"`
	Comments  *bool `bson:"comments,omitempty" json:"comments,omitempty"`
	Followers *bool `bson:"followers,omitempty" json:"followers,omitempty"`
	Saves     *bool `bson:"saves,omitempty" json:"saves,omitempty"`
}

type PrivacyPatch struct {
	ProfileVisibility *string `bson:"profile_visibility,omitempty" json:"profile_visibility,omitempty" validate:"omitnil,oneof=public private"`
	ShowActivity      *bool   `bson:"show_activity,omitempty" json:"show_activity,omitempty"`
	AllowComments     *bool   `bson:"allow_comments,omitempty" json:"allow_comments,omitempty"`
}

type DisplayPatch struct {
	Theme    *string `bson:"theme,omitempty" json:"theme,omitempty" validate:"omitnil,oneof=light dark system"`
	Language *string `bson:"language,omitempty" json:"language,omitempty" validate:"omitnil,min=2,max=10"`
	GridSize *string `bson:"grid_size,omitempty" json:"grid_size,omitempty" validate:"omitnil,oneof=small medium large"`
}

// Merge returns base with every non-nil field of patch applied.
// Neither argument is modified.
func Merge(base Settings, patch *SettingsPatch) Settings {
	out := base
	if patch == nil {
		return out
	}
	if n := patch.Notifications; n != nil {
		setBool(&out.Notifications.Email, n.Email)
		setBool(&out.Notifications.Push, n.Push)
		setBool(&out.Notifications.Comments, n.Comments)
		setBool(&out.Notifications.Followers, n.Followers)
		setBool(&out.Notifications.Saves, n.Saves)
	}
	if p := patch.Privacy; p != nil {
		setString(&out.Privacy.ProfileVisibility, p.ProfileVisibility)
		setBool(&out.Privacy.ShowActivity, p.ShowActivity)
		setBool(&out.Privacy.AllowComments, p.AllowComments)
	}
	if d := patch.Display; d != nil {
		setString(&out.Display.Theme, d.Theme)
		setString(&out.Display.Language, d.Language)
		setString(&out.Display.GridSize, d.GridSize)
	}
	return out
}

// Overlay returns a new patch holding the fields of p overridden by next.
// It is how successive PUTs accumulate into the stored overrides.
func (p *SettingsPatch) Overlay(next *SettingsPatch) *SettingsPatch {
	out := &SettingsPatch{}
	for _, src := range []*SettingsPatch{p, next} {
		if src == nil {
			continue
		}
		if n := src.Notifications; n != nil {
			if out.Notifications == nil {
				out.Notifications = &NotificationPatch{}
			}
			overBool(&out.Notifications.Email, n.Email)
			overBool(&out.Notifications.Push, n.Push)
			overBool(&out.Notifications.Comments, n.Comments)
			overBool(&out.Notifications.Followers, n.Followers)
			overBool(&out.Notifications.Saves, n.Saves)
		}
		if pr := src.Privacy; pr != nil {
			if out.Privacy == nil {
				out.Privacy = &PrivacyPatch{}
			}
			overString(&out.Privacy.ProfileVisibility, pr.ProfileVisibility)
			overBool(&out.Privacy.ShowActivity, pr.ShowActivity)
			overBool(&out.Privacy.AllowComments, pr.AllowComments)
		}
		if d := src.Display; d != nil {
			if out.Display == nil {
				out.Display = &DisplayPatch{}
			}
			overString(&out.Display.Theme, d.Theme)
			overString(&out.Display.Language, d.Language)
			overString(&out.Display.GridSize, d.GridSize)
		}
	}
	return out
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func overBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}

func overString(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}

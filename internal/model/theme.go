package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// UserTheme holds a user's display preferences. CustomSettings is a JSON object.
type UserTheme struct {
	ID               int64     `json:"id" gorm:"primary_key"`
	UserID           int64     `json:"userId" gorm:"unique_index;not null"`
	ThemeName        string    `json:"themeName" gorm:"type:varchar(50);not null"`
	SidebarCollapsed bool      `json:"sidebarCollapsed" gorm:"not null"`
	CustomSettings   string    `json:"-" gorm:"type:text"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewUserTheme creates a theme row with no custom settings.
func NewUserTheme(userID int64, themeName string) *UserTheme {
	return &UserTheme{
		UserID:         userID,
		ThemeName:      themeName,
		CustomSettings: "{}",
	}
}

// Settings decodes the custom settings object.
func (t *UserTheme) Settings() (map[string]interface{}, error) {
	settings := make(map[string]interface{})
	if t.CustomSettings == "" {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(t.CustomSettings), &settings); err != nil {
		return nil, errors.Wrap(err, "decoding custom settings")
	}
	return settings, nil
}

// MergeSettings overlays values onto the custom settings key by key.
func (t *UserTheme) MergeSettings(values map[string]interface{}) error {
	settings, err := t.Settings()
	if err != nil {
		return err
	}
	for k, v := range values {
		settings[k] = v
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "encoding custom settings")
	}
	t.CustomSettings = string(b)
	return nil
}

// ThemeByUserID returns the theme of a user.
func ThemeByUserID(ctx context.Context, db db.DB, userID int64) (*UserTheme, error) {
	t := new(UserTheme)
	err := db.Where("user_id = ?", userID).First(t).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return t, err
}

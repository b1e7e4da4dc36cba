package models

import "gorm.io/datatypes"

type UserAccount struct {
	JsonModel
	Name     string   `json:"name"`
	Email    string   `json:"email" gorm:"unique"`
	Banned   bool     `gorm:"default:false" json:"-"`
	Platform Platform `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`

	// profile used by the outfit generator
	Age              int                         `json:"age"`
	Gender           string                      `json:"gender"`
	BodyType         string                      `json:"body_type"`
	HeightCm         int                         `json:"height_cm"`
	StylePreferences datatypes.JSONSlice[string] `json:"style_preferences"`
	FavoriteColors   datatypes.JSONSlice[string] `json:"favorite_colors"`

	// Notifications settings
	ReceiveNotifications bool `json:"receive_notifications"`
	// access to the regulator admin endpoints
	IsSuperadmin bool   `json:"is_superadmin"`
	AvatarURL    string `json:"avatar_url"`
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string   `json:"token" validate:"required"`
	Platform Platform `json:"platform" validate:"required,platform"`
}

type UserProfileIn struct {
	Name             *string  `json:"name"`
	Age              *int     `json:"age" validate:"omitempty,min=1,max=120"`
	Gender           *string  `json:"gender"`
	BodyType         *string  `json:"body_type"`
	HeightCm         *int     `json:"height_cm" validate:"omitempty,min=50,max=260"`
	StylePreferences []string `json:"style_preferences"`
	FavoriteColors   []string `json:"favorite_colors"`
	// ReceiveNotifications toggles outfit-ready pushes
	ReceiveNotifications *bool `json:"receive_notifications"`
}

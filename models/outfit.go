package models

import (
	"strconv"

	"gorm.io/datatypes"
)

const (
	OutfitStatusPending   = "pending"
	OutfitStatusCompleted = "completed"
	OutfitStatusFailed    = "failed"
)

type Outfit struct {
	JsonModel
	Name          string                      `json:"name"`
	UserAccountID uint                        `json:"-"`
	UserAccount   UserAccount                 `json:"-"`
	Status        string                      `json:"status"` // pending, completed, failed
	Occasion      datatypes.JSONSlice[string] `json:"occasion"`
	Season        datatypes.JSONSlice[string] `json:"season"`
	Weather       datatypes.JSONSlice[string] `json:"weather"`
	Style         datatypes.JSONSlice[string] `json:"style"`
	AIGenerated   bool                        `json:"ai_generated"`
	// false when a required position could not be filled
	Complete     bool         `json:"complete"`
	ErrorMessage *string      `json:"error_message"`
	Items        []OutfitItem `json:"items"`
}

type OutfitItem struct {
	JsonModel
	OutfitID   uint     `json:"-"`
	ClothingID uint     `json:"clothing_id"`
	Clothing   Clothing `json:"clothing"`
	Position   string   `json:"position"`
	SortOrder  int      `json:"sort_order"`
}

type GenerateOutfitIn struct {
	Occasion        []string `json:"occasion"`
	Season          []string `json:"season" validate:"dive,season"`
	Weather         []string `json:"weather"`
	PreferredStyles []string `json:"preferred_styles"`
	PreferredColors []string `json:"preferred_colors"`
	ExcludeItems    []uint   `json:"exclude_items"`
	MaxItems        int      `json:"max_items" validate:"omitempty,min=1,max=12"`
}

// ClothingKey is the wardrobe item id the generator sees for a clothing row.
// Unsaved rows have no key.
func ClothingKey(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// ParseClothingKey reverses ClothingKey.
func ParseClothingKey(key string) (uint, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	return uint(id), err
}

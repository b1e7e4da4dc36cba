package models

import (
	"wardrobeapi/outfits"

	"gorm.io/datatypes"
)

const (
	ClothingStatusTemporary = "temporary"
	ClothingStatusInCloset  = "in_closet"
	ClothingStatusArchived  = "archived"
)

type Clothing struct {
	JsonModel
	Name         string                      `json:"name"`
	Description  *string                     `gorm:"type:text" json:"description"`
	ClothingType string                      `json:"clothing_type"` // category, e.g. top, bottom, shoes, accessory
	SubCategory  string                      `json:"sub_category"`  // t-shirt, jeans, sneakers...
	Colors       datatypes.JSONSlice[string] `json:"colors"`
	Styles       datatypes.JSONSlice[string] `json:"styles"`
	Seasons      datatypes.JSONSlice[string] `json:"seasons"`
	Weather      datatypes.JSONSlice[string] `json:"weather"`
	Owner        UserAccount                 `json:"-"`
	OwnerID      uint                        `json:"-"`
	Status       string                      `json:"status"`       // temporary, in_closet, archived
	ImageStatus  string                      `json:"image_status"` // draft, uploaded
	ImageURL     *string                     `json:"image_url"`
}

// Position is the outfit slot the item would fill, empty when unknown.
func (c Clothing) Position() outfits.Position {
	p, _ := outfits.PositionFor(c.WardrobeItem())
	return p
}

func (c Clothing) WardrobeItem() outfits.WardrobeItem {
	return outfits.WardrobeItem{
		ID:          ClothingKey(c.ID),
		Category:    c.ClothingType,
		SubCategory: c.SubCategory,
		Colors:      c.Colors,
		Styles:      c.Styles,
		Seasons:     c.Seasons,
		Weather:     c.Weather,
	}
}

type ClothingIn struct {
	Name         string   `json:"name" validate:"required"`
	Description  *string  `json:"description"`
	ClothingType string   `json:"clothing_type" validate:"required"`
	SubCategory  string   `json:"sub_category"`
	Colors       []string `json:"colors"`
	Styles       []string `json:"styles"`
	Seasons      []string `json:"seasons" validate:"dive,season"`
	Weather      []string `json:"weather"`
	FileName     *string  `json:"file_name"`
}

type ClothingOut struct {
	Clothing
	Position  outfits.Position `json:"position"`
	UploadURL *string          `json:"upload_url,omitempty"`
}

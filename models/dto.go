package models

type ImageUploadIn struct {
	ClothingID uint   `json:"clothing_id" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
}

type ImageUploadOut struct {
	ClothingID uint   `json:"clothing_id"`
	FileName   string `json:"file_name"`
	UploadUrl  string `json:"upload_url"`
}

type OutfitGenerationOut struct {
	Outfit     *Outfit `json:"outfit"`
	Complete   bool    `json:"complete"`
	ItemsCount int     `json:"items_count"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"wardrobeapi/models"
	"wardrobeapi/outfits"
	"wardrobeapi/regulator"
	"wardrobeapi/tagutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrGenerationUnavailable = errors.New("outfit generation is temporarily unavailable")
	ErrOutfitNotPending      = errors.New("outfit is not pending")
)

// GenerationBreakerKey guards outfit generation once repeated failures trip
// the breaker.
var GenerationBreakerKey = regulator.BreakerKey(regulator.SourceServer, outfits.CodeGenerationFailed)

// OutfitService connects stored wardrobes to the outfit generator. The HTTP
// handlers and the background worker share it.
type OutfitService struct {
	DB        *gorm.DB
	Generator *outfits.Generator
	Regulator *regulator.Regulator
	Logger    *zap.SugaredLogger
}

func NewOutfitService(db *gorm.DB, generator *outfits.Generator, reg *regulator.Regulator, logger *zap.SugaredLogger) *OutfitService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OutfitService{DB: db, Generator: generator, Regulator: reg, Logger: logger}
}

func ToWardrobeItems(clothes []models.Clothing) []outfits.WardrobeItem {
	items := make([]outfits.WardrobeItem, 0, len(clothes))
	for _, c := range clothes {
		items = append(items, c.WardrobeItem())
	}
	return items
}

// ParamsFor combines the user's profile with the request. Request styles and
// colors win over the stored preferences.
func ParamsFor(user models.UserAccount, in models.GenerateOutfitIn) outfits.Params {
	params := outfits.Params{
		UserID:               strconv.FormatUint(uint64(user.ID), 10),
		Age:                  user.Age,
		BaseStylePreferences: user.StylePreferences,
		Occasion:             in.Occasion,
		Season:               in.Season,
		Weather:              in.Weather,
		PreferredStyles:      in.PreferredStyles,
		PreferredColors:      in.PreferredColors,
		Gender:               user.Gender,
		BodyType:             user.BodyType,
		Height:               user.HeightCm,
		MaxItems:             in.MaxItems,
	}
	if len(params.PreferredStyles) == 0 {
		params.PreferredStyles = user.StylePreferences
	}
	if len(params.PreferredColors) == 0 {
		params.PreferredColors = user.FavoriteColors
	}
	for _, id := range in.ExcludeItems {
		params.ExcludeItems = append(params.ExcludeItems, models.ClothingKey(id))
	}
	return params
}

func (s *OutfitService) Generate(ctx context.Context, user models.UserAccount, in models.GenerateOutfitIn) (*models.Outfit, error) {
	if !s.Regulator.AllowRequest(GenerationBreakerKey) {
		return nil, ErrGenerationUnavailable
	}
	outfit := &models.Outfit{
		Name:          tagutil.RandomOutfitName(),
		UserAccountID: user.ID,
		Status:        models.OutfitStatusPending,
	}
	if err := s.GenerateInto(ctx, user, outfit, in); err != nil {
		return nil, err
	}
	return outfit, nil
}

// GenerateInto fills outfit from the user's closet and stores it. A failed
// generation is stored with status failed and returned as an error.
func (s *OutfitService) GenerateInto(ctx context.Context, user models.UserAccount, outfit *models.Outfit, in models.GenerateOutfitIn) error {
	db := s.DB.WithContext(ctx)
	var clothes []models.Clothing
	if err := db.Where("owner_id = ? and status = ?", user.ID, models.ClothingStatusInCloset).Order("id").Find(&clothes).Error; err != nil {
		return fmt.Errorf("load wardrobe: %w", err)
	}

	draft, err := s.Generator.GenerateOutfit(ToWardrobeItems(clothes), ParamsFor(user, in))
	if err != nil {
		outfit.Status = models.OutfitStatusFailed
		outfit.ErrorMessage = StrPointer(err.Error())
		if saveErr := db.Omit(clause.Associations).Save(outfit).Error; saveErr != nil {
			s.Logger.Errorw("could not store failed outfit", "outfit_id", outfit.ID, "error", saveErr)
		}
		return err
	}
	s.Regulator.RecordSuccess(GenerationBreakerKey)

	outfit.Status = models.OutfitStatusCompleted
	outfit.ErrorMessage = nil
	outfit.Occasion = draft.Occasion
	outfit.Season = draft.Season
	outfit.Weather = draft.Weather
	outfit.Style = draft.Style
	outfit.AIGenerated = draft.AIGenerated
	outfit.Complete = draft.Complete()

	items := make([]models.OutfitItem, 0, len(draft.Clothes))
	for i, slot := range draft.Clothes {
		clothingID, err := models.ParseClothingKey(slot.ItemID)
		if err != nil {
			return fmt.Errorf("unexpected wardrobe item id %q: %w", slot.ItemID, err)
		}
		items = append(items, models.OutfitItem{ClothingID: clothingID, Position: string(slot.Position), SortOrder: i})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(outfit).Error; err != nil {
			return err
		}
		if err := tx.Where("outfit_id = ?", outfit.ID).Delete(&models.OutfitItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OutfitID = outfit.ID
		}
		if len(items) > 0 {
			return tx.Create(&items).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store outfit: %w", err)
	}
	if err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order")
	}).Preload("Items.Clothing").First(outfit, outfit.ID).Error; err != nil {
		return fmt.Errorf("reload outfit: %w", err)
	}
	s.Logger.Infow("outfit generated", "outfit_id", outfit.ID, "user_id", user.ID, "items", len(items), "complete", outfit.Complete)
	return nil
}

// NewPendingOutfit stores an empty outfit that a background job fills later.
func (s *OutfitService) NewPendingOutfit(ctx context.Context, user models.UserAccount) (*models.Outfit, error) {
	outfit := &models.Outfit{
		Name:          tagutil.RandomOutfitName(),
		UserAccountID: user.ID,
		Status:        models.OutfitStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(outfit).Error; err != nil {
		return nil, err
	}
	return outfit, nil
}

// MarkOutfitFailed moves a pending outfit to failed. Outfits in any other
// state are left alone.
func (s *OutfitService) MarkOutfitFailed(ctx context.Context, outfitID uint, reason string) error {
	err := s.DB.WithContext(ctx).Model(&models.Outfit{}).
		Where("id = ? AND status = ?", outfitID, models.OutfitStatusPending).
		Updates(map[string]any{"status": models.OutfitStatusFailed, "error_message": reason}).Error
	if err != nil {
		return fmt.Errorf("mark outfit %d failed: %w", outfitID, err)
	}
	s.Logger.Warnw("pending outfit marked failed", "outfit_id", outfitID, "reason", reason)
	return nil
}

// GeneratePending fills a pending outfit. Outfits that already left the
// pending state are returned untouched with ErrOutfitNotPending so a retried
// job does not rebuild them.
func (s *OutfitService) GeneratePending(ctx context.Context, outfitID uint, in models.GenerateOutfitIn) (*models.Outfit, error) {
	var outfit models.Outfit
	if err := s.DB.WithContext(ctx).Preload("UserAccount").First(&outfit, outfitID).Error; err != nil {
		return nil, fmt.Errorf("load outfit %d: %w", outfitID, err)
	}
	if outfit.Status != models.OutfitStatusPending {
		return &outfit, ErrOutfitNotPending
	}
	if !s.Regulator.AllowRequest(GenerationBreakerKey) {
		return &outfit, ErrGenerationUnavailable
	}
	if err := s.GenerateInto(ctx, outfit.UserAccount, &outfit, in); err != nil {
		return &outfit, err
	}
	return &outfit, nil
}

// UserOutfits lists the user's outfits, newest first.
func (s *OutfitService) UserOutfits(ctx context.Context, userID uint) ([]models.Outfit, error) {
	var list []models.Outfit
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Items.Clothing").
		Where("user_account_id = ?", userID).
		Order("id desc").
		Find(&list).Error
	return list, err
}

// UserOutfit loads one of the user's outfits. gorm.ErrRecordNotFound is
// returned for outfits of other users.
func (s *OutfitService) UserOutfit(ctx context.Context, userID, outfitID uint) (*models.Outfit, error) {
	var outfit models.Outfit
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Items.Clothing").
		Where("id = ? AND user_account_id = ?", outfitID, userID).
		Take(&outfit).Error
	if err != nil {
		return nil, err
	}
	return &outfit, nil
}

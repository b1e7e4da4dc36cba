package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path"
	"sync"

	"wardrobeapi/models"
	"wardrobeapi/outfits"
	"wardrobeapi/services"
	"wardrobeapi/tagutil"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// ClothesListResponse groups the closet by the outfit position each item fills.
type ClothesListResponse map[outfits.Position][]models.ClothingOut

type ClothesController struct {
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
}

func (controller *ClothesController) ClothingRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateClothing)
	g.GET("/list", controller.ListClothes)
}

func (controller *ClothesController) CreateClothing(c echo.Context) error {
	var req models.ClothingIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	clothing := models.Clothing{
		Name:         req.Name,
		Description:  req.Description,
		ClothingType: tagutil.NormalizeTag(req.ClothingType),
		SubCategory:  tagutil.NormalizeTag(req.SubCategory),
		Colors:       tagutil.NormalizeTags(req.Colors),
		Styles:       tagutil.NormalizeTags(req.Styles),
		Seasons:      tagutil.NormalizeTags(req.Seasons),
		Weather:      tagutil.NormalizeTags(req.Weather),
		OwnerID:      user.ID,
		Status:       models.ClothingStatusInCloset,
		ImageStatus:  "draft",
	}
	position := clothing.Position()
	if position == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Unknown clothing type %q", req.ClothingType)})
	}

	var uploadUrl *string
	if req.FileName != nil && *req.FileName != "" {
		bucketName := services.GetEnv("R2_BUCKET_NAME", "")
		objectKey := fmt.Sprintf("clothes/%d/%s", user.ID, path.Base(*req.FileName))
		link, err := controller.AWSService.PresignLink(c.Request().Context(), bucketName, objectKey)
		if err != nil {
			log.Printf("Unable to presign upload for %s!, %s", clothing.Name, err)
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error while creating clothe with attachment",
			})
		}
		clothing.ImageURL = &objectKey
		uploadUrl = &link
	}

	if err := db.Create(&clothing).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save clothing"})
	}

	return c.JSON(http.StatusCreated, models.ClothingOut{
		Clothing:  clothing,
		Position:  position,
		UploadURL: uploadUrl,
	})
}

func (controller *ClothesController) ListClothes(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var clothes []models.Clothing
	if err := db.Where("owner_id = ? AND status = ?", user.ID, models.ClothingStatusInCloset).Order("id").Find(&clothes).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}
	presigned := presignClothingImages(c.Request().Context(), controller.URLCache, controller.AWSService, clothes)

	response := ClothesListResponse{}
	for _, p := range outfits.AllPositions {
		response[p] = []models.ClothingOut{}
	}
	for _, item := range presigned {
		position := item.Position()
		if position == "" {
			continue
		}
		response[position] = append(response[position], models.ClothingOut{Clothing: item, Position: position})
	}
	return c.JSON(http.StatusOK, response)
}

// presignClothingImages swaps stored object keys for readable links. A cache
// failure falls back to presigning directly; when that fails too the item keeps
// no image rather than failing the request.
func presignClothingImages(ctx context.Context, urlCache services.URLCacheServiceProvider, awsService services.AWSServiceProvider, clothes []models.Clothing) []models.Clothing {
	var wg sync.WaitGroup
	out := make([]models.Clothing, len(clothes))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, clothingItem := range clothes {
		out[i] = clothingItem
		if clothingItem.ImageURL == nil || *clothingItem.ImageURL == "" {
			continue
		}
		wg.Add(1)
		go func(index int, objectKey string) {
			defer wg.Done()

			url, err := urlCache.GetReadURL(ctx, objectKey)
			if err != nil {
				log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("failure_type", "cache_system")
					scope.SetExtra("objectKey", objectKey)
					sentry.CaptureException(err)
				})
				url, err = awsService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
				if err != nil {
					log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, err)
					sentry.CaptureException(err)
					out[index].ImageURL = nil
					return
				}
			}
			out[index].ImageURL = &url
		}(i, *clothingItem.ImageURL)
	}
	wg.Wait()
	return out
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type OutfitsController struct {
	Service    *services.OutfitService
	AWSService services.AWSServiceProvider
	URLCache   services.URLCacheServiceProvider
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/generate", controller.GenerateOutfit)
	g.POST("/generate-async", controller.GenerateOutfitAsync)
	g.GET("/list", controller.ListOutfits)
	g.GET("/:outfitId", controller.GetOutfit)
}

func (controller *OutfitsController) GenerateOutfit(c echo.Context) error {
	var req models.GenerateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	outfit, err := controller.Service.Generate(c.Request().Context(), user, req)
	if errors.Is(err, services.ErrGenerationUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Outfit generation is paused for a moment, please try again a bit later"})
	}
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[User %v] outfit generation failed: %w", user.ID, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Sorry, could not generate an outfit, please try again"})
	}

	controller.presignOutfitImages(c, outfit)
	return c.JSON(http.StatusCreated, models.OutfitGenerationOut{
		Outfit:     outfit,
		Complete:   outfit.Complete,
		ItemsCount: len(outfit.Items),
	})
}

func (controller *OutfitsController) GenerateOutfitAsync(c echo.Context) error {
	var req models.GenerateOutfitIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok || asynqClient == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	outfit, err := controller.Service.NewPendingOutfit(c.Request().Context(), user)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create outfit"})
	}
	info, err := enqueueOutfitGeneration(asynqClient, outfit.ID, req)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Outfit %v] could not enqueue generation: %w", outfit.ID, err))
		if markErr := controller.Service.MarkOutfitFailed(c.Request().Context(), outfit.ID, "could not queue outfit generation"); markErr != nil {
			sentry.CaptureException(markErr)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not generate an outfit, please try again"})
	}
	fmt.Println("[Queue] Outfit generation task submitted, Outfit ID: ", outfit.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusAccepted, echo.Map{
		"outfit_id": outfit.ID,
		"status":    outfit.Status,
	})
}

func enqueueOutfitGeneration(client *asynq.Client, outfitID uint, req models.GenerateOutfitIn) (*asynq.TaskInfo, error) {
	task, err := tasks.NewOutfitGenerationTask(outfitID, req)
	if err != nil {
		return nil, err
	}
	return client.Enqueue(task, asynq.MaxRetry(3), asynq.Queue(tasks.QueueGenerate))
}

func (controller *OutfitsController) ListOutfits(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	list, err := controller.Service.UserOutfits(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfits"})
	}
	for i := range list {
		controller.presignOutfitImages(c, &list[i])
	}
	return c.JSON(http.StatusOK, list)
}

func (controller *OutfitsController) GetOutfit(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	outfitId, err := pathUint(c, "outfitId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid outfit id"})
	}
	outfit, err := controller.Service.UserOutfit(c.Request().Context(), user.ID, outfitId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Outfit not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch outfit"})
	}
	controller.presignOutfitImages(c, outfit)
	return c.JSON(http.StatusOK, outfit)
}

func (controller *OutfitsController) presignOutfitImages(c echo.Context, outfit *models.Outfit) {
	clothes := make([]models.Clothing, len(outfit.Items))
	for i, item := range outfit.Items {
		clothes[i] = item.Clothing
	}
	presigned := presignClothingImages(c.Request().Context(), controller.URLCache, controller.AWSService, clothes)
	for i := range outfit.Items {
		outfit.Items[i].Clothing = presigned[i]
	}
}

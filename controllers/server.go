package controllers

import (
	"context"
	"log"
	"net/http"
	"os"

	"wardrobeapi/models"
	"wardrobeapi/services"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	awsService services.AWSServiceProvider,
	urlCache services.URLCacheServiceProvider,
	asynqClient *asynq.Client,
	outfitService *services.OutfitService,
) *echo.Echo {
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	models.RegisterValidations(v)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	wardrobeGroup := e.Group("/wardrobe", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	wardrobeGroup.Use(UserMiddleware)

	profileController := ProfileController{}
	profileController.ProfileRoutes(wardrobeGroup.Group("/profile"))

	clothesController := ClothesController{AWSService: awsService, URLCache: urlCache}
	clothesController.ClothingRoutes(wardrobeGroup.Group("/clothes"))

	outfitsController := OutfitsController{Service: outfitService, AWSService: awsService, URLCache: urlCache}
	outfitsController.OutfitRoutes(wardrobeGroup.Group("/outfits"))

	adminGroup := e.Group("/admin", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))))
	adminGroup.Use(UserMiddleware, SuperadminMiddleware)

	regulatorController := RegulatorController{Regulator: outfitService.Regulator}
	regulatorController.RegulatorRoutes(adminGroup.Group("/regulator"))

	return e
}

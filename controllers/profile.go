package controllers

import (
	"net/http"

	"wardrobeapi/models"
	"wardrobeapi/tagutil"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ProfileController struct {
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		return c.JSON(http.StatusOK, user)
	})

	g.PUT("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		var req models.UserProfileIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Age != nil {
			user.Age = *req.Age
		}
		if req.Gender != nil {
			user.Gender = tagutil.NormalizeTag(*req.Gender)
		}
		if req.BodyType != nil {
			user.BodyType = tagutil.NormalizeTag(*req.BodyType)
		}
		if req.HeightCm != nil {
			user.HeightCm = *req.HeightCm
		}
		if req.StylePreferences != nil {
			user.StylePreferences = tagutil.NormalizeTags(req.StylePreferences)
		}
		if req.FavoriteColors != nil {
			user.FavoriteColors = tagutil.NormalizeTags(req.FavoriteColors)
		}
		if req.ReceiveNotifications != nil {
			user.ReceiveNotifications = *req.ReceiveNotifications
		}
		if err := db.Save(&user).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update profile"})
		}
		return c.JSON(http.StatusOK, user)
	})

	g.POST("/push-token", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		var req models.UserPushIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		var token models.UserPushToken
		db.Where("user_account_id = ? AND token = ?", user.ID, req.Token).Limit(1).Find(&token)
		token.UserAccountID = user.ID
		token.Token = req.Token
		token.Platform = req.Platform
		token.Active = true
		if err := db.Save(&token).Error; err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save push token"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
	})
}

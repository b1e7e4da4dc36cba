package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wardrobeapi/models"
	"wardrobeapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfileOk(t *testing.T) {
	e, db, _, cleaner := setupTestServer()
	defer cleaner()
	user := test.FakeUser(db, false)

	req := test.NewJSONAuthRequest("GET", "/wardrobe/profile/me", test.UserPk(user), "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, user.Name, payload["name"])
	assert.Equal(t, user.Email, payload["email"])
	assert.Equal(t, []interface{}{"casual"}, payload["style_preferences"])
}

func TestUpdateProfile(t *testing.T) {
	e, db, _, cleaner := setupTestServer()
	defer cleaner()
	user := test.FakeUser(db, false)

	age := 34
	notify := true
	req := test.NewJSONAuthRequest("PUT", "/wardrobe/profile/me", test.UserPk(user), models.UserProfileIn{
		Age:                  &age,
		StylePreferences:     []string{"Business Casual", "minimalist", "minimalist"},
		FavoriteColors:       []string{"Navy"},
		ReceiveNotifications: &notify,
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.UserAccount
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 34, stored.Age)
	assert.Equal(t, user.Name, stored.Name)
	assert.Equal(t, []string{"business-casual", "minimalist"}, []string(stored.StylePreferences))
	assert.Equal(t, []string{"navy"}, []string(stored.FavoriteColors))
	assert.True(t, stored.ReceiveNotifications)

	age = 400
	req = test.NewJSONAuthRequest("PUT", "/wardrobe/profile/me", test.UserPk(user), models.UserProfileIn{Age: &age})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPushToken(t *testing.T) {
	e, db, _, cleaner := setupTestServer()
	defer cleaner()
	user := test.FakeUser(db, false)

	body := models.UserPushIn{Token: "device-token", Platform: models.PlatformIOS}
	for i := 0; i < 2; i++ {
		req := test.NewJSONAuthRequest("POST", "/wardrobe/profile/push-token", test.UserPk(user), body)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	var count int64
	db.Model(&models.UserPushToken{}).Where("user_account_id = ? AND token = ?", user.ID, "device-token").Count(&count)
	assert.Equal(t, int64(1), count)

	req := test.NewJSONAuthRequest("POST", "/wardrobe/profile/push-token", test.UserPk(user), map[string]string{"token": "x", "platform": "desktop"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"wardrobeapi/models"
	"wardrobeapi/outfits"
	"wardrobeapi/regulator"
	"wardrobeapi/services"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func UserPk(user *models.UserAccount) string {
	return strconv.FormatUint(uint64(user.ID), 10)
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(userPk)))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", authorizationString)
	return req
}

func FakeUser(db *gorm.DB, superadmin bool) *models.UserAccount {
	return FakeUserV2(db, "OurName", fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()), superadmin)
}

func FakeUserV2(db *gorm.DB, userName string, email string, superadmin bool) *models.UserAccount {
	user := &models.UserAccount{
		Name:             userName,
		Email:            email,
		Platform:         models.PlatformIOS,
		Age:              27,
		Gender:           "female",
		StylePreferences: []string{"casual"},
		IsSuperadmin:     superadmin,
		AvatarURL:        "pictureurl",
	}
	db.Create(user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      models.PlatformAndroid,
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(user, user.ID)
	return user
}

// FakeClothing stores an in-closet item for owner.
func FakeClothing(db *gorm.DB, owner *models.UserAccount, name, subCategory string, styles, colors []string) models.Clothing {
	position, _ := outfits.PositionFor(outfits.WardrobeItem{SubCategory: subCategory})
	clothing := models.Clothing{
		Name:         name,
		ClothingType: string(position),
		SubCategory:  subCategory,
		Styles:       styles,
		Colors:       colors,
		Seasons:      []string{"summer", "spring"},
		OwnerID:      owner.ID,
		Status:       models.ClothingStatusInCloset,
		ImageURL:     services.StrPointer(fmt.Sprintf("clothes/%s.jpg", subCategory)),
	}
	db.Create(&clothing)
	return clothing
}

// FakeCasualCloset stores a complete casual wardrobe: top, bottom, shoes and
// an accessory.
func FakeCasualCloset(db *gorm.DB, owner *models.UserAccount) []models.Clothing {
	casual := []string{"casual"}
	return []models.Clothing{
		FakeClothing(db, owner, "White tee", "t-shirt", casual, []string{"white"}),
		FakeClothing(db, owner, "Blue jeans", "jeans", casual, []string{"blue"}),
		FakeClothing(db, owner, "White sneakers", "sneakers", casual, []string{"white"}),
		FakeClothing(db, owner, "Canvas bag", "bag", casual, []string{"beige"}),
	}
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", fileKey), nil
}

type URLCacheMock struct{}

func (URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", objectKey), nil
}

type PushCall struct {
	UserID  uint
	Title   string
	Message string
	Data    map[string]string
}

// PushSenderMock records pushes instead of calling firebase.
type PushSenderMock struct {
	mu    sync.Mutex
	Calls []PushCall
}

func (m *PushSenderMock) SendNotification(ctx context.Context, db *gorm.DB, userId uint, title string, message string, customData map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, PushCall{UserID: userId, Title: title, Message: message, Data: customData})
	return nil
}

// NewOutfitService wires a generator to a fresh regulator loaded with the
// default regulations.
func NewOutfitService(db *gorm.DB) *services.OutfitService {
	reg := regulator.New(regulator.WithRegulations(regulator.DefaultRegulations()...))
	return services.NewOutfitService(db, outfits.NewGenerator(reg), reg, nil)
}

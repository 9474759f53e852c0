package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"confmate/backend/internal/auth"
	"confmate/backend/internal/cache"
	"confmate/backend/internal/config"
	"confmate/backend/internal/database"
	"confmate/backend/internal/handler"
	"confmate/backend/internal/models"
	"confmate/backend/pkg/jwt"
)

// setupAPI wires the API routes the way cmd/server does, backed by an
// in-memory database and no redis.
func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}
	cache.Client = nil

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	router := gin.New()
	apiV1 := router.Group("/api/v1")

	authRoutes := apiV1.Group("/auth")
	authRoutes.POST("/register", handler.RegisterUser)
	authRoutes.POST("/login", handler.LoginUser)

	userRoutes := apiV1.Group("/users")
	userRoutes.Use(auth.AuthMiddleware())
	userRoutes.GET("/me", handler.GetMe)

	eventRoutes := apiV1.Group("/events")
	eventRoutes.Use(auth.AuthMiddleware())
	eventRoutes.GET("", handler.ListEvents)
	eventRoutes.GET("/:id", handler.GetEvent)
	eventRoutes.POST("", auth.StaffMiddleware(), handler.CreateEvent)
	eventRoutes.GET("/:id/rooms", handler.ListRooms)
	eventRoutes.POST("/:id/rooms", auth.StaffMiddleware(), handler.CreateRoom)
	eventRoutes.GET("/:id/rooms/mine", handler.MyRoom)
	eventRoutes.POST("/:id/registrations", handler.CreateRegistration)
	eventRoutes.GET("/:id/registrations/me", handler.GetMyRegistration)
	eventRoutes.PUT("/:id/registrations/:userID", auth.StaffMiddleware(), handler.UpdateRegistration)

	roomRoutes := apiV1.Group("/rooms")
	roomRoutes.Use(auth.AuthMiddleware())
	roomRoutes.GET("/:id", handler.GetRoom)
	roomRoutes.PUT("/:id", auth.StaffMiddleware(), handler.UpdateRoom)
	roomRoutes.DELETE("/:id", auth.StaffMiddleware(), handler.DeleteRoom)
	roomRoutes.POST("/:id/member", handler.JoinRoom)
	roomRoutes.DELETE("/:id/member", handler.LeaveRoom)
	roomRoutes.POST("/:id/lock", handler.LockRoom)
	roomRoutes.DELETE("/:id/lock", handler.UnlockRoom)
	roomRoutes.POST("/:id/hidden", auth.StaffMiddleware(), handler.HideRoom)
	roomRoutes.DELETE("/:id/hidden", auth.StaffMiddleware(), handler.UnhideRoom)

	return router
}

var userSeq int

func seedUser(t *testing.T, role string) (*models.User, string) {
	t.Helper()
	userSeq++
	user := models.User{
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", userSeq),
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	token, err := jwt.GenerateToken(user.ID)
	require.NoError(t, err)
	return &user, token
}

func seedEvent(t *testing.T, start, end time.Time) *models.Event {
	t.Helper()
	event := models.Event{Name: "Conference", RoomingStart: start, RoomingEnd: end}
	require.NoError(t, database.DB.Create(&event).Error)
	return &event
}

func seedOpenEvent(t *testing.T) *models.Event {
	t.Helper()
	now := time.Now()
	return seedEvent(t, now.Add(-time.Hour), now.Add(24*time.Hour))
}

func seedRegistration(t *testing.T, event *models.Event, user *models.User, paid bool, bonus int) {
	t.Helper()
	reg := models.Registration{
		EventID:         event.ID,
		UserID:          user.ID,
		PaymentAccepted: paid,
		BonusMinutes:    bonus,
	}
	require.NoError(t, database.DB.Create(&reg).Error)
}

func seedRoom(t *testing.T, event *models.Event, singles int, hidden bool) *models.Room {
	t.Helper()
	room := models.Room{
		EventID:             event.ID,
		Name:                fmt.Sprintf("Room %d-%d", event.ID, singles),
		Hidden:              hidden,
		BedsSingle:          singles,
		AvailableBedsSingle: singles,
	}
	require.NoError(t, database.DB.Create(&room).Error)
	return &room
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) handler.RoomResponse {
	t.Helper()
	var resp handler.RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

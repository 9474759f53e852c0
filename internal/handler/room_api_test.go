package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"confmate/backend/internal/database"
	"confmate/backend/internal/handler"
	"confmate/backend/internal/models"
)

func TestHiddenRoomVisibility(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	seedRoom(t, event, 2, false)
	hidden := seedRoom(t, event, 2, true)

	member, memberToken := seedUser(t, models.RoleUser)
	_, outsiderToken := seedUser(t, models.RoleUser)
	_, staffToken := seedUser(t, models.RoleStaff)

	// Staff place the member into the hidden room.
	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/member", hidden.ID), staffToken, gin.H{"user": member.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	listPath := fmt.Sprintf("/api/v1/events/%d/rooms", event.ID)
	listRooms := func(token string) []handler.RoomResponse {
		w := doJSON(t, router, http.MethodGet, listPath, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var rooms []handler.RoomResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
		return rooms
	}

	assert.Len(t, listRooms(outsiderToken), 1)
	assert.Len(t, listRooms(memberToken), 2)
	assert.Len(t, listRooms(staffToken), 2)

	// A direct read of the hidden room is a 404 for outsiders.
	roomPath := fmt.Sprintf("/api/v1/rooms/%d", hidden.ID)
	w = doJSON(t, router, http.MethodGet, roomPath, outsiderToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodGet, roomPath, memberToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHideAndUnhideRoom(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	room := seedRoom(t, event, 2, false)

	_, userToken := seedUser(t, models.RoleUser)
	_, staffToken := seedUser(t, models.RoleStaff)

	path := fmt.Sprintf("/api/v1/rooms/%d/hidden", room.ID)

	w := doJSON(t, router, http.MethodPost, path, userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, path, staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeRoom(t, w).Hidden)

	w = doJSON(t, router, http.MethodDelete, path, staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeRoom(t, w).Hidden)
}

func TestCreateRoomValidation(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	_, userToken := seedUser(t, models.RoleUser)
	_, staffToken := seedUser(t, models.RoleStaff)

	path := fmt.Sprintf("/api/v1/events/%d/rooms", event.ID)

	w := doJSON(t, router, http.MethodPost, path, userToken, gin.H{
		"name": "Attic", "beds_single": 1, "available_beds_single": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Four beds offered as singles need at least two doubles in stock,
	// and here both doubles are offered as doubles too.
	w = doJSON(t, router, http.MethodPost, path, staffToken, gin.H{
		"name":                  "Attic",
		"beds_single":           2,
		"beds_double":           3,
		"available_beds_single": 4,
		"available_beds_double": 2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, path, staffToken, gin.H{
		"name":                  "Attic",
		"beds_single":           2,
		"beds_double":           3,
		"available_beds_single": 4,
		"available_beds_double": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeRoom(t, w)
	assert.Equal(t, 6, resp.Capacity)
	assert.Equal(t, 6, resp.FreePlaces)
}

func TestUpdateRoomBelowOccupancy(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	room := seedRoom(t, event, 2, false)

	alice, _ := seedUser(t, models.RoleUser)
	bob, _ := seedUser(t, models.RoleUser)
	_, staffToken := seedUser(t, models.RoleStaff)

	memberPath := fmt.Sprintf("/api/v1/rooms/%d/member", room.ID)
	for _, u := range []*models.User{alice, bob} {
		w := doJSON(t, router, http.MethodPost, memberPath, staffToken, gin.H{"user": u.ID})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	path := fmt.Sprintf("/api/v1/rooms/%d", room.ID)
	w := doJSON(t, router, http.MethodPut, path, staffToken, gin.H{"available_beds_single": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, path, staffToken, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renamed", decodeRoom(t, w).Name)
}

func TestDeleteRoomOverAPI(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	room := seedRoom(t, event, 2, false)

	user, userToken := seedUser(t, models.RoleUser)
	_, staffToken := seedUser(t, models.RoleStaff)

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/member", room.ID), staffToken, gin.H{"user": user.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	path := fmt.Sprintf("/api/v1/rooms/%d", room.ID)

	w = doJSON(t, router, http.MethodDelete, path, userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodDelete, path, staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	err := database.DB.First(&models.Room{}, room.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var count int64
	require.NoError(t, database.DB.Model(&models.RoomMember{}).Where("room_id = ?", room.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMyRoom(t *testing.T) {
	router := setupAPI(t)
	event := seedOpenEvent(t)
	room := seedRoom(t, event, 2, false)

	user, token := seedUser(t, models.RoleUser)
	seedRegistration(t, event, user, true, 0)

	path := fmt.Sprintf("/api/v1/events/%d/rooms/mine", event.ID)

	w := doJSON(t, router, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/member", room.ID), token, gin.H{"user": user.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, room.ID, decodeRoom(t, w).ID)
}

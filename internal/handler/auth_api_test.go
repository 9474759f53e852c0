package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confmate/backend/internal/handler"
)

func TestRegisterAndLogin(t *testing.T) {
	router := setupAPI(t)

	register := gin.H{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"password":   "password123",
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created["token"])

	// Duplicate email.
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var logged map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logged))

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/users/me", logged["token"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me handler.PrivateUserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "user", me.Role)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := setupAPI(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/events", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	router := setupAPI(t)

	// Short password.
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"first_name": "Ada", "last_name": "Lovelace",
		"email": "ada@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not an email.
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"first_name": "Ada", "last_name": "Lovelace",
		"email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

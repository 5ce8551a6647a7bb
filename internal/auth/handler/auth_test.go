package handler

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
	"bizdesk-system/internal/utils"
)

var testSecret = []byte("test-secret")

func newTestHandler(t *testing.T) (*AuthHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	return NewAuthHandler(db, testSecret, time.Hour), db
}

func TestRegisterAndLogin(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	session, err := s.Register(ctx, RegisterInput{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "very-secret",
	})
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	// The stored password is hashed.
	var stored models.User
	require.NoError(t, db.First(&stored, session.User.ID).Error)
	assert.NotEqual(t, "very-secret", stored.Password)

	claims, err := utils.ParseToken(testSecret, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserId)
	assert.Equal(t, "ada", claims.Username)

	login, err := s.Login(ctx, LoginInput{Username: "ada", Password: "very-secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	require.NotNil(t, login.User.LastLogin)
}

func TestRegister_Duplicate(t *testing.T) {
	s, _ := newTestHandler(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterInput{Username: "ada", Email: "other@example.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrDuplicateUser)

	_, err = s.Register(ctx, RegisterInput{Username: "other", Email: "ada@example.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestLogin_Failures(t *testing.T) {
	s, db := newTestHandler(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = s.Login(ctx, LoginInput{Username: "ada", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, LoginInput{Username: "nobody", Password: "pw123456"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Deactivated accounts cannot log in.
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "ada").
		Update("is_active", false).Error)
	_, err = s.Login(ctx, LoginInput{Username: "ada", Password: "pw123456"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

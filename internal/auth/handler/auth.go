package handler

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bizdesk-system/internal/database/models"
	"bizdesk-system/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUser      = errors.New("username or email already registered")
)

type AuthHandler struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, secret []byte, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		db:       db,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func (s *AuthHandler) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	var existing models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", input.Username, input.Email).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateUser
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(pwHash),
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return s.issueSession(&user)
}

func (s *AuthHandler) Login(ctx context.Context, input LoginInput) (*Session, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", input.Username, true).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.WithContext(ctx).Save(&user)

	return s.issueSession(&user)
}

func (s *AuthHandler) issueSession(user *models.User) (*Session, error) {
	token, exp, err := utils.GenerateToken(s.secret, user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: exp,
		User:      user,
	}, nil
}

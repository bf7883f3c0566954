package service

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/braumchat/braumchat/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrDisplayNameTaken = errors.New("display name already taken")
	ErrWrongCredentials = errors.New("incorrect credentials")
)

// UserService 用户注册/登录/查询。
type UserService struct {
	*Service
}

func NewUserService(s *Service) *UserService {
	return &UserService{Service: s}
}

// Register 创建用户：bcrypt 加密密码，邮箱与展示名唯一。
func (s *UserService) Register(email, displayName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := s.DB.Model(&models.User{}).Where("display_name = ?", displayName).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDisplayNameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:          email,
		HashedPassword: string(hashed),
		DisplayName:    displayName,
		IsActive:       true,
	}
	if err := s.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate 校验邮箱+密码。
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrWrongCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, ErrWrongCredentials
	}
	return user, nil
}

// GetUser 按 ID 查用户。
func (s *UserService) GetUser(userID uint64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 按邮箱查用户。
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search 按展示名/邮箱模糊搜索。
func (s *UserService) Search(query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := "%" + strings.TrimSpace(query) + "%"
	var users []models.User
	err := s.DB.Where("display_name LIKE ? OR email LIKE ?", q, q).
		Limit(limit).Find(&users).Error
	return users, err
}

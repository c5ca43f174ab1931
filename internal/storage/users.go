package storage

import (
	"livechat/backend/internal/models"

	"gorm.io/gorm/clause"
)

func (s *Service) CreateUser(user *models.User) error {
	return wrap("create user", s.DB.Create(user).Error)
}

func (s *Service) CreateUserIfNotExists(user *models.User) (bool, error) {
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, wrap("create user if not exists", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("email = ?", email).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "CASE WHEN role = ? THEN 0 ELSE 1 END", Vars: []interface{}{models.RoleAdmin}}}).
		First(&user).Error
	if err != nil {
		return nil, wrap("get user by email", err)
	}
	return &user, nil
}

// UpdateUser оновлює ім'я, email та хеш пароля.
func (s *Service) UpdateUser(user *models.User) error {
	res := s.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
	})
	if res.Error != nil {
		return wrap("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update user", ErrNotFound)
	}
	return nil
}

func (s *Service) HasAdmin() (bool, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, wrap("count admins", err)
	}
	return count > 0, nil
}

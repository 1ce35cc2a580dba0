package models

import (
	"strings"

	"github.com/refermark/refermark/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 首次启动时创建默认管理员。
// 已存在管理员时仅确保默认 admin 账号保有超级管理员标记。
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count > 0 {
		return ensureDefaultAdminSuper()
	}

	if username == "" {
		username = defaultAdminUsername
	}
	usedDefaultPassword := password == ""
	if usedDefaultPassword {
		password = defaultAdminPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(strings.TrimSpace(username), defaultAdminUsername),
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if usedDefaultPassword || password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "password", password)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}

func ensureDefaultAdminSuper() error {
	err := DB.Model(&Admin{}).
		Where("username = ?", defaultAdminUsername).
		Update("is_super", true).Error
	if err != nil {
		logger.Warnw("ensure_default_admin_super_failed", "error", err)
	}
	return nil
}

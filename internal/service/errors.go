package service

import "errors"

// 业务错误统一定义，handler 层按 errors.Is 映射为响应码与文案
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet policy")

	ErrBusinessProfileMissing = errors.New("business profile missing")
	ErrBusinessProfileInvalid = errors.New("business profile input invalid")
	ErrCustomerExists         = errors.New("customer already exists")
	ErrCustomerInvalid        = errors.New("customer input invalid")
	ErrCampaignInvalid        = errors.New("campaign input invalid")
	ErrCampaignNotActive      = errors.New("campaign not active")
	ErrCampaignStatusInvalid  = errors.New("campaign status transition invalid")

	ErrDuplicateConversion    = errors.New("customer already converted")
	ErrAlreadyCompleted       = errors.New("task already completed")
	ErrAlreadyClaimed         = errors.New("reward already claimed")
	ErrConversionStateInvalid = errors.New("conversion state invalid")
	ErrNotEligible            = errors.New("not enough completed conversions")
	ErrNotAuthorized          = errors.New("not authorized for referral")
	ErrCodeSpaceExhausted     = errors.New("referral code space exhausted")

	ErrIntegrationTypeInvalid = errors.New("integration type invalid")
	ErrQueueUnavailable       = errors.New("task queue unavailable")
	ErrSyncInProgress         = errors.New("integration sync in progress")
)

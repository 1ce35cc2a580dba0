package repository

import "time"

// UserListFilter 查询商家账号列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// BusinessProfileListFilter 查询商家资料列表的过滤条件
type BusinessProfileListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Industry string
}

// CustomerListFilter 查询客户列表的过滤条件。
// Source 精确匹配单一来源，Sources 匹配任一来源，两者同时给出时都会生效。
type CustomerListFilter struct {
	Page        int
	PageSize    int
	BusinessID  uint
	Keyword     string
	Source      string
	Sources     []string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CampaignListFilter 查询活动列表的过滤条件
type CampaignListFilter struct {
	Page       int
	PageSize   int
	BusinessID uint
	Keyword    string
	Status     string
	TaskType   string
}

// ReferralListFilter 查询推荐链接列表的过滤条件
type ReferralListFilter struct {
	Page       int
	PageSize   int
	CampaignID uint
	ReferrerID uint
	ActiveOnly bool
}

// ConversionListFilter 查询转化明细列表的过滤条件
type ConversionListFilter struct {
	Page          int
	PageSize      int
	ReferralID    uint
	Status        string
	UnclaimedOnly bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// IntegrationListFilter 查询集成列表的过滤条件
type IntegrationListFilter struct {
	Page       int
	PageSize   int
	BusinessID uint
	Type       string
	SyncStatus string
}

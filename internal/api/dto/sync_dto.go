package dto

// ==================== 同步相关 DTO ====================

// SyncOrdersRequest 订单同步请求
// MinCreated/MaxCreated 接受 "2006-01-02" 或 RFC3339；
// 均为空且非强制时默认同步最近 7 天
type SyncOrdersRequest struct {
	SysUserID  int64  `json:"sys_user_id" form:"sys_user_id"`
	MinCreated string `json:"min_created" form:"min_created"`
	MaxCreated string `json:"max_created" form:"max_created"`
	ForceSync  bool   `json:"force_sync" form:"force_sync"`
}

// SyncOrdersResponse 订单同步结果汇总
// Errors 是单个订单级别的失败，不代表整批失败
type SyncOrdersResponse struct {
	TotalFetched int      `json:"total_fetched"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	Linked       int      `json:"linked"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

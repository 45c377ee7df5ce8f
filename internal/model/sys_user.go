package model

// SysUser 本地用户
// 账本数据全部挂在用户维度下；登录鉴权由外层系统负责，不在本服务范围
type SysUser struct {
	BaseModel
	Username string `gorm:"size:64;uniqueIndex;not null"`
	Nickname string `gorm:"size:64"`
	Email    string `gorm:"size:100"`
}

func (SysUser) TableName() string {
	return "sys_users"
}

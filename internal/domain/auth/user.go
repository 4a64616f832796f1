package auth

import "errors"

// Role 定義系統角色。
type Role string

const (
	RoleAdmin   Role = "admin"   // 可載入資料集、執行診斷、匯出
	RoleAnalyst Role = "analyst" // 可執行診斷、匯出
	RoleViewer  Role = "viewer"  // 僅可讀取診斷結果
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User 基本帳號資料。
type User struct {
	ID       string
	Email    string
	Name     string
	Role     Role
	Status   Status
	Password string // 雜湊後密碼
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

package auth

import (
	"context"
	"fmt"
	"strings"

	"retail-insight/internal/domain/auth"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
}

// PasswordHasher 驗證密碼。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
}

// TokenIssuer 簽發 access token。
type TokenIssuer interface {
	Issue(user auth.User) (auth.AccessToken, error)
}

// Permission 表示功能權限。
type Permission string

const (
	PermDatasetLoad  Permission = "dataset.load"
	PermDiagnoseRun  Permission = "diagnose.run"
	PermReportExport Permission = "report.export"
)

// RolePermissions 簡化權限表。
var RolePermissions = map[auth.Role][]Permission{
	auth.RoleAdmin:   {PermDatasetLoad, PermDiagnoseRun, PermReportExport},
	auth.RoleAnalyst: {PermDiagnoseRun, PermReportExport},
	auth.RoleViewer:  {PermReportExport},
}

// Allowed 檢查角色是否具備指定權限。
func Allowed(role auth.Role, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	issuer TokenIssuer
}

// NewLoginUseCase 建立登入用例。
func NewLoginUseCase(users UserRepository, hasher PasswordHasher, issuer TokenIssuer) *LoginUseCase {
	return &LoginUseCase{users: users, hasher: hasher, issuer: issuer}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	User  auth.User
	Token auth.AccessToken
}

func (u *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return out, fmt.Errorf("email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, fmt.Errorf("account disabled")
	}
	if !u.hasher.Compare(user.Password, input.Password) {
		return out, fmt.Errorf("invalid credentials")
	}

	token, err := u.issuer.Issue(user)
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

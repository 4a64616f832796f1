package auth

import "time"

// AccessToken 封裝簽發後的 access token 與效期。
type AccessToken struct {
	Token  string
	Expiry time.Time
}

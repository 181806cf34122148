package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash string     `bun:"password_hash" json:"-"`
	Name         string     `bun:"name" json:"name"`
	TokenVersion int        `bun:"token_version,notnull,default:0" json:"-"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	LastLoginAt  *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
}

type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	JTI        string    `bun:"jti,notnull" json:"jti"`
	TokenHash  string    `bun:"token_hash,notnull" json:"-"`
	DeviceInfo *string   `bun:"device_info" json:"device_info,omitempty"`
	Revoked    bool      `bun:"revoked,notnull,default:false" json:"revoked"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ExpiresAt  time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"atr-bknd/internal/auth"
	"atr-bknd/internal/config"
	"atr-bknd/internal/logger"
	"atr-bknd/internal/models"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	db   *bun.DB
	jwt  *auth.JWTManager
	cfg  *config.Config
	logr *logger.Logger
}

func NewAuthService(db *bun.DB, jwt *auth.JWTManager, cfg *config.Config, logr *logger.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, cfg: cfg, logr: logr}
}

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login authenticates against the local user table.
func (s *AuthService) Login(ctx context.Context, email, password, deviceInfo string) (*auth.TokenPair, *UserInfo, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("invalid credentials")
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" {
		return nil, nil, fmt.Errorf("account not configured for login")
	}
	if err := ComparePassword(u.PasswordHash, password); err != nil {
		return nil, nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now().UTC()
	_, _ = s.db.NewUpdate().Model((*models.User)(nil)).
		Set("last_login_at = ?", now).
		Where("id = ?", u.ID).
		Exec(ctx)

	pair, err := s.jwt.GenerateTokenPair(strconv.FormatInt(u.ID, 10), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion)
	if err != nil {
		return nil, nil, err
	}
	if err := s.storeRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp, pair.JTI, deviceInfo); err != nil {
		return nil, nil, err
	}

	return pair, &UserInfo{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// storeRefreshToken stores the refresh token hashed and enforces 2 sessions per user
func (s *AuthService) storeRefreshToken(ctx context.Context, userID int64, refreshToken string, expiresAt time.Time, jti string, deviceInfo string) error {
	now := time.Now().UTC()
	_, _ = s.db.NewDelete().Model((*models.RefreshToken)(nil)).
		Where("user_id = ? AND expires_at < ?", userID, now).
		Exec(ctx)

	var count int
	err := s.db.NewSelect().ColumnExpr("count(*)").
		Model((*models.RefreshToken)(nil)).
		Where("user_id = ? AND revoked = false AND expires_at > ?", userID, now).
		Scan(ctx, &count)
	if err == nil && count >= 2 {
		// drop oldest sessions so the new one leaves at most 2 active
		toRemove := count - 1
		_, _ = s.db.NewDelete().Model((*models.RefreshToken)(nil)).
			Where("id IN (SELECT id FROM refresh_tokens WHERE user_id = ? AND revoked = false AND expires_at > ? ORDER BY created_at ASC LIMIT ?)", userID, now, toRemove).
			Exec(ctx)
	}

	rt := models.RefreshToken{
		UserID:     userID,
		JTI:        jti,
		TokenHash:  auth.HashToken(refreshToken),
		DeviceInfo: &deviceInfo,
		Revoked:    false,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}
	_, err = s.db.NewInsert().Model(&rt).Exec(ctx)
	return err
}

// Refresh verifies the refresh JWT, matches the stored record and rotates it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, deviceInfo string) (*auth.TokenPair, error) {
	claims, err := s.jwt.VerifyToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims["typ"] != string(auth.RefreshToken) {
		return nil, fmt.Errorf("not a refresh token")
	}
	jti, ok := claims["jti"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token jti")
	}

	hashed := auth.HashToken(refreshToken)
	now := time.Now().UTC()

	var rt models.RefreshToken
	err = s.db.NewSelect().Model(&rt).
		Where("jti = ? AND token_hash = ? AND revoked = false AND expires_at > ?", jti, hashed, now).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh token not found or revoked")
	}

	var u models.User
	err = s.db.NewSelect().Model(&u).Where("id = ?", rt.UserID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}

	// rotate: revoke the old record before issuing a new pair
	_, _ = s.db.NewUpdate().Model((*models.RefreshToken)(nil)).
		Set("revoked = true").
		Where("id = ?", rt.ID).
		Exec(ctx)

	pair, err := s.jwt.GenerateTokenPair(strconv.FormatInt(u.ID, 10), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp, pair.JTI, deviceInfo); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token by JTI.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.VerifyToken(refreshToken)
	if err != nil {
		return err
	}
	jti, ok := claims["jti"].(string)
	if !ok {
		return fmt.Errorf("invalid jti")
	}
	_, err = s.db.NewUpdate().Model((*models.RefreshToken)(nil)).
		Set("revoked = true").
		Where("jti = ?", jti).
		Exec(ctx)
	return err
}

func (s *AuthService) CheckTokenVersion(ctx context.Context, userID int64, tokenVersion int) (bool, error) {
	var user models.User
	err := s.db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return false, err
	}
	return user.TokenVersion == tokenVersion, nil
}

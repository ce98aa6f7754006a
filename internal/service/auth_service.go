package service

import (
	"errors"
	"strings"
	"time"

	"github.com/pixjoin/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理端令牌服务
type AuthService struct {
	cfg config.AdminConfig
	now func() time.Time
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg config.AdminConfig) *AuthService {
	return &AuthService{cfg: cfg, now: time.Now}
}

// Enabled 未配置 jwt_secret 时管理接口整体关闭
func (s *AuthService) Enabled() bool {
	return s != nil && strings.TrimSpace(s.cfg.JWTSecret) != ""
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTClaims JWT 声明
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(username string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAdminAuthDisabled
	}
	hours := s.cfg.TokenExpireHours
	if hours <= 0 {
		hours = 12
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := JWTClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	if !s.Enabled() {
		return nil, ErrAdminAuthDisabled
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Login 管理员登录，凭据来自配置中的用户名与 bcrypt 哈希
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAdminAuthDisabled
	}
	expectedUser := strings.TrimSpace(s.cfg.Username)
	if expectedUser == "" || s.cfg.PasswordHash == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if strings.TrimSpace(username) != expectedUser {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.GenerateJWT(expectedUser)
}

package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 默认 Token 签发者
const DefaultTokenIssuer = "page-notes-service"

const (
	userTokenSubject = "user-token"
	nonceSubject     = "request-nonce"
	// ctxUserTokenKey gin.Context 中存储用户信息的键
	ctxUserTokenKey = "user_token"
)

// TokenConfig 定义 Token 管理器的配置
type TokenConfig struct {
	SecretKey   string        // JWT 签名密钥
	Expiry      time.Duration // 用户 Token 过期时间，默认 7 天
	NonceExpiry time.Duration // 请求校验令牌过期时间，默认 12 小时
	Issuer      string        // Token 签发者
}

// TokenManager 定义 Token 管理接口
type TokenManager interface {
	Generate(uid int64, nickname, ip string) (string, error)
	Parse(token string) (*UserEntity, error)
	Validate(token string) error
	// GenerateNonce issues a request-forgery token bound to uid
	GenerateNonce(uid int64) (string, time.Time, error)
	// VerifyNonce checks that the nonce is valid and was issued for uid
	VerifyNonce(nonce string, uid int64) error
	GetSecretKey() string
}

// tokenManager 实现 TokenManager 接口
type tokenManager struct {
	config TokenConfig
}

// NewTokenManager 创建一个新的 TokenManager 实例
func NewTokenManager(cfg TokenConfig) TokenManager {
	if cfg.Expiry == 0 {
		cfg.Expiry = 7 * 24 * time.Hour
	}
	if cfg.NonceExpiry == 0 {
		cfg.NonceExpiry = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultTokenIssuer
	}
	return &tokenManager{config: cfg}
}

// UserEntity 用户 Token 载荷
type UserEntity struct {
	UID      int64  `json:"uid"`
	Nickname string `json:"nickname"`
	IP       string `json:"ip"`
	jwt.RegisteredClaims
}

// NonceEntity 请求校验令牌载荷
type NonceEntity struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func signingKey(secret string) []byte {
	return []byte(secret + "_" + util.GetMachineID())
}

func nonceKey(secret string) []byte {
	return []byte(secret + "_nonce_" + util.GetMachineID())
}

func hmacKeyFunc(key []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}
}

// Generate 生成一个新的用户 Token
func (t *tokenManager) Generate(uid int64, nickname, ip string) (string, error) {
	now := time.Now()
	claims := &UserEntity{
		UID:      uid,
		Nickname: nickname,
		IP:       ip,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.config.Issuer,
			Subject:   userTokenSubject,
			ID:        strconv.FormatInt(uid, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey(t.config.SecretKey))
}

// Parse 解析用户 Token
func (t *tokenManager) Parse(token string) (*UserEntity, error) {
	return ParseTokenWithKey(token, t.config.SecretKey)
}

// Validate 验证 Token 是否有效
func (t *tokenManager) Validate(token string) error {
	_, err := t.Parse(token)
	return err
}

// GenerateNonce 为用户签发请求校验令牌
func (t *tokenManager) GenerateNonce(uid int64) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(t.config.NonceExpiry)
	claims := &NonceEntity{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.config.Issuer,
			Subject:   nonceSubject,
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(nonceKey(t.config.SecretKey))
	return signed, expiresAt, err
}

// VerifyNonce 校验请求校验令牌与用户是否匹配
func (t *tokenManager) VerifyNonce(nonce string, uid int64) error {
	if nonce == "" {
		return fmt.Errorf("empty nonce")
	}
	claims := &NonceEntity{}
	parsed, err := jwt.ParseWithClaims(nonce, claims, hmacKeyFunc(nonceKey(t.config.SecretKey)),
		jwt.WithSubject(nonceSubject),
		jwt.WithIssuer(t.config.Issuer),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid nonce")
	}
	if claims.UID != uid {
		return fmt.Errorf("nonce issued for another user")
	}
	return nil
}

// GetSecretKey 获取密钥
func (t *tokenManager) GetSecretKey() string {
	return t.config.SecretKey
}

// ParseTokenWithKey 使用指定密钥解析用户 Token
func ParseTokenWithKey(tokenString string, secretKey string) (*UserEntity, error) {
	claims := &UserEntity{}

	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKeyFunc(signingKey(secretKey)),
		jwt.WithSubject(userTokenSubject),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetUser 将用户信息写入 gin.Context
func SetUser(ctx *gin.Context, user *UserEntity) {
	ctx.Set(ctxUserTokenKey, user)
}

// GetUID extracts the user ID from the request context.
func GetUID(ctx *gin.Context) (out int64) {
	user, exist := ctx.Get(ctxUserTokenKey)
	if exist {
		if userEntity, ok := user.(*UserEntity); ok {
			out = userEntity.UID
		}
	}
	return
}

package service

import (
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/utils"
	"go.uber.org/zap"
)

// Config 服务配置
type Config struct {
	JWTSecret    string
	TokenExpiry  time.Duration
	NonceTimeout time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:    "change-me-in-production",
		TokenExpiry:  24 * time.Hour,
		NonceTimeout: 5 * time.Minute,
	}
}

// Services 服务集合
type Services struct {
	Auth AuthService
	User UserService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Manager, config *Config, log *zap.Logger) *Services {
	jwtManager := utils.NewJWTManager(config.JWTSecret, config.TokenExpiry)

	return &Services{
		Auth: NewAuthService(repos.User(), jwtManager, config.NonceTimeout, log),
		User: NewUserService(repos.User(), log),
	}
}

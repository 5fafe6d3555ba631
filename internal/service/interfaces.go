package service

import (
	"context"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/utils"
)

// AuthService 认证服务接口。
// 钱包签名登录：先领取一次性随机数，用钱包私钥签名后换取会话令牌。
type AuthService interface {
	// GenerateNonce 为钱包地址签发一次性登录随机数
	GenerateNonce(ctx context.Context, walletAddress string) (*NonceResponse, error)
	// Authenticate 验证钱包对随机数消息的签名并签发会话令牌
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error)
	// ValidateToken 验证会话令牌
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
}

// UserService 玩家服务接口
type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	UpdateNickname(ctx context.Context, userID uint, nickname string) error
	GetLeaderboard(ctx context.Context, limit int) ([]*models.User, error)
	GetUserStats(ctx context.Context, userID uint) (*UserStats, error)
}

// NonceResponse 登录随机数响应
type NonceResponse struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`    // 待签名的完整消息
	ExpiresIn int64  `json:"expires_in"` // 秒
}

// AuthRequest 登录请求：钱包地址与对消息的base58签名
type AuthRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// AuthResponse 登录响应
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"` // 秒
	TokenType string       `json:"token_type"`
}

// UserStats 玩家战绩统计
type UserStats struct {
	MatchesWon  int     `json:"matches_won"`
	MatchesLost int     `json:"matches_lost"`
	TotalPlayed int     `json:"total_played"`
	WinRate     float64 `json:"win_rate"`
}

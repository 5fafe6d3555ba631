package service

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// nonceMessageFormat 待签名消息模板。客户端对完整消息签名。
const nonceMessageFormat = "rps-arena login\nnonce: %s"

// nonceEntry 一次性登录随机数
type nonceEntry struct {
	nonce     string
	expiresAt time.Time
}

// authService 认证服务实现。
// 随机数是一次性的：验签成功即作废，过期的惰性清理。
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	nonceTTL   time.Duration
	log        *zap.Logger

	mu     sync.Mutex
	nonces map[string]nonceEntry // wallet -> nonce
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository, jwtManager *utils.JWTManager, nonceTTL time.Duration, log *zap.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		nonceTTL:   nonceTTL,
		log:        log,
		nonces:     make(map[string]nonceEntry),
	}
}

// decodeWallet 校验并解码base58钱包地址为ed25519公钥
func decodeWallet(walletAddress string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(walletAddress)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, apperrors.Newf(apperrors.ErrInvalidWalletAddress, "wallet=%s", walletAddress)
	}
	return ed25519.PublicKey(raw), nil
}

// GenerateNonce 为钱包地址签发一次性登录随机数
func (s *authService) GenerateNonce(ctx context.Context, walletAddress string) (*NonceResponse, error) {
	if _, err := decodeWallet(walletAddress); err != nil {
		return nil, err
	}

	nonce := uuid.NewString()
	s.mu.Lock()
	s.nonces[walletAddress] = nonceEntry{
		nonce:     nonce,
		expiresAt: time.Now().Add(s.nonceTTL),
	}
	s.mu.Unlock()

	s.log.Debug("登录随机数签发", zap.String("wallet", walletAddress))
	return &NonceResponse{
		Nonce:     nonce,
		Message:   fmt.Sprintf(nonceMessageFormat, nonce),
		ExpiresIn: int64(s.nonceTTL.Seconds()),
	}, nil
}

// takeNonce 取出并作废钱包的随机数
func (s *authService) takeNonce(walletAddress string) (nonceEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.nonces[walletAddress]
	if ok {
		delete(s.nonces, walletAddress)
	}
	return entry, ok
}

// Authenticate 验证钱包签名并签发会话令牌。
// 验签失败不归还随机数，客户端须重新领取。
func (s *authService) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	pubKey, err := decodeWallet(req.WalletAddress)
	if err != nil {
		return nil, err
	}

	entry, ok := s.takeNonce(req.WalletAddress)
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, apperrors.New(apperrors.ErrNonceExpired)
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return nil, apperrors.New(apperrors.ErrInvalidSignature, "签名格式错误")
	}

	message := []byte(fmt.Sprintf(nonceMessageFormat, entry.nonce))
	if !ed25519.Verify(pubKey, message, signature) {
		s.log.Warn("钱包签名验证失败", zap.String("wallet", req.WalletAddress))
		return nil, apperrors.New(apperrors.ErrInvalidSignature)
	}

	user, err := s.userRepo.GetOrCreateByWallet(ctx, req.WalletAddress)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.WalletAddress)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrAuthentication)
	}

	s.log.Info("玩家登录",
		zap.Uint("user_id", user.ID),
		zap.String("wallet", user.WalletAddress),
	)
	return &AuthResponse{
		User:      user,
		Token:     token,
		ExpiresIn: int64(s.jwtManager.GetTokenExpiry().Seconds()),
		TokenType: "Bearer",
	}, nil
}

// ValidateToken 验证会话令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if err == utils.ErrExpiredToken {
			return nil, apperrors.New(apperrors.ErrTokenExpired)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}
	return claims, nil
}

package service

import (
	"context"
	"strings"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"go.uber.org/zap"
)

// 昵称长度限制
const maxNicknameLength = 32

// userService 玩家服务实现
type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

// NewUserService 创建玩家服务
func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

// GetUserByID 根据ID查询玩家
func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	return user, nil
}

// GetUserByWallet 根据钱包地址查询玩家
func (s *userService) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	user, err := s.userRepo.FindByWalletAddress(ctx, walletAddress)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	return user, nil
}

// UpdateNickname 修改昵称
func (s *userService) UpdateNickname(ctx context.Context, userID uint, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || len(nickname) > maxNicknameLength {
		return apperrors.Newf(apperrors.ErrInvalidParam, "昵称长度须在1到%d之间", maxNicknameLength)
	}

	if err := s.userRepo.UpdateNickname(ctx, userID, nickname); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}

	s.log.Info("玩家修改昵称", zap.Uint("user_id", userID), zap.String("nickname", nickname))
	return nil
}

// GetLeaderboard 按胜场排名的排行榜
func (s *userService) GetLeaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	users, err := s.userRepo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return users, nil
}

// GetUserStats 玩家战绩统计
func (s *userService) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	return &UserStats{
		MatchesWon:  user.MatchesWon,
		MatchesLost: user.MatchesLost,
		TotalPlayed: user.TotalMatches(),
		WinRate:     user.WinRate(),
	}, nil
}

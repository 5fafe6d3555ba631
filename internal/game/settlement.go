package game

import (
	"context"
	"fmt"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// settlement 资金结算辅助：每笔发放先落审计流水，再走链上网关。
// 链上失败只标记流水为failed留给对账重试，不回滚对局状态。
type settlement struct {
	repos   *repository.Manager
	gateway solana.Gateway
	bus     *EventBus
	log     *zap.Logger
}

// newOrderNo 生成账务流水的唯一订单号
func newOrderNo(txType string) string {
	return fmt.Sprintf("%s-%s", txType, uuid.NewString())
}

// issue 创建流水记录并发起链上转账。
// 返回的错误只表示链上发放失败，流水已落库，可由对账任务重试。
func (s *settlement) issue(ctx context.Context, record *models.StakeTransaction, toWallet string) error {
	if record.OrderNo == "" {
		record.OrderNo = newOrderNo(record.Type)
	}
	record.Status = models.StakeTxStatusPending

	if err := s.repos.StakeTransaction().Create(ctx, record); err != nil {
		return err
	}

	txHash, err := s.gateway.IssuePayout(ctx, toWallet, record.AmountLamports)
	if err != nil {
		if markErr := s.repos.StakeTransaction().MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.log.Error("流水标记失败出错",
				zap.Uint("stake_tx_id", record.ID),
				zap.Error(markErr),
			)
		}
		s.log.Error("链上发放失败，流水待对账重试",
			zap.String("order_no", record.OrderNo),
			zap.String("type", record.Type),
			zap.String("to", toWallet),
			zap.Int64("lamports", record.AmountLamports),
			zap.Error(err),
		)
		s.bus.Publish(EventStake, record.ID, ChangeUpdated, record)
		return err
	}

	if err := s.repos.StakeTransaction().MarkConfirmed(ctx, record.ID, txHash); err != nil {
		return err
	}

	s.log.Info("链上发放完成",
		zap.String("order_no", record.OrderNo),
		zap.String("type", record.Type),
		zap.String("to", toWallet),
		zap.Int64("lamports", record.AmountLamports),
		zap.String("tx_hash", txHash),
	)
	s.bus.Publish(EventStake, record.ID, ChangeUpdated, record)
	return nil
}

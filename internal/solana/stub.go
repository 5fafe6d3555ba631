package solana

import (
	"context"
	"fmt"
	"sync"
)

// StubGateway 测试用的内存网关：不访问链上，记录所有调用
type StubGateway struct {
	mu sync.Mutex

	// VerifyErr 非空时VerifyStake返回该错误
	VerifyErr error
	// PayoutErr 非空时IssuePayout返回该错误
	PayoutErr error

	vault       string
	payoutSeq   int
	VerifyCalls []VerifyCall
	PayoutCalls []PayoutCall
}

// VerifyCall 一次质押验证调用的记录
type VerifyCall struct {
	TxHash      string
	FromAddress string
	Lamports    int64
}

// PayoutCall 一次发放调用的记录
type PayoutCall struct {
	ToAddress string
	Lamports  int64
}

// NewStubGateway 创建测试网关
func NewStubGateway(vaultAddress string) *StubGateway {
	return &StubGateway{vault: vaultAddress}
}

// VerifyStake 记录调用并返回预设结果
func (s *StubGateway) VerifyStake(ctx context.Context, txHash, fromAddress string, lamports int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VerifyCalls = append(s.VerifyCalls, VerifyCall{TxHash: txHash, FromAddress: fromAddress, Lamports: lamports})
	return s.VerifyErr
}

// IssuePayout 记录调用并返回合成的交易签名
func (s *StubGateway) IssuePayout(ctx context.Context, toAddress string, lamports int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PayoutErr != nil {
		return "", s.PayoutErr
	}
	s.payoutSeq++
	s.PayoutCalls = append(s.PayoutCalls, PayoutCall{ToAddress: toAddress, Lamports: lamports})
	return fmt.Sprintf("stub-payout-%d", s.payoutSeq), nil
}

// VaultAddress 金库地址
func (s *StubGateway) VaultAddress() string {
	return s.vault
}

// Payouts 返回已记录的发放调用副本
func (s *StubGateway) Payouts() []PayoutCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PayoutCall, len(s.PayoutCalls))
	copy(out, s.PayoutCalls)
	return out
}

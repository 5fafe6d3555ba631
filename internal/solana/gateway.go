package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/config"
	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// Gateway 链上账务网关接口
//
// 所有质押与发放都经过这里：验证玩家向金库的转账，
// 以及从金库向玩家发放奖金或退款。
type Gateway interface {
	// VerifyStake 验证一笔质押转账：fromAddress向金库转入恰好lamports
	VerifyStake(ctx context.Context, txHash, fromAddress string, lamports int64) error
	// IssuePayout 从金库向toAddress发放lamports，返回交易签名
	IssuePayout(ctx context.Context, toAddress string, lamports int64) (string, error)
	// VaultAddress 金库地址
	VaultAddress() string
}

// rpcGateway 基于Solana JSON-RPC的网关实现
type rpcGateway struct {
	endpoint     string
	vaultAddress string
	vaultKey     ed25519.PrivateKey
	commitment   string
	client       *http.Client
	log          *zap.Logger

	requestID atomic.Int64
}

// NewGateway 创建链上账务网关
func NewGateway(cfg *config.SolanaConfig) (Gateway, error) {
	if cfg.RPCEndpoint == "" {
		return nil, apperrors.New(apperrors.ErrConfigMissing, "solana.rpc_endpoint未配置")
	}
	if _, err := base58.Decode(cfg.VaultAddress); err != nil || cfg.VaultAddress == "" {
		return nil, apperrors.New(apperrors.ErrInvalidWalletAddress, "金库地址无效")
	}

	g := &rpcGateway{
		endpoint:     cfg.RPCEndpoint,
		vaultAddress: cfg.VaultAddress,
		commitment:   cfg.Commitment,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: logger.WithModule("ledger"),
	}
	if g.commitment == "" {
		g.commitment = "confirmed"
	}

	// 发放需要金库私钥，只做验证的部署可以不配
	if cfg.VaultPrivateKey != "" {
		keyBytes, err := base58.Decode(cfg.VaultPrivateKey)
		if err != nil || len(keyBytes) != ed25519.PrivateKeySize {
			return nil, apperrors.New(apperrors.ErrConfigValidate, "金库私钥格式无效")
		}
		g.vaultKey = ed25519.PrivateKey(keyBytes)
	}

	return g, nil
}

// VaultAddress 金库地址
func (g *rpcGateway) VaultAddress() string {
	return g.vaultAddress
}

// rpcRequest JSON-RPC请求体
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse JSON-RPC响应体
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError JSON-RPC错误
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc错误 %d: %s", e.Code, e.Message)
}

// call 执行一次JSON-RPC调用
func (g *rpcGateway) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      g.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("rpc请求失败",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return apperrors.Wrap(err, apperrors.ErrLedgerTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Newf(apperrors.ErrLedgerUnavailable, "rpc节点返回HTTP %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return apperrors.Wrap(err, apperrors.ErrLedgerUnavailable)
	}
	if rpcResp.Error != nil {
		return apperrors.Wrap(rpcResp.Error, apperrors.ErrLedgerUnavailable)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return apperrors.Wrap(err, apperrors.ErrLedgerUnavailable)
		}
	}
	return nil
}

// parsedTransaction getTransaction(jsonParsed)响应中我们关心的部分
type parsedTransaction struct {
	Meta *struct {
		Err interface{} `json:"err"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			Instructions []parsedInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

// parsedInstruction jsonParsed编码下的指令
type parsedInstruction struct {
	Program string `json:"program"`
	Parsed  *struct {
		Type string `json:"type"`
		Info struct {
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Lamports    int64  `json:"lamports"`
		} `json:"info"`
	} `json:"parsed"`
}

// VerifyStake 验证质押转账
func (g *rpcGateway) VerifyStake(ctx context.Context, txHash, fromAddress string, lamports int64) error {
	if _, err := base58.Decode(fromAddress); err != nil {
		return apperrors.New(apperrors.ErrInvalidWalletAddress, fromAddress)
	}

	var tx *parsedTransaction
	err := g.call(ctx, "getTransaction", []interface{}{
		txHash,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     g.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}, &tx)
	if err != nil {
		return err
	}
	if tx == nil {
		return apperrors.New(apperrors.ErrStakeVerificationFailed, "交易未找到或尚未确认")
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return apperrors.New(apperrors.ErrStakeVerificationFailed, "交易在链上执行失败")
	}

	// 在指令中查找 fromAddress -> 金库 的系统转账
	for _, inst := range tx.Transaction.Message.Instructions {
		if inst.Program != "system" || inst.Parsed == nil || inst.Parsed.Type != "transfer" {
			continue
		}
		info := inst.Parsed.Info
		if info.Source != fromAddress || info.Destination != g.vaultAddress {
			continue
		}
		// 金额必须严格等于大厅质押额，多转的部分无法退回
		if info.Lamports != lamports {
			return apperrors.Newf(apperrors.ErrStakeAmountMismatch,
				"期望 %d lamports，实际 %d", lamports, info.Lamports)
		}
		g.log.Info("质押验证通过",
			zap.String("tx_hash", txHash),
			zap.String("from", fromAddress),
			zap.Int64("lamports", info.Lamports),
		)
		return nil
	}

	return apperrors.New(apperrors.ErrStakeVerificationFailed, "交易中没有指向金库的转账指令")
}

// latestBlockhashResult getLatestBlockhash响应
type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// IssuePayout 从金库发放lamports
func (g *rpcGateway) IssuePayout(ctx context.Context, toAddress string, lamports int64) (string, error) {
	if g.vaultKey == nil {
		return "", apperrors.New(apperrors.ErrConfigMissing, "未配置金库私钥，无法发放")
	}
	if _, err := base58.Decode(toAddress); err != nil {
		return "", apperrors.New(apperrors.ErrInvalidWalletAddress, toAddress)
	}
	if lamports <= 0 {
		return "", apperrors.Newf(apperrors.ErrInvalidParam, "发放金额必须为正数: %d", lamports)
	}

	var blockhash latestBlockhashResult
	err := g.call(ctx, "getLatestBlockhash", []interface{}{
		map[string]interface{}{"commitment": g.commitment},
	}, &blockhash)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrPayoutFailed)
	}

	signed, err := buildTransferTransaction(g.vaultKey, g.vaultAddress, toAddress, lamports, blockhash.Value.Blockhash)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrPayoutFailed)
	}

	var signature string
	err = g.call(ctx, "sendTransaction", []interface{}{
		signed,
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": g.commitment,
		},
	}, &signature)
	if err != nil {
		logger.LogPayoutEvent(toAddress, lamports, "", err)
		return "", apperrors.Wrap(err, apperrors.ErrPayoutFailed)
	}

	logger.LogPayoutEvent(toAddress, lamports, signature, nil)
	return signature, nil
}

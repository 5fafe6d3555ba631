package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// 系统程序地址与transfer指令编号，见Solana系统程序定义
const (
	systemProgramID       = "11111111111111111111111111111111"
	systemInstructionXfer = 2
)

// buildTransferTransaction 构造并签名一笔金库到收款人的系统转账，
// 返回base64编码的完整交易，可直接传给sendTransaction。
//
// 旧版（legacy）交易格式：
//
//	签名数量(shortvec) || 签名... || 消息
//	消息 = 头部(3字节) || 账户表(shortvec) || 最近区块哈希(32字节) || 指令表(shortvec)
func buildTransferTransaction(vaultKey ed25519.PrivateKey, fromAddress, toAddress string, lamports int64, recentBlockhash string) (string, error) {
	fromKey, err := base58.Decode(fromAddress)
	if err != nil || len(fromKey) != 32 {
		return "", fmt.Errorf("无效的付款地址: %s", fromAddress)
	}
	toKey, err := base58.Decode(toAddress)
	if err != nil || len(toKey) != 32 {
		return "", fmt.Errorf("无效的收款地址: %s", toAddress)
	}
	programKey, _ := base58.Decode(systemProgramID)
	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return "", fmt.Errorf("无效的区块哈希: %s", recentBlockhash)
	}

	// 指令数据：4字节小端指令编号 + 8字节小端lamports
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemInstructionXfer)
	binary.LittleEndian.PutUint64(data[4:12], uint64(lamports))

	// 消息头：1个需要签名的账户（金库），0个只读签名账户，1个只读非签名账户（系统程序）
	var message []byte
	message = append(message, 1, 0, 1)

	// 账户表：金库（签名者、可写）、收款人（可写）、系统程序（只读）
	message = appendShortvecLen(message, 3)
	message = append(message, fromKey...)
	message = append(message, toKey...)
	message = append(message, programKey...)

	message = append(message, blockhash...)

	// 指令表：单条transfer指令，账户索引指向上面的账户表
	message = appendShortvecLen(message, 1)
	message = append(message, 2)            // 程序在账户表中的索引
	message = appendShortvecLen(message, 2) // 指令涉及的账户数
	message = append(message, 0, 1)         // from, to
	message = appendShortvecLen(message, len(data))
	message = append(message, data...)

	signature := ed25519.Sign(vaultKey, message)

	var tx []byte
	tx = appendShortvecLen(tx, 1)
	tx = append(tx, signature...)
	tx = append(tx, message...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// appendShortvecLen 追加compact-u16长度前缀（shortvec编码）
func appendShortvecLen(buf []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(buf, byte(n))
		}
		buf = append(buf, byte(n&0x7f)|0x80)
		n >>= 7
	}
}

package models

// User 玩家信息表，以Solana钱包地址为稳定身份
type User struct {
	BaseModel
	WalletAddress string `gorm:"uniqueIndex;size:64;not null" json:"wallet_address"` // base58编码的ed25519公钥
	Nickname      string `gorm:"size:100" json:"nickname"`
	MatchesWon    int    `gorm:"default:0" json:"matches_won"`
	MatchesLost   int    `gorm:"default:0" json:"matches_lost"`
}

// TotalMatches 累计完赛场次
func (u *User) TotalMatches() int {
	return u.MatchesWon + u.MatchesLost
}

// WinRate 胜率（没有完赛记录时返回0）
func (u *User) WinRate() float64 {
	total := u.TotalMatches()
	if total == 0 {
		return 0
	}
	return float64(u.MatchesWon) / float64(total)
}

package game

import (
	"context"
	"testing"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLobbyValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 1)

	// 人数只允许2/4/8
	for _, size := range []int{0, 1, 3, 5, 6, 16} {
		_, err := env.lobbies.CreateLobby(ctx, users[0].ID, "bad", env.rules.MinStakeLamports, size)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidLobbySize), "size=%d", size)
	}

	// 质押额不能低于下限
	_, err := env.lobbies.CreateLobby(ctx, users[0].ID, "low", env.rules.MinStakeLamports-1, 2)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))
}

func TestCreateLobbyCreatorAutoJoins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 1)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅A", 500000000, 2)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyStatusWaiting, lobby.Status)
	assert.Equal(t, 1, lobby.CurrentPlayers)

	participant, err := env.repos.LobbyParticipant().Find(ctx, lobby.ID, users[0].ID)
	require.NoError(t, err)
	assert.False(t, participant.HasStaked)
}

func TestCreateLobbyRejectsPlayerAlreadyInLobby(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 1)

	_, err := env.lobbies.CreateLobby(ctx, users[0].ID, "第一个", 500000000, 2)
	require.NoError(t, err)

	_, err = env.lobbies.CreateLobby(ctx, users[0].ID, "第二个", 500000000, 2)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyInGame))
}

func TestJoinLobbyFullAndClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 4)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "小房间", 500000000, 2)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[1].ID)
	require.NoError(t, err)

	// 满员后拒绝加入
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[2].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrLobbyFull))

	// 解散后拒绝加入
	require.NoError(t, env.lobbies.CloseLobby(ctx, lobby.ID, users[0].ID))
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[3].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrLobbyClosed))
}

// 两名玩家各质押500000000 lamports后大厅立即转换为比赛：
// 大厅closed、比赛in_progress、第1回合等待出招、双方席位就绪。
func TestTwoPlayerLobbyConvertsToMatch(t *testing.T) {
	env := newTestEnv(t)

	users, gameCtx := env.setupConvertedLobby(t, 500000000, 2)

	require.Equal(t, GameKindOneOnOne, gameCtx.Kind)
	require.NotNil(t, gameCtx.Match)
	match := gameCtx.Match

	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Equal(t, int64(500000000), match.StakeAmount)
	assert.Equal(t, int64(1000000000), match.TotalPrizePool)
	require.Len(t, match.Participants, 2)
	assert.Equal(t, users[0].ID, match.Participants[0].UserID)
	assert.Equal(t, users[1].ID, match.Participants[1].UserID)

	require.Len(t, match.Rounds, 1)
	assert.Equal(t, 1, match.Rounds[0].RoundNumber)
	assert.Equal(t, models.RoundStatusAwaitingMoves, match.Rounds[0].Status)

	// 来源大厅已关闭
	var lobby models.Lobby
	require.NoError(t, env.db.First(&lobby, "creator_id = ?", users[0].ID).Error)
	assert.Equal(t, models.LobbyStatusClosed, lobby.Status)

	// 双方的质押都经过了链上验证
	assert.Len(t, env.gateway.VerifyCalls, 2)
}

func TestConversionHappensExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	users, gameCtx := env.setupConvertedLobby(t, 500000000, 2)
	require.NotNil(t, gameCtx)

	var lobby models.Lobby
	require.NoError(t, env.db.First(&lobby, "creator_id = ?", users[0].ID).Error)

	// 完整性检查重跑不会再次转换
	again, err := env.lobbies.checkConversion(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	var matchCount int64
	require.NoError(t, env.db.Model(&models.Match{}).Count(&matchCount).Error)
	assert.Equal(t, int64(1), matchCount)
}

func TestSubmitStakeIdempotentSameHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 2)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 2)
	require.NoError(t, err)

	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "hash-1")
	require.NoError(t, err)

	// 相同交易哈希的重试是幂等成功
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "hash-1")
	assert.NoError(t, err)

	// 不同哈希的重复质押被拒绝
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "hash-2")
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyStaked))

	// 只验证了一次
	assert.Len(t, env.gateway.VerifyCalls, 1)
}

func TestSubmitStakeVerificationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 2)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 2)
	require.NoError(t, err)

	env.gateway.VerifyErr = apperrors.New(apperrors.ErrStakeVerificationFailed)
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "bad-hash")
	require.Error(t, err)

	// 质押未生效，流水标记为失败留待重试
	participant, err := env.repos.LobbyParticipant().Find(ctx, lobby.ID, users[0].ID)
	require.NoError(t, err)
	assert.False(t, participant.HasStaked)

	var record models.StakeTransaction
	require.NoError(t, env.db.First(&record, "lobby_id = ?", lobby.ID).Error)
	assert.Equal(t, models.StakeTxStatusFailed, record.Status)
	assert.NotEmpty(t, record.FailReason)

	// 失败后允许用正确的交易重试
	env.gateway.VerifyErr = nil
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "good-hash")
	assert.NoError(t, err)
}

func TestWithdrawRefundsStake(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 2)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 2)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[1].ID)
	require.NoError(t, err)
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[1].ID, "hash-w")
	require.NoError(t, err)

	// 未质押的玩家不能撤出
	err = env.lobbies.Withdraw(ctx, lobby.ID, users[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotStaked))

	require.NoError(t, env.lobbies.Withdraw(ctx, lobby.ID, users[1].ID))

	payouts := env.gateway.Payouts()
	require.Len(t, payouts, 1)
	assert.Equal(t, users[1].WalletAddress, payouts[0].ToAddress)
	assert.Equal(t, int64(500000000), payouts[0].Lamports)

	// 席位已释放
	_, err = env.repos.LobbyParticipant().Find(ctx, lobby.ID, users[1].ID)
	assert.Error(t, err)

	var refund models.StakeTransaction
	require.NoError(t, env.db.
		First(&refund, "lobby_id = ? AND type = ?", lobby.ID, models.StakeTxTypeRefund).Error)
	assert.Equal(t, models.StakeTxStatusConfirmed, refund.Status)
}

func TestWithdrawAfterConversionClaimRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 2)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 2)
	require.NoError(t, err)
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[0].ID, "hash-c")
	require.NoError(t, err)

	// 转换已赢得waiting→starting，撤出必须落空：
	// 质押跟随对局，不能既退款又入场
	require.NoError(t, env.db.Model(&models.Lobby{}).
		Where("id = ?", lobby.ID).
		Update("status", models.LobbyStatusStarting).Error)

	err = env.lobbies.Withdraw(ctx, lobby.ID, users[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrLobbyClosed))

	// 席位保留，没有发出退款
	_, err = env.repos.LobbyParticipant().Find(ctx, lobby.ID, users[0].ID)
	assert.NoError(t, err)
	assert.Empty(t, env.gateway.Payouts())
}

func TestConvertToMatchRequiresTwoSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 1)

	// 参与者不足两人时转换报错而不是崩溃
	lobby := &models.Lobby{CreatorID: users[0].ID, StakeAmount: 500000000, MaxPlayers: 2}
	_, err := env.lobbies.convertToMatch(ctx, lobby, []*models.LobbyParticipant{
		{LobbyID: lobby.ID, UserID: users[0].ID},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrMatchNotReady))
}

func TestKickOnlyUnstaked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 3)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 4)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[1].ID)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[2].ID)
	require.NoError(t, err)
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[1].ID, "hash-k")
	require.NoError(t, err)

	// 非创建者不能踢人
	err = env.lobbies.Kick(ctx, lobby.ID, users[1].ID, users[2].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotLobbyCreator))

	// 已质押的玩家不能被踢
	err = env.lobbies.Kick(ctx, lobby.ID, users[0].ID, users[1].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrCannotKickStaked))

	// 未质押的玩家可以被踢
	require.NoError(t, env.lobbies.Kick(ctx, lobby.ID, users[0].ID, users[2].ID))
	_, err = env.repos.LobbyParticipant().Find(ctx, lobby.ID, users[2].ID)
	assert.Error(t, err)

	updated, err := env.repos.Lobby().FindByID(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentPlayers)
}

func TestCloseLobbyRefundsAllStaked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 4)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 4)
	require.NoError(t, err)
	for _, u := range users[1:] {
		_, err = env.lobbies.JoinLobby(ctx, lobby.ID, u.ID)
		require.NoError(t, err)
	}
	for i, u := range users[:3] {
		_, err = env.lobbies.SubmitStake(ctx, lobby.ID, u.ID, testTxHash(i))
		require.NoError(t, err)
	}

	require.NoError(t, env.lobbies.CloseLobby(ctx, lobby.ID, users[0].ID))

	updated, err := env.repos.Lobby().FindByID(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyStatusDisbanded, updated.Status)

	// 三名已质押玩家各收到一笔全额退款，未质押的第四人没有
	payouts := env.gateway.Payouts()
	require.Len(t, payouts, 3)
	for _, p := range payouts {
		assert.Equal(t, int64(500000000), p.Lamports)
	}
}

func TestLeaveUnstakedAndCreatorLeaveDisbands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, 3)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "大厅", 500000000, 4)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[1].ID)
	require.NoError(t, err)
	_, err = env.lobbies.JoinLobby(ctx, lobby.ID, users[2].ID)
	require.NoError(t, err)
	_, err = env.lobbies.SubmitStake(ctx, lobby.ID, users[2].ID, "hash-l")
	require.NoError(t, err)

	// 未质押玩家直接离开
	require.NoError(t, env.lobbies.Leave(ctx, lobby.ID, users[1].ID))

	// 已质押玩家必须走撤出流程
	err = env.lobbies.Leave(ctx, lobby.ID, users[2].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyStaked))

	// 创建者离开等同解散
	require.NoError(t, env.lobbies.Leave(ctx, lobby.ID, users[0].ID))
	updated, err := env.repos.Lobby().FindByID(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyStatusDisbanded, updated.Status)
}

func TestFourPlayerLobbyConvertsToTournament(t *testing.T) {
	env := newTestEnv(t)

	users, gameCtx := env.setupConvertedLobby(t, 500000000, 4)

	require.Equal(t, GameKindBracket, gameCtx.Kind)
	require.NotNil(t, gameCtx.Tournament)
	tournament := gameCtx.Tournament

	assert.Equal(t, models.TournamentStatusWaiting, tournament.Status)
	assert.Equal(t, users[0].ID, tournament.CreatorID)
	assert.Equal(t, int64(2000000000), tournament.PrizePool)

	// 参与者按加入顺序编号
	participants, err := env.repos.TournamentParticipant().ListByTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 4)
	for i, p := range participants {
		assert.Equal(t, users[i].ID, p.UserID)
		assert.Equal(t, i+1, p.JoinOrder)
	}

	// 转换后大厅关闭并指向锦标赛
	var lobby models.Lobby
	require.NoError(t, env.db.First(&lobby, "creator_id = ?", users[0].ID).Error)
	assert.Equal(t, models.LobbyStatusClosed, lobby.Status)
	require.NotNil(t, lobby.TournamentID)
	assert.Equal(t, tournament.ID, *lobby.TournamentID)
}

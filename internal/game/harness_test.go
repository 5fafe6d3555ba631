package game

import (
	"context"
	"testing"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv 引擎测试环境：内存数据库 + 桩网关 + 同步总线。
// 定时器时限设置为1小时，测试通过直接调用超时/结算路径驱动流程。
type testEnv struct {
	db          *gorm.DB
	repos       *repository.Manager
	gateway     *solana.StubGateway
	bus         *EventBus
	timers      *TimerService
	rules       Rules
	matches     *MatchEngine
	tournaments *TournamentEngine
	lobbies     *LobbyManager
}

func newTestEnv(t *testing.T) *testEnv {
	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	repos := repository.NewManager(db)
	gateway := solana.NewStubGateway("FvaultFvaultFvaultFvaultFvaultFvaultFvaultF")
	bus := NewEventBus()
	timers := NewTimerService()
	t.Cleanup(timers.Stop)

	rules := DefaultRules()
	rules.RoundTimeout = time.Hour
	rules.ResultsDisplayDelay = time.Hour

	matches := NewMatchEngine(repos, gateway, bus, timers, rules)
	tournaments := NewTournamentEngine(repos, gateway, bus, matches, rules)
	t.Cleanup(tournaments.Close)
	lobbies := NewLobbyManager(repos, gateway, bus, matches, rules)

	return &testEnv{
		db:          db,
		repos:       repos,
		gateway:     gateway,
		bus:         bus,
		timers:      timers,
		rules:       rules,
		matches:     matches,
		tournaments: tournaments,
		lobbies:     lobbies,
	}
}

// stakeAll 全员提交质押，返回最后一次提交产生的对局上下文
func (env *testEnv) stakeAll(t *testing.T, lobbyID uint, userIDs []uint) *GameContext {
	ctx := context.Background()
	var gameCtx *GameContext
	for i, userID := range userIDs {
		result, err := env.lobbies.SubmitStake(ctx, lobbyID, userID, testTxHash(i))
		require.NoError(t, err)
		gameCtx = result
	}
	return gameCtx
}

func testTxHash(i int) string {
	return "tx-hash-" + string(rune('a'+i))
}

// findParticipants 按座位顺序读取比赛参与者
func (env *testEnv) findParticipants(t *testing.T, matchID uint) []*models.MatchParticipant {
	participants, err := env.repos.MatchParticipant().ListByMatch(context.Background(), matchID)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	return participants
}

// winRound 让指定座位的玩家赢下当前回合（石头对剪刀）
func (env *testEnv) winRound(t *testing.T, matchID uint, winnerPosition int) {
	ctx := context.Background()
	participants := env.findParticipants(t, matchID)

	current, err := env.repos.GameRound().FindCurrent(ctx, matchID)
	require.NoError(t, err)
	require.NotNil(t, current)

	moves := map[int]string{
		models.MatchPositionPlayer1: string(MoveScissors),
		models.MatchPositionPlayer2: string(MoveScissors),
	}
	moves[winnerPosition] = string(MoveRock)

	for _, p := range participants {
		_, err := env.matches.SubmitMove(ctx, matchID, p.UserID, current.RoundNumber, moves[p.Position])
		require.NoError(t, err)
	}
}

// tieRound 双方出同样的招，当前回合平局
func (env *testEnv) tieRound(t *testing.T, matchID uint) {
	ctx := context.Background()
	participants := env.findParticipants(t, matchID)

	current, err := env.repos.GameRound().FindCurrent(ctx, matchID)
	require.NoError(t, err)
	require.NotNil(t, current)

	for _, p := range participants {
		_, err := env.matches.SubmitMove(ctx, matchID, p.UserID, current.RoundNumber, string(MovePaper))
		require.NoError(t, err)
	}
}

// playMatchToWin 指定座位连赢三局结束比赛
func (env *testEnv) playMatchToWin(t *testing.T, matchID uint, winnerPosition int) {
	for i := 0; i < env.rules.WinsToTake; i++ {
		env.winRound(t, matchID, winnerPosition)
	}
}

// setupConvertedLobby 建立满员全质押的大厅并返回转换结果
func (env *testEnv) setupConvertedLobby(t *testing.T, stake int64, size int) ([]models.User, *GameContext) {
	ctx := context.Background()
	users := repository.SeedTestUsers(t, env.db, size)

	lobby, err := env.lobbies.CreateLobby(ctx, users[0].ID, "测试大厅", stake, size)
	require.NoError(t, err)

	for _, u := range users[1:] {
		_, err := env.lobbies.JoinLobby(ctx, lobby.ID, u.ID)
		require.NoError(t, err)
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	gameCtx := env.stakeAll(t, lobby.ID, ids)
	require.NotNil(t, gameCtx)
	return users, gameCtx
}

package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/service"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	ws "github.com/degen-space-organization/solana-game-sub000/internal/websocket"
)

// apiTestEnv HTTP集成测试环境：完整路由 + 内存数据库 + 桩网关
type apiTestEnv struct {
	engine  *gin.Engine
	gateway *solana.StubGateway
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	gin.SetMode(gin.TestMode)

	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	repos := repository.NewManager(db)
	log := zap.NewNop()
	services := service.NewServices(repos, &service.Config{
		JWTSecret:    "integration-test-secret",
		TokenExpiry:  time.Hour,
		NonceTimeout: time.Minute,
	}, log)

	gateway := solana.NewStubGateway("FvaultFvaultFvaultFvaultFvaultFvaultFvaultF")
	bus := game.NewEventBus()
	timers := game.NewTimerService()
	t.Cleanup(timers.Stop)

	rules := game.DefaultRules()
	rules.RoundTimeout = time.Hour
	rules.ResultsDisplayDelay = time.Hour

	matches := game.NewMatchEngine(repos, gateway, bus, timers, rules)
	tournaments := game.NewTournamentEngine(repos, gateway, bus, matches, rules)
	t.Cleanup(tournaments.Close)
	lobbies := game.NewLobbyManager(repos, gateway, bus, matches, rules)

	hub := ws.NewHub(log)
	go hub.Run()
	bridge := ws.NewEventBridge(hub, bus, repos, log)
	t.Cleanup(bridge.Close)

	router := NewRouter(&Deps{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Lobbies:     lobbies,
		Matches:     matches,
		Tournaments: tournaments,
		Hub:         hub,
		Log:         log,
	})

	return &apiTestEnv{
		engine:  router.GetEngine(),
		gateway: gateway,
	}
}

// do 执行一次JSON请求
func (env *apiTestEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

// decode 解析响应体
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// authenticate 走完整的随机数-签名流程，返回会话令牌
func (env *apiTestEnv) authenticate(t *testing.T) (string, uint) {
	t.Helper()

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	wallet := base58.Encode(pubKey)

	w := env.do(t, "POST", "/api/v1/auth/nonce", "", gin.H{"wallet_address": wallet})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var nonce service.NonceResponse
	decode(t, w, &nonce)

	signature := base58.Encode(ed25519.Sign(privKey, []byte(nonce.Message)))
	w = env.do(t, "POST", "/api/v1/auth/token", "", gin.H{
		"wallet_address": wallet,
		"signature":      signature,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var auth service.AuthResponse
	decode(t, w, &auth)
	require.NotEmpty(t, auth.Token)
	require.NotNil(t, auth.User)
	return auth.Token, auth.User.ID
}

func TestHealthCheck(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp["status"])
}

func TestAuthRequiredOnGameRoutes(t *testing.T) {
	env := newAPITestEnv(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/lobbies", "/api/v1/matches/active"} {
		w := env.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// 排行榜公开
	w := env.do(t, "GET", "/api/v1/users/leaderboard", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWalletAuthFlow(t *testing.T) {
	env := newAPITestEnv(t)

	token, userID := env.authenticate(t)

	w := env.do(t, "GET", "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	decode(t, w, &user)
	assert.Equal(t, userID, user.ID)

	// 修改昵称
	w = env.do(t, "PUT", "/api/v1/users/me/nickname", token, gin.H{"nickname": "石头王"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/v1/users/me", token, nil)
	decode(t, w, &user)
	assert.Equal(t, "石头王", user.Nickname)
}

func TestFullMatchOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)

	creatorToken, creatorID := env.authenticate(t)
	joinerToken, joinerID := env.authenticate(t)
	tokens := map[uint]string{creatorID: creatorToken, joinerID: joinerToken}

	// 创建2人大厅
	w := env.do(t, "POST", "/api/v1/lobbies", creatorToken, gin.H{
		"name":           "快速对局",
		"stake_lamports": int64(500000000),
		"max_players":    2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var lobby models.Lobby
	decode(t, w, &lobby)
	require.NotZero(t, lobby.ID)

	// 第二名玩家加入
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/join", lobby.ID), joinerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 双方质押，第二笔质押触发大厅转换
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/stake", lobby.ID), creatorToken, gin.H{"tx_hash": "tx-creator"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/stake", lobby.ID), joinerToken, gin.H{"tx_hash": "tx-joiner"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var gameCtx game.GameContext
	decode(t, w, &gameCtx)
	require.Equal(t, game.GameKindOneOnOne, gameCtx.Kind)
	require.NotNil(t, gameCtx.Match)
	matchID := gameCtx.Match.ID

	// 查询比赛详情拿座位分配
	w = env.do(t, "GET", fmt.Sprintf("/api/v1/matches/%d", matchID), creatorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var match models.Match
	decode(t, w, &match)
	require.Equal(t, models.MatchStatusInProgress, match.Status)
	require.Len(t, match.Participants, 2)

	var player1, player2 uint
	for _, p := range match.Participants {
		if p.Position == models.MatchPositionPlayer1 {
			player1 = p.UserID
		} else {
			player2 = p.UserID
		}
	}

	// 已开始的比赛重复start是幂等成功；局外人无权start
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/matches/%d/start", matchID), creatorToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	outsiderToken, _ := env.authenticate(t)
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/matches/%d/start", matchID), outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 1号位连赢三回合（石头对剪刀）
	for round := 1; round <= 3; round++ {
		w = env.do(t, "POST", fmt.Sprintf("/api/v1/matches/%d/moves", matchID), tokens[player1], gin.H{
			"round_number": round,
			"move":         "rock",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, "POST", fmt.Sprintf("/api/v1/matches/%d/moves", matchID), tokens[player2], gin.H{
			"round_number": round,
			"move":         "scissors",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// 三连胜后进入结果展示期
	w = env.do(t, "GET", fmt.Sprintf("/api/v1/matches/%d", matchID), creatorToken, nil)
	decode(t, w, &match)
	assert.Equal(t, models.MatchStatusShowingResults, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, player1, *match.WinnerID)

	// 结果展示期继续出招被拒绝
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/matches/%d/moves", matchID), tokens[player1], gin.H{
		"round_number": 4,
		"move":         "rock",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitMoveValidationOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)
	token, _ := env.authenticate(t)

	// 非法出招被拒绝
	w := env.do(t, "POST", "/api/v1/matches/999/moves", token, gin.H{
		"round_number": 1,
		"move":         "lizard",
	})
	assert.NotEqual(t, http.StatusOK, w.Code)

	// 缺少字段
	w = env.do(t, "POST", "/api/v1/matches/999/moves", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLobbyLifecycleOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)

	creatorToken, _ := env.authenticate(t)
	memberToken, memberID := env.authenticate(t)

	w := env.do(t, "POST", "/api/v1/lobbies", creatorToken, gin.H{
		"name":           "四人厅",
		"stake_lamports": int64(500000000),
		"max_players":    4,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var lobby models.Lobby
	decode(t, w, &lobby)

	// 非法人数被拒绝
	w = env.do(t, "POST", "/api/v1/lobbies", memberToken, gin.H{
		"name":           "三人厅",
		"stake_lamports": int64(500000000),
		"max_players":    3,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 加入后出现在大厅详情里
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/join", lobby.ID), memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "GET", fmt.Sprintf("/api/v1/lobbies/%d", lobby.ID), memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &lobby)
	assert.Equal(t, 2, lobby.CurrentPlayers)

	// 非创建者踢人被拒绝
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/kick", lobby.ID), memberToken, gin.H{"user_id": memberID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 未质押成员离开
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/leave", lobby.ID), memberToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 创建者解散
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/close", lobby.ID), creatorToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 解散后无法加入
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/join", lobby.ID), memberToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStakeVerificationFailureOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)

	creatorToken, _ := env.authenticate(t)

	w := env.do(t, "POST", "/api/v1/lobbies", creatorToken, gin.H{
		"name":           "验证失败厅",
		"stake_lamports": int64(500000000),
		"max_players":    2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var lobby models.Lobby
	decode(t, w, &lobby)

	env.gateway.VerifyErr = apperrors.New(apperrors.ErrStakeVerificationFailed)
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/stake", lobby.ID), creatorToken, gin.H{"tx_hash": "tx-bad"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// 恢复后重试成功
	env.gateway.VerifyErr = nil
	w = env.do(t, "POST", fmt.Sprintf("/api/v1/lobbies/%d/stake", lobby.ID), creatorToken, gin.H{"tx_hash": "tx-good"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

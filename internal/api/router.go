package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/middleware"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/service"
	ws "github.com/degen-space-organization/solana-game-sub000/internal/websocket"
)

// Deps 路由器依赖
type Deps struct {
	DB          *gorm.DB
	Repos       *repository.Manager
	Services    *service.Services
	Lobbies     *game.LobbyManager
	Matches     *game.MatchEngine
	Tournaments *game.TournamentEngine
	Hub         *ws.Hub
	Log         *zap.Logger
}

// Router API路由器
type Router struct {
	engine *gin.Engine
	deps   *Deps

	authMiddleware *middleware.AuthMiddleware

	authHandler       *AuthHandler
	userHandler       *UserHandler
	lobbyHandler      *LobbyHandler
	matchHandler      *MatchHandler
	tournamentHandler *TournamentHandler
	wsHandler         *WebSocketHandler
}

// NewRouter 创建路由器
func NewRouter(deps *Deps) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:            engine,
		deps:              deps,
		authMiddleware:    middleware.NewAuthMiddleware(deps.Services.Auth),
		authHandler:       NewAuthHandler(deps.Services.Auth),
		userHandler:       NewUserHandler(deps.Services.User, deps.Repos.StakeTransaction()),
		lobbyHandler:      NewLobbyHandler(deps.Lobbies, deps.Repos.Lobby()),
		matchHandler:      NewMatchHandler(deps.Matches, deps.Repos.Match()),
		tournamentHandler: NewTournamentHandler(deps.Tournaments, deps.Repos.Tournament(), deps.Repos.Match()),
		wsHandler:         NewWebSocketHandler(deps.Hub, deps.Log),
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/nonce", r.authHandler.GenerateNonce)
			auth.POST("/token", r.authHandler.Authenticate)
		}

		// 公开只读路由
		v1.GET("/users/leaderboard", r.userHandler.GetLeaderboard)
		v1.GET("/online", r.wsHandler.GetOnlineCount)

		// 玩家相关路由（需要认证）
		users := v1.Group("/users")
		users.Use(r.authMiddleware.RequireAuth())
		{
			users.GET("/me", r.userHandler.GetMe)
			users.PUT("/me/nickname", r.userHandler.UpdateNickname)
			users.GET("/me/stats", r.userHandler.GetMyStats)
			users.GET("/me/transactions", r.userHandler.GetMyTransactions)
			users.GET("/:id", r.userHandler.GetUser)
		}

		// 大厅相关路由（需要认证）
		lobbies := v1.Group("/lobbies")
		lobbies.Use(r.authMiddleware.RequireAuth())
		{
			lobbies.POST("", r.lobbyHandler.CreateLobby)
			lobbies.GET("", r.lobbyHandler.ListLobbies)
			lobbies.GET("/:id", r.lobbyHandler.GetLobby)
			lobbies.POST("/:id/join", r.lobbyHandler.JoinLobby)
			lobbies.POST("/:id/stake", r.lobbyHandler.SubmitStake)
			lobbies.POST("/:id/withdraw", r.lobbyHandler.Withdraw)
			lobbies.POST("/:id/leave", r.lobbyHandler.Leave)
			lobbies.POST("/:id/kick", r.lobbyHandler.Kick)
			lobbies.POST("/:id/close", r.lobbyHandler.CloseLobby)
		}

		// 比赛相关路由（需要认证）
		matches := v1.Group("/matches")
		matches.Use(r.authMiddleware.RequireAuth())
		{
			matches.GET("/active", r.matchHandler.GetActiveMatch)
			matches.GET("/:id", r.matchHandler.GetMatch)
			matches.POST("/:id/start", r.matchHandler.StartMatch)
			matches.POST("/:id/moves", r.matchHandler.SubmitMove)
		}

		// 锦标赛相关路由（需要认证）
		tournaments := v1.Group("/tournaments")
		tournaments.Use(r.authMiddleware.RequireAuth())
		{
			tournaments.GET("", r.tournamentHandler.ListTournaments)
			tournaments.GET("/:id", r.tournamentHandler.GetTournament)
			tournaments.GET("/:id/bracket", r.tournamentHandler.GetBracket)
			tournaments.POST("/:id/start", r.tournamentHandler.StartTournament)
		}
	}

	// WebSocket路由
	r.engine.GET("/ws", r.authMiddleware.RequireAuth(), r.wsHandler.Connect)

	// 静态文件服务
	r.engine.Static("/static", "./static")

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.deps.DB.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.deps.Log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试和自定义http.Server）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/degen-space-organization/solana-game-sub000/internal/api"
	"github.com/degen-space-organization/solana-game-sub000/internal/config"
	"github.com/degen-space-organization/solana-game-sub000/internal/database"
	"github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/service"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	ws "github.com/degen-space-organization/solana-game-sub000/internal/websocket"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务组件
	repos       *repository.Manager
	gateway     solana.Gateway
	bus         *game.EventBus
	timers      *game.TimerService
	matches     *game.MatchEngine
	tournaments *game.TournamentEngine
	lobbies     *game.LobbyManager
	hub         *ws.Hub
	bridge      *ws.EventBridge
	httpServer  *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 显示帮助信息
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 设置系统参数
	setupSystem(&cfg.System)

	// 打印启动信息
	printStartInfo(cfg)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动对局服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	// 初始化各个组件
	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	// 启动各个服务
	if err := s.startServices(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动服务失败")
	}

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
	)

	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	// 初始化数据库
	if err := s.initDatabase(); err != nil {
		return err
	}
	s.repos = repository.NewManager(database.GetDB())

	// 初始化链上账务网关
	if err := s.initGateway(); err != nil {
		return err
	}

	// 初始化游戏引擎
	s.bus = game.NewEventBus()
	s.timers = game.NewTimerService()
	rules := game.RulesFromConfig(s.cfg.Game)

	s.matches = game.NewMatchEngine(s.repos, s.gateway, s.bus, s.timers, rules)
	s.tournaments = game.NewTournamentEngine(s.repos, s.gateway, s.bus, s.matches, rules)
	s.lobbies = game.NewLobbyManager(s.repos, s.gateway, s.bus, s.matches, rules)

	// 初始化WebSocket推送
	s.hub = ws.NewHub(s.logger)
	s.bridge = ws.NewEventBridge(s.hub, s.bus, s.repos, s.logger)

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	// 初始化数据库连接
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	// 自动迁移数据库
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	// 检查数据库连接
	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initGateway 初始化链上账务网关。
// 未配置金库地址时使用桩实现，供本地开发联调。
func (s *Server) initGateway() error {
	if s.cfg.Solana.VaultAddress == "" {
		s.logger.Warn("未配置金库地址，使用桩网关（所有质押验证直接通过，不会发生真实转账）")
		s.gateway = solana.NewStubGateway("")
		return nil
	}

	gateway, err := solana.NewGateway(&s.cfg.Solana)
	if err != nil {
		return err
	}
	s.gateway = gateway

	s.logger.Info("链上账务网关就绪",
		zap.String("rpc_endpoint", s.cfg.Solana.RPCEndpoint),
		zap.String("vault", s.cfg.Solana.VaultAddress),
	)
	return nil
}

// startServices 启动服务
func (s *Server) startServices() error {
	s.logger.Info("启动服务...")

	// 启动WebSocket Hub
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()

	// 启动HTTP服务器
	services := service.NewServices(s.repos, &service.Config{
		JWTSecret:    s.cfg.JWT.Secret,
		TokenExpiry:  time.Duration(s.cfg.JWT.ExpireHours) * time.Hour,
		NonceTimeout: s.cfg.JWT.NonceTimeout,
	}, s.logger)

	router := api.NewRouter(&api.Deps{
		DB:          database.GetDB(),
		Repos:       s.repos,
		Services:    services,
		Lobbies:     s.lobbies,
		Matches:     s.matches,
		Tournaments: s.tournaments,
		Hub:         s.hub,
		Log:         s.logger,
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("HTTP服务器监听", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	s.logger.Info("所有服务启动完成")
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	// 创建信号通道
	sigCh := make(chan os.Signal, 1)

	// 监听系统信号
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	// 等待信号
	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))

	// 发送关闭信号
	close(s.shutdownCh)
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	// 创建超时上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭出错", zap.Error(err))
		}
	}

	// 停止回合定时器，防止关闭过程中再触发超时判负
	if s.timers != nil {
		s.timers.Stop()
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	// 等待所有服务关闭
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	// 等待关闭完成或超时。Hub.Run不会自行退出，超时属预期，
	// 进程退出时由操作系统回收。
	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("部分后台任务未在时限内退出")
	}

	// 关闭各个组件
	if err := s.closeComponents(); err != nil {
		s.logger.Error("关闭组件失败", zap.Error(err))
		return err
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() error {
	s.logger.Info("关闭组件...")

	// 取消事件订阅
	if s.bridge != nil {
		s.bridge.Close()
	}
	if s.tournaments != nil {
		s.tournaments.Close()
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
	return nil
}

// reloadConfig 重新加载配置
func (s *Server) reloadConfig(newCfg *config.Config) {
	s.cfg = newCfg

	// 对局规则与端口等需重启生效，这里只更新可热生效的部分
	s.logger.Info("配置重新加载完成")
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	// 设置时区
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	// 设置最大处理器数
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	// 设置文件描述符限制（Unix系统）
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err == nil {
		rLimit.Cur = rLimit.Max
		syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("剪刀石头布对局服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("剪刀石头布对局服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  rps-arena-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  RPS_ARENA_*            覆盖同名配置项，如 RPS_ARENA_SERVER_PORT")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  rps-arena-server -config=/path/to/config.yaml")
	fmt.Println("  rps-arena-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════════════════════╗
║                                                               ║
║     _____  _____  _____    ___                                ║
║    | ___ \| ___ \/  ___|  / _ \                               ║
║    | |_/ /| |_/ /\ ` + "`" + `--.  / /_\ \_ __ ___ _ __   __ _          ║
║    |    / |  __/  ` + "`" + `--. \ |  _  | '__/ _ \ '_ \ / _` + "`" + ` |         ║
║    | |\ \ | |    /\__/ / | | | | | |  __/ | | | (_| |         ║
║    \_| \_|\_|    \____/  \_| |_/_|  \___|_| |_|\__,_|         ║
║                                                               ║
║                 链上质押对局后端服务器                        ║
║                                                               ║
╚═══════════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	if file := config.ConfigFileUsed(); file != "" {
		fmt.Printf("配置文件: %s\n", file)
	} else {
		fmt.Println("配置文件: 未指定（使用默认配置）")
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

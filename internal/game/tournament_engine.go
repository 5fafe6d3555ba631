package game

import (
	"context"
	"sync"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	"go.uber.org/zap"
)

// TournamentEngine 单败淘汰锦标赛引擎
//
// 订阅比赛完成事件推进赛程：记录淘汰、配对下一轮、决赛后结算。
// 配对在引擎互斥锁内进行并校验下一轮是否已存在，
// 保证同一时刻只有一轮比赛在进行。
type TournamentEngine struct {
	repos   *repository.Manager
	gateway solana.Gateway
	bus     *EventBus
	matches *MatchEngine
	rules   Rules
	settle  *settlement
	log     *zap.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// NewTournamentEngine 创建锦标赛引擎并订阅比赛事件
func NewTournamentEngine(repos *repository.Manager, gateway solana.Gateway, bus *EventBus, matches *MatchEngine, rules Rules) *TournamentEngine {
	log := logger.WithModule("game")
	e := &TournamentEngine{
		repos:   repos,
		gateway: gateway,
		bus:     bus,
		matches: matches,
		rules:   rules,
		settle:  &settlement{repos: repos, gateway: gateway, bus: bus, log: log},
		log:     log,
	}
	e.unsubscribe = bus.Subscribe(EventMatch, e.onMatchEvent)
	return e
}

// Close 取消事件订阅
func (e *TournamentEngine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// onMatchEvent 比赛完成事件回调
func (e *TournamentEngine) onMatchEvent(event Event) {
	if event.Change != ChangeCompleted {
		return
	}
	if err := e.HandleMatchCompleted(context.Background(), event.EntityID); err != nil {
		e.log.Error("锦标赛推进失败", zap.Uint("match_id", event.EntityID), zap.Error(err))
	}
}

// StartTournament 开始锦标赛。
// 仅限来源大厅的创建者调用；按加入顺序将参与者配对为首轮比赛。
func (e *TournamentEngine) StartTournament(ctx context.Context, tournamentID, callerID uint) ([]*models.Match, error) {
	tournament, err := e.repos.Tournament().FindByID(ctx, tournamentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if tournament.CreatorID != callerID {
		return nil, apperrors.New(apperrors.ErrPermissionDenied, "仅创建者可开始锦标赛")
	}

	started, err := e.repos.Tournament().TransitionStatus(ctx, tournamentID,
		models.TournamentStatusWaiting, models.TournamentStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, apperrors.Newf(apperrors.ErrTournamentNotWaiting, "status=%s", tournament.Status)
	}

	participants, err := e.repos.TournamentParticipant().ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	stake := tournament.PrizePool / int64(tournament.CurrentPlayers)
	created, err := e.pairRound(ctx, tournament, participantIDs(participants), 1, stake)
	if err != nil {
		return nil, err
	}

	e.log.Info("锦标赛开始",
		zap.Uint("tournament_id", tournamentID),
		zap.Int("players", len(participants)),
		zap.Int("first_round_matches", len(created)),
	)
	e.bus.Publish(EventTournament, tournamentID, ChangeUpdated, nil)
	return created, nil
}

// participantIDs 按加入顺序取参与者ID
func participantIDs(participants []*models.TournamentParticipant) []uint {
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// pairRound 将给定顺序的玩家两两配对为一轮比赛并逐场开始
func (e *TournamentEngine) pairRound(ctx context.Context, tournament *models.Tournament, players []uint, round int, stake int64) ([]*models.Match, error) {
	created := make([]*models.Match, 0, len(players)/2)
	for i := 0; i+1 < len(players); i += 2 {
		match, err := e.matches.CreateMatch(ctx, stake, &tournament.ID, round, players[i], players[i+1])
		if err != nil {
			return created, err
		}
		if err := e.matches.StartMatch(ctx, match.ID); err != nil {
			return created, err
		}
		created = append(created, match)
	}
	return created, nil
}

// HandleMatchCompleted 处理锦标赛比赛的完成：
// 淘汰败者；决赛则结算名次与奖金，否则在本轮全部结束后配对下一轮。
func (e *TournamentEngine) HandleMatchCompleted(ctx context.Context, matchID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	match, err := e.repos.Match().FindByIDWithDetails(ctx, matchID)
	if err != nil {
		return err
	}
	if match.TournamentID == nil || match.Status != models.MatchStatusCompleted {
		return nil
	}

	tournament, err := e.repos.Tournament().FindByID(ctx, *match.TournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusInProgress {
		return nil
	}

	if match.WinnerID == nil {
		// 晋级裁定保证锦标赛比赛必有胜者
		return apperrors.Newf(apperrors.ErrDataIntegrity, "锦标赛比赛%d没有胜者", matchID)
	}
	winnerID := *match.WinnerID
	loserID := e.matches.opponentOf(match, winnerID)

	remaining, err := e.repos.TournamentParticipant().CountRemaining(ctx, tournament.ID)
	if err != nil {
		return err
	}

	// 淘汰名次 = 淘汰前的存活人数：越晚被淘汰名次越靠前
	loser, err := e.repos.TournamentParticipant().Find(ctx, tournament.ID, loserID)
	if err != nil {
		return err
	}
	if loser.EliminatedAt == nil {
		if err := e.repos.TournamentParticipant().Eliminate(ctx, tournament.ID, loserID, int(remaining)); err != nil {
			return err
		}
		remaining--
	}

	e.log.Info("锦标赛淘汰",
		zap.Uint("tournament_id", tournament.ID),
		zap.Uint("match_id", matchID),
		zap.Uint("loser_id", loserID),
		zap.Int64("remaining", remaining),
	)

	if remaining <= 1 {
		return e.finalize(ctx, tournament, winnerID, loserID)
	}
	return e.advanceRound(ctx, tournament, match.TournamentRound)
}

// finalize 决赛结束：写入冠军名次，结算70/30奖金
func (e *TournamentEngine) finalize(ctx context.Context, tournament *models.Tournament, championID, runnerUpID uint) error {
	if err := e.repos.TournamentParticipant().SetFinalPosition(ctx, tournament.ID, championID, 1); err != nil {
		return err
	}

	// 状态迁移兼作奖金发放声明，只有赢得迁移的调用方执行发放
	claimed, err := e.repos.Tournament().TransitionStatus(ctx, tournament.ID,
		models.TournamentStatusInProgress, models.TournamentStatusCompleted)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	winners := []struct {
		userID uint
		share  float64
	}{
		{championID, e.rules.PrizeShares[0]},
		{runnerUpID, e.rules.PrizeShares[1]},
	}
	for _, w := range winners {
		user, err := e.repos.User().FindByID(ctx, w.userID)
		if err != nil {
			e.log.Error("锦标赛结算读取玩家失败", zap.Uint("user_id", w.userID), zap.Error(err))
			continue
		}
		gross := int64(float64(tournament.PrizePool) * w.share)
		record := &models.StakeTransaction{
			UserID:         w.userID,
			TournamentID:   &tournament.ID,
			Type:           models.StakeTxTypePayout,
			AmountLamports: e.rules.NetPayout(gross),
		}
		if err := e.settle.issue(ctx, record, user.WalletAddress); err != nil {
			e.log.Error("锦标赛奖金发放失败",
				zap.Uint("tournament_id", tournament.ID),
				zap.Uint("user_id", w.userID),
				zap.Error(err),
			)
		}
	}

	e.log.Info("锦标赛结束",
		zap.Uint("tournament_id", tournament.ID),
		zap.Uint("champion_id", championID),
		zap.Uint("runner_up_id", runnerUpID),
		zap.Int64("prize_pool", tournament.PrizePool),
	)
	e.bus.Publish(EventTournament, tournament.ID, ChangeCompleted, nil)
	return nil
}

// advanceRound 本轮全部结束后配对下一轮。
// 晋级者按各自比赛的完成时间顺序配对；下一轮已存在则不重复配对。
func (e *TournamentEngine) advanceRound(ctx context.Context, tournament *models.Tournament, round int) error {
	roundMatches, err := e.repos.Match().ListByTournamentRound(ctx, tournament.ID, round)
	if err != nil {
		return err
	}
	for _, m := range roundMatches {
		if m.Status != models.MatchStatusCompleted {
			return nil
		}
	}

	nextMatches, err := e.repos.Match().ListByTournamentRound(ctx, tournament.ID, round+1)
	if err != nil {
		return err
	}
	if len(nextMatches) > 0 {
		return nil
	}

	sortByCompletion(roundMatches)
	winners := make([]uint, 0, len(roundMatches))
	for _, m := range roundMatches {
		if m.WinnerID != nil {
			winners = append(winners, *m.WinnerID)
		}
	}
	if len(winners) < 2 {
		return nil
	}

	stake := tournament.PrizePool / int64(tournament.CurrentPlayers)
	created, err := e.pairRound(ctx, tournament, winners, round+1, stake)
	if err != nil {
		return err
	}

	e.log.Info("锦标赛进入下一轮",
		zap.Uint("tournament_id", tournament.ID),
		zap.Int("round", round+1),
		zap.Int("matches", len(created)),
	)
	e.bus.Publish(EventTournament, tournament.ID, ChangeUpdated, nil)
	return nil
}

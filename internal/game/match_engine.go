package game

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	"go.uber.org/zap"
)

// MatchEngine 1v1比赛引擎
//
// 状态机：waiting → in_progress → showing_results → completed。
// 每个迁移都是带状态守卫的条件更新，定时器与出招提交可以并发触发，
// 回合的evaluating声明保证同一回合只被结算一次。
type MatchEngine struct {
	repos   *repository.Manager
	gateway solana.Gateway
	bus     *EventBus
	timers  *TimerService
	rules   Rules
	settle  *settlement
	log     *zap.Logger
}

// NewMatchEngine 创建比赛引擎
func NewMatchEngine(repos *repository.Manager, gateway solana.Gateway, bus *EventBus, timers *TimerService, rules Rules) *MatchEngine {
	log := logger.WithModule("game")
	return &MatchEngine{
		repos:   repos,
		gateway: gateway,
		bus:     bus,
		timers:  timers,
		rules:   rules,
		settle:  &settlement{repos: repos, gateway: gateway, bus: bus, log: log},
		log:     log,
	}
}

// roundTimerKey 回合定时器键
func roundTimerKey(roundID uint) string {
	return fmt.Sprintf("round:%d", roundID)
}

// matchTimerKey 结算定时器键
func matchTimerKey(matchID uint) string {
	return fmt.Sprintf("match:%d", matchID)
}

// CreateMatch 创建比赛及其两个参与者席位
func (e *MatchEngine) CreateMatch(ctx context.Context, stakeLamports int64, tournamentID *uint, tournamentRound int, player1ID, player2ID uint) (*models.Match, error) {
	match := &models.Match{
		TournamentID:    tournamentID,
		TournamentRound: tournamentRound,
		Status:          models.MatchStatusWaiting,
		StakeAmount:     stakeLamports,
		TotalPrizePool:  stakeLamports * 2,
	}

	err := e.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := tx.Match().Create(ctx, match); err != nil {
			return err
		}
		if err := tx.MatchParticipant().Add(ctx, &models.MatchParticipant{
			MatchID:  match.ID,
			UserID:   player1ID,
			Position: models.MatchPositionPlayer1,
		}); err != nil {
			return err
		}
		return tx.MatchParticipant().Add(ctx, &models.MatchParticipant{
			MatchID:  match.ID,
			UserID:   player2ID,
			Position: models.MatchPositionPlayer2,
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	e.bus.Publish(EventMatch, match.ID, ChangeCreated, match)
	return match, nil
}

// StartMatch 开始比赛：创建第1回合并启动回合定时器。
// 对已开始的比赛是幂等的空操作。
func (e *MatchEngine) StartMatch(ctx context.Context, matchID uint) error {
	participants, err := e.repos.MatchParticipant().ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if len(participants) != 2 {
		return apperrors.Newf(apperrors.ErrMatchNotReady, "match_id=%d participants=%d", matchID, len(participants))
	}

	started, err := e.repos.Match().TransitionStatus(ctx, matchID, models.MatchStatusWaiting, models.MatchStatusInProgress)
	if err != nil {
		return err
	}
	if !started {
		match, err := e.repos.Match().FindByID(ctx, matchID)
		if err != nil {
			return err
		}
		if match.Status == models.MatchStatusInProgress {
			return nil
		}
		return apperrors.Newf(apperrors.ErrMatchNotActive, "match_id=%d status=%s", matchID, match.Status)
	}

	if err := e.createRound(ctx, matchID, 1); err != nil {
		return err
	}

	e.log.Info("比赛开始", zap.Uint("match_id", matchID))
	e.bus.Publish(EventMatch, matchID, ChangeUpdated, nil)
	return nil
}

// createRound 创建指定回合并启动其出招定时器
func (e *MatchEngine) createRound(ctx context.Context, matchID uint, roundNumber int) error {
	round := &models.GameRound{
		MatchID:     matchID,
		RoundNumber: roundNumber,
		Status:      models.RoundStatusAwaitingMoves,
	}
	if err := e.repos.GameRound().Create(ctx, round); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	roundID := round.ID
	e.timers.Arm(roundTimerKey(roundID), e.rules.RoundTimeout, func() {
		e.handleRoundTimeout(matchID, roundID)
	})

	e.bus.Publish(EventRound, roundID, ChangeCreated, round)
	return nil
}

// SubmitMove 提交出招。
// 回合号必须是当前回合；同一回合重复提交相同出招视为幂等成功，
// 提交不同出招返回已出招错误。双方出招齐备后立即结算回合。
func (e *MatchEngine) SubmitMove(ctx context.Context, matchID, userID uint, roundNumber int, move string) (*models.GameRound, error) {
	parsed, err := ParseMove(move)
	if err != nil {
		return nil, err
	}

	match, err := e.repos.Match().FindByID(ctx, matchID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if match.Status != models.MatchStatusInProgress {
		return nil, apperrors.Newf(apperrors.ErrMatchNotActive, "status=%s", match.Status)
	}

	participant, err := e.repos.MatchParticipant().Find(ctx, matchID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotMatchParticipant)
	}

	current, err := e.repos.GameRound().FindCurrent(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.RoundNumber != roundNumber {
		return nil, apperrors.Newf(apperrors.ErrInvalidRound, "round_number=%d", roundNumber)
	}

	recorded, err := e.repos.GameRound().SetMove(ctx, current.ID, participant.Position, string(parsed))
	if err != nil {
		return nil, err
	}

	round, err := e.repos.GameRound().FindByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	if !recorded {
		existing := round.MoveFor(participant.Position)
		if existing != nil && *existing == string(parsed) {
			// 相同出招的重试视为成功
			return round, nil
		}
		if existing != nil {
			return nil, apperrors.New(apperrors.ErrAlreadyMoved)
		}
		return nil, apperrors.Newf(apperrors.ErrInvalidRound, "回合已进入结算")
	}

	e.bus.Publish(EventRound, round.ID, ChangeUpdated, round)

	if round.BothMovesPresent() {
		if err := e.resolveRound(ctx, matchID, round.ID); err != nil {
			return nil, err
		}
		round, err = e.repos.GameRound().FindByID(ctx, round.ID)
		if err != nil {
			return nil, err
		}
	}

	return round, nil
}

// handleRoundTimeout 回合出招超时，缺招方自动判负
func (e *MatchEngine) handleRoundTimeout(matchID, roundID uint) {
	ctx := context.Background()
	if err := e.resolveRound(ctx, matchID, roundID); err != nil {
		e.log.Error("回合超时结算失败",
			zap.Uint("match_id", matchID),
			zap.Uint("round_id", roundID),
			zap.Error(err),
		)
	}
}

// resolveRound 结算回合。
// 先抢占evaluating状态，抢占失败说明另一触发方已在结算，直接返回。
func (e *MatchEngine) resolveRound(ctx context.Context, matchID, roundID uint) error {
	claimed, err := e.repos.GameRound().BeginEvaluation(ctx, roundID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	e.timers.Cancel(roundTimerKey(roundID))

	round, err := e.repos.GameRound().FindByID(ctx, roundID)
	if err != nil {
		return err
	}
	participants, err := e.repos.MatchParticipant().ListByMatch(ctx, matchID)
	if err != nil {
		return err
	}

	var winnerID *uint
	switch CompareMoves(round.Player1Move, round.Player2Move) {
	case OutcomePlayer1:
		winnerID = &participants[0].UserID
	case OutcomePlayer2:
		winnerID = &participants[1].UserID
	}

	if err := e.repos.GameRound().Complete(ctx, roundID, winnerID); err != nil {
		return err
	}

	e.log.Info("回合结算",
		zap.Uint("match_id", matchID),
		zap.Int("round_number", round.RoundNumber),
		zap.Any("winner_id", winnerID),
	)
	e.bus.Publish(EventRound, roundID, ChangeCompleted, nil)

	return e.checkContinuation(ctx, matchID, participants)
}

// checkContinuation 回合结束后的续局判定：
// 任一方达到先胜局数或回合数打满则比赛进入结果展示期，否则开下一回合。
func (e *MatchEngine) checkContinuation(ctx context.Context, matchID uint, participants []*models.MatchParticipant) error {
	wins1, err := e.repos.GameRound().CountWins(ctx, matchID, participants[0].UserID)
	if err != nil {
		return err
	}
	wins2, err := e.repos.GameRound().CountWins(ctx, matchID, participants[1].UserID)
	if err != nil {
		return err
	}
	completed, err := e.repos.GameRound().CountCompleted(ctx, matchID)
	if err != nil {
		return err
	}

	finished := wins1 >= int64(e.rules.WinsToTake) ||
		wins2 >= int64(e.rules.WinsToTake) ||
		completed >= int64(e.rules.MaxRounds)

	if !finished {
		next := int(completed) + 1
		return e.createRound(ctx, matchID, next)
	}

	match, err := e.repos.Match().FindByID(ctx, matchID)
	if err != nil {
		return err
	}

	var winnerID *uint
	switch {
	case wins1 > wins2:
		winnerID = &participants[0].UserID
	case wins2 > wins1:
		winnerID = &participants[1].UserID
	default:
		// 总比分平。锦标赛比赛必须有晋级者：
		// 取最近一个有胜者的回合的胜者，全程平局则1号位晋级。
		if match.TournamentID != nil {
			winnerID = e.breakTie(ctx, matchID, participants)
		}
	}

	if err := e.repos.Match().SetWinner(ctx, matchID, winnerID); err != nil {
		return err
	}

	moved, err := e.repos.Match().TransitionStatus(ctx, matchID, models.MatchStatusInProgress, models.MatchStatusShowingResults)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	e.log.Info("比赛结束，进入结果展示期",
		zap.Uint("match_id", matchID),
		zap.Int64("wins1", wins1),
		zap.Int64("wins2", wins2),
		zap.Any("winner_id", winnerID),
	)
	e.bus.Publish(EventMatch, matchID, ChangeUpdated, nil)

	e.timers.Arm(matchTimerKey(matchID), e.rules.ResultsDisplayDelay, func() {
		e.handleSettleTimer(matchID)
	})
	return nil
}

// breakTie 锦标赛比赛总比分平时的晋级裁定
func (e *MatchEngine) breakTie(ctx context.Context, matchID uint, participants []*models.MatchParticipant) *uint {
	rounds, err := e.repos.GameRound().ListByMatch(ctx, matchID)
	if err != nil {
		e.log.Error("平局裁定读取回合失败", zap.Uint("match_id", matchID), zap.Error(err))
		return &participants[0].UserID
	}
	for i := len(rounds) - 1; i >= 0; i-- {
		if rounds[i].WinnerID != nil {
			return rounds[i].WinnerID
		}
	}
	return &participants[0].UserID
}

// handleSettleTimer 结果展示期结束，执行结算
func (e *MatchEngine) handleSettleTimer(matchID uint) {
	ctx := context.Background()
	if err := e.SettleMatch(ctx, matchID); err != nil {
		e.log.Error("比赛结算失败", zap.Uint("match_id", matchID), zap.Error(err))
	}
}

// SettleMatch 结算比赛：showing_results → completed。
// 1v1比赛在此发放奖金或退还质押；锦标赛比赛的资金由锦标赛引擎统一结算，
// 这里只广播完成事件交由其处理晋级。
func (e *MatchEngine) SettleMatch(ctx context.Context, matchID uint) error {
	moved, err := e.repos.Match().TransitionStatus(ctx, matchID, models.MatchStatusShowingResults, models.MatchStatusCompleted)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	e.timers.Cancel(matchTimerKey(matchID))

	match, err := e.repos.Match().FindByIDWithDetails(ctx, matchID)
	if err != nil {
		return err
	}

	if match.TournamentID == nil {
		if err := e.settleOneOnOne(ctx, match); err != nil {
			return err
		}
	} else if match.WinnerID != nil {
		loserID := e.opponentOf(match, *match.WinnerID)
		if err := e.repos.User().RecordMatchResult(ctx, *match.WinnerID, loserID); err != nil {
			return err
		}
	}

	e.log.Info("比赛已结算", zap.Uint("match_id", matchID), zap.Any("winner_id", match.WinnerID))
	e.bus.Publish(EventMatch, matchID, ChangeCompleted, match)
	return nil
}

// settleOneOnOne 1v1比赛的资金与战绩结算
func (e *MatchEngine) settleOneOnOne(ctx context.Context, match *models.Match) error {
	claimed, err := e.repos.Match().ClaimPrizeDistribution(ctx, match.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if match.WinnerID == nil {
		// 总平局：双方全额退还质押，不计战绩
		for i := range match.Participants {
			p := match.Participants[i]
			record := &models.StakeTransaction{
				UserID:         p.UserID,
				MatchID:        &match.ID,
				Type:           models.StakeTxTypeRefund,
				AmountLamports: match.StakeAmount,
			}
			if err := e.settle.issue(ctx, record, p.User.WalletAddress); err != nil {
				e.log.Error("平局退款发放失败",
					zap.Uint("match_id", match.ID),
					zap.Uint("user_id", p.UserID),
					zap.Error(err),
				)
			}
		}
		return nil
	}

	winnerID := *match.WinnerID
	loserID := e.opponentOf(match, winnerID)

	var winnerWallet string
	for i := range match.Participants {
		if match.Participants[i].UserID == winnerID {
			winnerWallet = match.Participants[i].User.WalletAddress
		}
	}

	record := &models.StakeTransaction{
		UserID:         winnerID,
		MatchID:        &match.ID,
		Type:           models.StakeTxTypePayout,
		AmountLamports: e.rules.NetPayout(match.TotalPrizePool),
	}
	if err := e.settle.issue(ctx, record, winnerWallet); err != nil {
		e.log.Error("奖金发放失败",
			zap.Uint("match_id", match.ID),
			zap.Uint("winner_id", winnerID),
			zap.Error(err),
		)
	}

	return e.repos.User().RecordMatchResult(ctx, winnerID, loserID)
}

// opponentOf 返回比赛中另一名参与者的ID
func (e *MatchEngine) opponentOf(match *models.Match, userID uint) uint {
	for i := range match.Participants {
		if match.Participants[i].UserID != userID {
			return match.Participants[i].UserID
		}
	}
	return 0
}

// sortByCompletion 按完成时间升序排序比赛（晋级配对顺序）
func sortByCompletion(matches []*models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		ti, tj := matches[i].CompletedAt, matches[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.Before(*tj)
	})
}

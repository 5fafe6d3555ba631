package game

import (
	"context"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/solana"
	"go.uber.org/zap"
)

// LobbyManager 大厅管理器
//
// 大厅是赛前质押房间：满员且全员质押后由完整性检查转换为对局。
// waiting→starting的条件更新是转换的唯一授权点，
// 并发到达的质押确认中只有一个能赢得转换。
type LobbyManager struct {
	repos   *repository.Manager
	gateway solana.Gateway
	bus     *EventBus
	matches *MatchEngine
	rules   Rules
	settle  *settlement
	log     *zap.Logger
}

// NewLobbyManager 创建大厅管理器
func NewLobbyManager(repos *repository.Manager, gateway solana.Gateway, bus *EventBus, matches *MatchEngine, rules Rules) *LobbyManager {
	log := logger.WithModule("game")
	return &LobbyManager{
		repos:   repos,
		gateway: gateway,
		bus:     bus,
		matches: matches,
		rules:   rules,
		settle:  &settlement{repos: repos, gateway: gateway, bus: bus, log: log},
		log:     log,
	}
}

// ensureNoActiveGame 检查玩家当前没有进行中的对局或开放大厅。
// 每次创建/加入时都实时查询，不依赖缓存结果。
func (m *LobbyManager) ensureNoActiveGame(ctx context.Context, userID uint) error {
	inMatch, err := m.repos.MatchParticipant().HasActiveGame(ctx, userID)
	if err != nil {
		return err
	}
	if inMatch {
		return apperrors.Newf(apperrors.ErrAlreadyInGame, "user_id=%d 已在比赛中", userID)
	}

	inTournament, err := m.repos.TournamentParticipant().HasActiveTournament(ctx, userID)
	if err != nil {
		return err
	}
	if inTournament {
		return apperrors.Newf(apperrors.ErrAlreadyInGame, "user_id=%d 已在锦标赛中", userID)
	}

	inLobby, err := m.repos.LobbyParticipant().FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if inLobby != nil {
		return apperrors.Newf(apperrors.ErrAlreadyInGame, "user_id=%d 已在大厅%d中", userID, inLobby.LobbyID)
	}

	return nil
}

// CreateLobby 创建大厅，创建者自动成为第一名参与者
func (m *LobbyManager) CreateLobby(ctx context.Context, creatorID uint, name string, stakeLamports int64, maxPlayers int) (*models.Lobby, error) {
	if !ValidLobbySize(maxPlayers) {
		return nil, apperrors.Newf(apperrors.ErrInvalidLobbySize, "max_players=%d，仅支持2/4/8", maxPlayers)
	}
	if stakeLamports < m.rules.MinStakeLamports {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam,
			"质押额%d低于最低限制%d", stakeLamports, m.rules.MinStakeLamports)
	}
	if err := m.ensureNoActiveGame(ctx, creatorID); err != nil {
		return nil, err
	}

	lobby := &models.Lobby{
		Name:           name,
		CreatorID:      creatorID,
		StakeAmount:    stakeLamports,
		MaxPlayers:     maxPlayers,
		CurrentPlayers: 1,
		Status:         models.LobbyStatusWaiting,
	}

	err := m.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := tx.Lobby().Create(ctx, lobby); err != nil {
			return err
		}
		return tx.LobbyParticipant().Add(ctx, &models.LobbyParticipant{
			LobbyID: lobby.ID,
			UserID:  creatorID,
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	m.log.Info("大厅创建",
		zap.Uint("lobby_id", lobby.ID),
		zap.Uint("creator_id", creatorID),
		zap.Int64("stake_lamports", stakeLamports),
		zap.Int("max_players", maxPlayers),
	)
	m.bus.Publish(EventLobby, lobby.ID, ChangeCreated, lobby)
	return lobby, nil
}

// JoinLobby 加入大厅
func (m *LobbyManager) JoinLobby(ctx context.Context, lobbyID, userID uint) (*models.LobbyParticipant, error) {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if lobby.Status != models.LobbyStatusWaiting {
		return nil, apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}
	if lobby.IsFull() {
		return nil, apperrors.New(apperrors.ErrLobbyFull)
	}
	if err := m.ensureNoActiveGame(ctx, userID); err != nil {
		return nil, err
	}

	participant := &models.LobbyParticipant{
		LobbyID: lobbyID,
		UserID:  userID,
	}
	err = m.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		// 占座是条件更新：上面的检查只用于友好报错，
		// 并发争抢最后一个名额时以这里的占座结果为准
		reserved, err := tx.Lobby().ReserveSeat(ctx, lobbyID)
		if err != nil {
			return err
		}
		if !reserved {
			current, err := tx.Lobby().FindByID(ctx, lobbyID)
			if err != nil {
				return err
			}
			if current.Status != models.LobbyStatusWaiting {
				return apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", current.Status)
			}
			return apperrors.New(apperrors.ErrLobbyFull)
		}
		return tx.LobbyParticipant().Add(ctx, participant)
	})
	if err != nil {
		if apperrors.GetCode(err) != apperrors.ErrUnknown {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	m.log.Info("玩家加入大厅", zap.Uint("lobby_id", lobbyID), zap.Uint("user_id", userID))
	m.bus.Publish(EventLobby, lobbyID, ChangeUpdated, nil)
	return participant, nil
}

// SubmitStake 提交质押交易。
// 链上验证通过后记录质押，随后运行完整性检查；
// 若本次质押补齐了最后一个名额，返回转换产生的对局上下文。
func (m *LobbyManager) SubmitStake(ctx context.Context, lobbyID, userID uint, txHash string) (*GameContext, error) {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if lobby.Status != models.LobbyStatusWaiting {
		return nil, apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}

	participant, err := m.repos.LobbyParticipant().Find(ctx, lobbyID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotInLobby)
	}
	if participant.HasStaked {
		if participant.StakeTransactionHash != nil && *participant.StakeTransactionHash == txHash {
			// 相同交易的重复提交视为成功
			return nil, nil
		}
		return nil, apperrors.New(apperrors.ErrAlreadyStaked)
	}

	user, err := m.repos.User().FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound)
	}

	record := &models.StakeTransaction{
		OrderNo:        newOrderNo(models.StakeTxTypeStake),
		UserID:         userID,
		LobbyID:        &lobbyID,
		Type:           models.StakeTxTypeStake,
		AmountLamports: lobby.StakeAmount,
		TxHash:         txHash,
		Status:         models.StakeTxStatusPending,
	}
	if err := m.repos.StakeTransaction().Create(ctx, record); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	if err := m.gateway.VerifyStake(ctx, txHash, user.WalletAddress, lobby.StakeAmount); err != nil {
		if markErr := m.repos.StakeTransaction().MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			m.log.Error("质押流水标记失败出错", zap.Uint("stake_tx_id", record.ID), zap.Error(markErr))
		}
		m.bus.Publish(EventStake, record.ID, ChangeUpdated, record)
		return nil, err
	}

	if err := m.repos.StakeTransaction().MarkConfirmed(ctx, record.ID, txHash); err != nil {
		return nil, err
	}
	if _, err := m.repos.LobbyParticipant().MarkStaked(ctx, lobbyID, userID, txHash); err != nil {
		return nil, err
	}

	m.log.Info("质押确认",
		zap.Uint("lobby_id", lobbyID),
		zap.Uint("user_id", userID),
		zap.String("tx_hash", txHash),
		zap.Int64("lamports", lobby.StakeAmount),
	)
	m.bus.Publish(EventStake, record.ID, ChangeUpdated, record)
	m.bus.Publish(EventLobby, lobbyID, ChangeUpdated, nil)

	return m.checkConversion(ctx, lobbyID)
}

// Withdraw 已质押玩家在转换前撤出大厅并退还质押
func (m *LobbyManager) Withdraw(ctx context.Context, lobbyID, userID uint) error {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if lobby.Status != models.LobbyStatusWaiting {
		return apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}

	participant, err := m.repos.LobbyParticipant().Find(ctx, lobbyID, userID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotInLobby)
	}
	if !participant.HasStaked {
		return apperrors.New(apperrors.ErrNotStaked)
	}

	user, err := m.repos.User().FindByID(ctx, userID)
	if err != nil {
		return err
	}

	err = m.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		// 删除自带大厅状态谓词：转换先赢得waiting→starting则撤出失败，
		// 质押跟随对局，不会出现既退款又入场
		removed, err := tx.LobbyParticipant().DeleteIfLobbyWaiting(ctx, lobbyID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.Newf(apperrors.ErrLobbyClosed, "lobby_id=%d 已不在等待状态", lobbyID)
		}
		return tx.Lobby().UpdateCurrentPlayers(ctx, lobbyID, -1)
	})
	if err != nil {
		if apperrors.GetCode(err) != apperrors.ErrUnknown {
			return err
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}

	refund := &models.StakeTransaction{
		UserID:         userID,
		LobbyID:        &lobbyID,
		Type:           models.StakeTxTypeRefund,
		AmountLamports: lobby.StakeAmount,
	}
	if err := m.settle.issue(ctx, refund, user.WalletAddress); err != nil {
		// 退出已生效，退款由对账任务重试
		m.log.Error("撤出退款发放失败", zap.Uint("lobby_id", lobbyID), zap.Uint("user_id", userID), zap.Error(err))
	}

	m.log.Info("玩家撤出大厅", zap.Uint("lobby_id", lobbyID), zap.Uint("user_id", userID))
	m.bus.Publish(EventLobby, lobbyID, ChangeUpdated, nil)
	return nil
}

// Leave 未质押玩家离开大厅；创建者离开等同于解散大厅
func (m *LobbyManager) Leave(ctx context.Context, lobbyID, userID uint) error {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if userID == lobby.CreatorID {
		return m.CloseLobby(ctx, lobbyID, userID)
	}
	if lobby.Status != models.LobbyStatusWaiting {
		return apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}

	removed, err := m.repos.LobbyParticipant().DeleteIfUnstaked(ctx, lobbyID, userID)
	if err != nil {
		return err
	}
	if !removed {
		if _, err := m.repos.LobbyParticipant().Find(ctx, lobbyID, userID); err != nil {
			return apperrors.Wrap(err, apperrors.ErrNotInLobby)
		}
		// 已质押的玩家要走撤出流程拿回质押
		return apperrors.New(apperrors.ErrAlreadyStaked)
	}

	if err := m.repos.Lobby().UpdateCurrentPlayers(ctx, lobbyID, -1); err != nil {
		return err
	}

	m.log.Info("玩家离开大厅", zap.Uint("lobby_id", lobbyID), zap.Uint("user_id", userID))
	m.bus.Publish(EventLobby, lobbyID, ChangeUpdated, nil)
	return nil
}

// Kick 创建者踢出未质押的玩家。
// 踢出与质押竞争时以先落库者为准：质押先生效则踢出失败。
func (m *LobbyManager) Kick(ctx context.Context, lobbyID, creatorID, targetID uint) error {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if lobby.CreatorID != creatorID {
		return apperrors.New(apperrors.ErrNotLobbyCreator)
	}
	if targetID == creatorID {
		return apperrors.New(apperrors.ErrInvalidParam, "不能踢出自己")
	}
	if lobby.Status != models.LobbyStatusWaiting {
		return apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}

	removed, err := m.repos.LobbyParticipant().DeleteIfUnstaked(ctx, lobbyID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		if _, err := m.repos.LobbyParticipant().Find(ctx, lobbyID, targetID); err != nil {
			return apperrors.Wrap(err, apperrors.ErrNotInLobby)
		}
		return apperrors.New(apperrors.ErrCannotKickStaked)
	}

	if err := m.repos.Lobby().UpdateCurrentPlayers(ctx, lobbyID, -1); err != nil {
		return err
	}

	m.log.Info("玩家被踢出大厅",
		zap.Uint("lobby_id", lobbyID),
		zap.Uint("creator_id", creatorID),
		zap.Uint("target_id", targetID),
	)
	m.bus.Publish(EventLobby, lobbyID, ChangeUpdated, nil)
	return nil
}

// CloseLobby 创建者解散大厅，已质押的玩家全部退款
func (m *LobbyManager) CloseLobby(ctx context.Context, lobbyID, callerID uint) error {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound)
	}
	if lobby.CreatorID != callerID {
		return apperrors.New(apperrors.ErrNotLobbyCreator)
	}

	disbanded, err := m.repos.Lobby().TransitionStatus(ctx, lobbyID, models.LobbyStatusWaiting, models.LobbyStatusDisbanded)
	if err != nil {
		return err
	}
	if !disbanded {
		return apperrors.Newf(apperrors.ErrLobbyClosed, "status=%s", lobby.Status)
	}

	participants, err := m.repos.LobbyParticipant().ListByLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if !p.HasStaked {
			continue
		}
		user, err := m.repos.User().FindByID(ctx, p.UserID)
		if err != nil {
			m.log.Error("解散退款读取玩家失败", zap.Uint("user_id", p.UserID), zap.Error(err))
			continue
		}
		refund := &models.StakeTransaction{
			UserID:         p.UserID,
			LobbyID:        &lobbyID,
			Type:           models.StakeTxTypeRefund,
			AmountLamports: lobby.StakeAmount,
		}
		if err := m.settle.issue(ctx, refund, user.WalletAddress); err != nil {
			m.log.Error("解散退款发放失败", zap.Uint("lobby_id", lobbyID), zap.Uint("user_id", p.UserID), zap.Error(err))
		}
	}

	m.log.Info("大厅解散", zap.Uint("lobby_id", lobbyID))
	m.bus.Publish(EventLobby, lobbyID, ChangeCancelled, nil)
	return nil
}

// checkConversion 完整性检查：大厅满员且全员质押时转换为对局。
// waiting→starting的条件更新独占转换权，失败方直接返回nil。
func (m *LobbyManager) checkConversion(ctx context.Context, lobbyID uint) (*GameContext, error) {
	lobby, err := m.repos.Lobby().FindByID(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if !lobby.IsFull() {
		return nil, nil
	}
	staked, err := m.repos.LobbyParticipant().CountStaked(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if staked < int64(lobby.MaxPlayers) {
		return nil, nil
	}

	won, err := m.repos.Lobby().TransitionStatus(ctx, lobbyID, models.LobbyStatusWaiting, models.LobbyStatusStarting)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}

	participants, err := m.repos.LobbyParticipant().ListByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}

	if lobby.IsTournament() {
		return m.convertToTournament(ctx, lobby, participants)
	}
	return m.convertToMatch(ctx, lobby, participants)
}

// convertToMatch 两人大厅转换为1v1比赛并立即开始
func (m *LobbyManager) convertToMatch(ctx context.Context, lobby *models.Lobby, participants []*models.LobbyParticipant) (*GameContext, error) {
	if len(participants) < 2 {
		return nil, apperrors.Newf(apperrors.ErrMatchNotReady,
			"lobby_id=%d participants=%d", lobby.ID, len(participants))
	}

	match, err := m.matches.CreateMatch(ctx, lobby.StakeAmount, nil, 0, participants[0].UserID, participants[1].UserID)
	if err != nil {
		return nil, err
	}

	if _, err := m.repos.Lobby().TransitionStatus(ctx, lobby.ID, models.LobbyStatusStarting, models.LobbyStatusClosed); err != nil {
		return nil, err
	}

	m.log.Info("大厅转换为比赛",
		zap.Uint("lobby_id", lobby.ID),
		zap.Uint("match_id", match.ID),
	)
	m.bus.Publish(EventLobby, lobby.ID, ChangeConverted, match)

	if err := m.matches.StartMatch(ctx, match.ID); err != nil {
		return nil, err
	}

	match, err = m.repos.Match().FindByIDWithDetails(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	return NewOneOnOneContext(match), nil
}

// convertToTournament 多人大厅转换为待开始的锦标赛
func (m *LobbyManager) convertToTournament(ctx context.Context, lobby *models.Lobby, participants []*models.LobbyParticipant) (*GameContext, error) {
	tournament := &models.Tournament{
		Name:           lobby.Name,
		CreatorID:      lobby.CreatorID,
		MaxPlayers:     lobby.MaxPlayers,
		CurrentPlayers: len(participants),
		PrizePool:      lobby.StakeAmount * int64(len(participants)),
		Status:         models.TournamentStatusWaiting,
	}

	err := m.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := tx.Tournament().Create(ctx, tournament); err != nil {
			return err
		}
		for i, p := range participants {
			if err := tx.TournamentParticipant().Add(ctx, &models.TournamentParticipant{
				TournamentID: tournament.ID,
				UserID:       p.UserID,
				JoinOrder:    i + 1,
			}); err != nil {
				return err
			}
		}
		lobby.TournamentID = &tournament.ID
		lobby.Status = models.LobbyStatusClosed
		return tx.Lobby().Update(ctx, lobby)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	m.log.Info("大厅转换为锦标赛",
		zap.Uint("lobby_id", lobby.ID),
		zap.Uint("tournament_id", tournament.ID),
		zap.Int64("prize_pool", tournament.PrizePool),
	)
	m.bus.Publish(EventLobby, lobby.ID, ChangeConverted, tournament)
	m.bus.Publish(EventTournament, tournament.ID, ChangeCreated, tournament)

	return NewBracketContext(tournament, nil), nil
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
)

// LobbyHandler 大厅处理器
type LobbyHandler struct {
	lobbies   *game.LobbyManager
	lobbyRepo repository.LobbyRepository
}

// NewLobbyHandler 创建大厅处理器
func NewLobbyHandler(lobbies *game.LobbyManager, lobbyRepo repository.LobbyRepository) *LobbyHandler {
	return &LobbyHandler{
		lobbies:   lobbies,
		lobbyRepo: lobbyRepo,
	}
}

// CreateLobbyRequest 创建大厅请求
type CreateLobbyRequest struct {
	Name          string `json:"name" binding:"required"`
	StakeLamports int64  `json:"stake_lamports" binding:"required,gt=0"`
	MaxPlayers    int    `json:"max_players" binding:"required"`
}

// CreateLobby 创建大厅
// @Summary 创建大厅
// @Description 创建一个质押大厅，2人转1v1比赛，4/8人转单败淘汰锦标赛，创建者自动入座
// @Tags Lobbies
// @Security Bearer
// @Accept json
// @Param request body CreateLobbyRequest true "大厅信息"
// @Success 200 {object} models.Lobby
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/lobbies [post]
func (h *LobbyHandler) CreateLobby(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	lobby, err := h.lobbies.CreateLobby(c.Request.Context(), userID, req.Name, req.StakeLamports, req.MaxPlayers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lobby)
}

// ListLobbies 大厅列表
// @Summary 大厅列表
// @Tags Lobbies
// @Param status query string false "状态过滤，默认waiting"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} gin.H
// @Router /api/v1/lobbies [get]
func (h *LobbyHandler) ListLobbies(c *gin.Context) {
	status := c.DefaultQuery("status", models.LobbyStatusWaiting)
	pagination := paginationFromQuery(c)

	lobbies, err := h.lobbyRepo.List(c.Request.Context(), status, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lobbies":    lobbies,
		"pagination": pagination,
	})
}

// GetLobby 大厅详情
// @Summary 大厅详情（含参与者）
// @Tags Lobbies
// @Param id path int true "大厅ID"
// @Success 200 {object} models.Lobby
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/lobbies/{id} [get]
func (h *LobbyHandler) GetLobby(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lobby, err := h.lobbyRepo.FindByIDWithParticipants(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "大厅不存在",
		})
		return
	}

	c.JSON(http.StatusOK, lobby)
}

// JoinLobby 加入大厅
// @Summary 加入大厅
// @Tags Lobbies
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} models.LobbyParticipant
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/join [post]
func (h *LobbyHandler) JoinLobby(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	participant, err := h.lobbies.JoinLobby(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

// SubmitStakeRequest 质押提交请求
type SubmitStakeRequest struct {
	TxHash string `json:"tx_hash" binding:"required"`
}

// SubmitStake 提交质押交易
// @Summary 提交质押交易
// @Description 提交链上质押交易哈希，验证通过后标记已质押；满员且全部质押后大厅转为对局
// @Tags Lobbies
// @Security Bearer
// @Accept json
// @Param id path int true "大厅ID"
// @Param request body SubmitStakeRequest true "交易哈希"
// @Success 200 {object} game.GameContext
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/stake [post]
func (h *LobbyHandler) SubmitStake(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	gameCtx, err := h.lobbies.SubmitStake(c.Request.Context(), id, userID, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}

	if gameCtx == nil {
		// 质押已记录，尚未触发转换
		c.JSON(http.StatusOK, SuccessResponse{Message: "质押已确认"})
		return
	}

	c.JSON(http.StatusOK, gameCtx)
}

// Withdraw 撤回质押并离开大厅
// @Summary 撤回质押并离开大厅
// @Tags Lobbies
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/withdraw [post]
func (h *LobbyHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lobbies.Withdraw(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已撤回质押并离开大厅"})
}

// Leave 离开大厅
// @Summary 离开大厅（未质押时），创建者离开则解散大厅
// @Tags Lobbies
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/leave [post]
func (h *LobbyHandler) Leave(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lobbies.Leave(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已离开大厅"})
}

// KickRequest 踢人请求
type KickRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// Kick 踢出未质押玩家
// @Summary 踢出未质押玩家（仅创建者）
// @Tags Lobbies
// @Security Bearer
// @Accept json
// @Param id path int true "大厅ID"
// @Param request body KickRequest true "目标玩家"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/kick [post]
func (h *LobbyHandler) Kick(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req KickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.lobbies.Kick(c.Request.Context(), id, userID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "已踢出玩家"})
}

// CloseLobby 解散大厅
// @Summary 解散大厅（仅创建者），已质押玩家全额退款
// @Tags Lobbies
// @Security Bearer
// @Param id path int true "大厅ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/lobbies/{id}/close [post]
func (h *LobbyHandler) CloseLobby(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lobbies.CloseLobby(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "大厅已解散"})
}

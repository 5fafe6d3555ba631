package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
)

// TournamentHandler 锦标赛处理器
type TournamentHandler struct {
	tournaments    *game.TournamentEngine
	tournamentRepo repository.TournamentRepository
	matchRepo      repository.MatchRepository
}

// NewTournamentHandler 创建锦标赛处理器
func NewTournamentHandler(tournaments *game.TournamentEngine, tournamentRepo repository.TournamentRepository, matchRepo repository.MatchRepository) *TournamentHandler {
	return &TournamentHandler{
		tournaments:    tournaments,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
	}
}

// ListTournaments 锦标赛列表
// @Summary 锦标赛列表
// @Tags Tournaments
// @Param status query string false "状态过滤"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} gin.H
// @Router /api/v1/tournaments [get]
func (h *TournamentHandler) ListTournaments(c *gin.Context) {
	status := c.Query("status")
	pagination := paginationFromQuery(c)

	tournaments, err := h.tournamentRepo.List(c.Request.Context(), status, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tournaments": tournaments,
		"pagination":  pagination,
	})
}

// GetTournament 锦标赛详情
// @Summary 锦标赛详情（含参与者）
// @Tags Tournaments
// @Param id path int true "锦标赛ID"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tournaments/{id} [get]
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tournament, err := h.tournamentRepo.FindByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "锦标赛不存在",
		})
		return
	}

	c.JSON(http.StatusOK, tournament)
}

// GetBracket 对阵表
// @Summary 锦标赛对阵表（全部比赛按轮次）
// @Tags Tournaments
// @Param id path int true "锦标赛ID"
// @Success 200 {object} gin.H
// @Router /api/v1/tournaments/{id}/bracket [get]
func (h *TournamentHandler) GetBracket(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	matches, err := h.matchRepo.ListByTournament(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// StartTournament 开始锦标赛
// @Summary 开始锦标赛（仅创建者），按入座顺序配对首轮
// @Tags Tournaments
// @Security Bearer
// @Param id path int true "锦标赛ID"
// @Success 200 {object} gin.H
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/tournaments/{id}/start [post]
func (h *TournamentHandler) StartTournament(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	matches, err := h.tournaments.StartTournament(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

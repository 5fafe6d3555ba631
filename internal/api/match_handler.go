package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
)

// MatchHandler 比赛处理器
type MatchHandler struct {
	matches   *game.MatchEngine
	matchRepo repository.MatchRepository
}

// NewMatchHandler 创建比赛处理器
func NewMatchHandler(matches *game.MatchEngine, matchRepo repository.MatchRepository) *MatchHandler {
	return &MatchHandler{
		matches:   matches,
		matchRepo: matchRepo,
	}
}

// GetMatch 比赛详情
// @Summary 比赛详情（含参与者与回合）
// @Tags Matches
// @Security Bearer
// @Param id path int true "比赛ID"
// @Success 200 {object} models.Match
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/matches/{id} [get]
func (h *MatchHandler) GetMatch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	match, err := h.matchRepo.FindByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "比赛不存在",
		})
		return
	}

	c.JSON(http.StatusOK, match)
}

// GetActiveMatch 当前玩家进行中的比赛
// @Summary 当前玩家进行中的比赛
// @Tags Matches
// @Security Bearer
// @Success 200 {object} models.Match
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/matches/active [get]
func (h *MatchHandler) GetActiveMatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	match, err := h.matchRepo.FindActiveByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "没有进行中的比赛",
		})
		return
	}

	c.JSON(http.StatusOK, match)
}

// SubmitMoveRequest 出招请求
type SubmitMoveRequest struct {
	RoundNumber int    `json:"round_number" binding:"required,gte=1"`
	Move        string `json:"move" binding:"required"`
}

// SubmitMove 提交出招
// @Summary 提交出招
// @Description 对当前回合出招（rock/paper/scissors），同一回合重复提交同一出招幂等
// @Tags Matches
// @Security Bearer
// @Accept json
// @Param id path int true "比赛ID"
// @Param request body SubmitMoveRequest true "出招"
// @Success 200 {object} models.GameRound
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/matches/{id}/moves [post]
func (h *MatchHandler) SubmitMove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	round, err := h.matches.SubmitMove(c.Request.Context(), id, userID, req.RoundNumber, req.Move)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, round)
}

// StartMatch 开始比赛
// @Summary 开始比赛（仅参与者），对已开始的比赛幂等
// @Tags Matches
// @Security Bearer
// @Param id path int true "比赛ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/matches/{id}/start [post]
func (h *MatchHandler) StartMatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	match, err := h.matchRepo.FindByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "比赛不存在",
		})
		return
	}

	isParticipant := false
	for _, p := range match.Participants {
		if p.UserID == userID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		respondError(c, apperrors.New(apperrors.ErrPermissionDenied, "只有参与者可以开始比赛"))
		return
	}

	if err := h.matches.StartMatch(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "比赛已开始"})
}

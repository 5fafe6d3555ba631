package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
	"github.com/degen-space-organization/solana-game-sub000/internal/service"
)

// UserHandler 玩家处理器
type UserHandler struct {
	userService service.UserService
	stakeRepo   repository.StakeTransactionRepository
}

// NewUserHandler 创建玩家处理器
func NewUserHandler(userService service.UserService, stakeRepo repository.StakeTransactionRepository) *UserHandler {
	return &UserHandler{
		userService: userService,
		stakeRepo:   stakeRepo,
	}
}

// GetMe 获取当前玩家资料
// @Summary 获取当前玩家资料
// @Tags Users
// @Security Bearer
// @Success 200 {object} models.User
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateNicknameRequest 昵称修改请求
type UpdateNicknameRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// UpdateNickname 修改当前玩家昵称
// @Summary 修改当前玩家昵称
// @Tags Users
// @Security Bearer
// @Accept json
// @Param request body UpdateNicknameRequest true "昵称"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/users/me/nickname [put]
func (h *UserHandler) UpdateNickname(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.userService.UpdateNickname(c.Request.Context(), userID, req.Nickname); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "昵称修改成功"})
}

// GetMyStats 获取当前玩家战绩
// @Summary 获取当前玩家战绩统计
// @Tags Users
// @Security Bearer
// @Success 200 {object} service.UserStats
// @Router /api/v1/users/me/stats [get]
func (h *UserHandler) GetMyStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.userService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMyTransactions 获取当前玩家账务流水
// @Summary 获取当前玩家账务流水
// @Tags Users
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} gin.H
// @Router /api/v1/users/me/transactions [get]
func (h *UserHandler) GetMyTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pagination := paginationFromQuery(c)
	records, err := h.stakeRepo.ListByUser(c.Request.Context(), userID, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": records,
		"pagination":   pagination,
	})
}

// GetUser 查看玩家公开资料
// @Summary 查看玩家公开资料
// @Tags Users
// @Security Bearer
// @Param id path int true "玩家ID"
// @Success 200 {object} models.User
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetLeaderboard 胜场排行榜
// @Summary 胜场排行榜
// @Tags Users
// @Param limit query int false "返回条数，默认20"
// @Success 200 {object} gin.H
// @Router /api/v1/users/leaderboard [get]
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, err := h.userService.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": users})
}

// paginationFromQuery 从query参数构建分页
func paginationFromQuery(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, pageSize)
}

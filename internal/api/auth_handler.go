package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/degen-space-organization/solana-game-sub000/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// NonceRequest 随机数请求
type NonceRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// GenerateNonce 签发登录随机数
// @Summary 签发登录随机数
// @Description 为钱包地址签发一次性随机数，客户端用钱包私钥对返回的消息签名
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body NonceRequest true "钱包地址"
// @Success 200 {object} service.NonceResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/nonce [post]
func (h *AuthHandler) GenerateNonce(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.authService.GenerateNonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Authenticate 钱包签名登录
// @Summary 钱包签名登录
// @Description 验证钱包对随机数消息的签名，首次登录自动创建玩家档案
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body service.AuthRequest true "登录信息"
// @Success 200 {object} service.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req service.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.authService.Authenticate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

type OtpHandler struct {
	BaseHandler
	otpService services.OtpService
}

func NewOtpHandler(otpService services.OtpService, logger utils.Logger) *OtpHandler {
	return &OtpHandler{
		BaseHandler: NewBaseHandler(logger),
		otpService:  otpService,
	}
}

// SendOtp issues a verification code to a phone number
// @Summary Send verification code
// @Description Sends a one-time code by SMS. Subject to a resend cooldown and a per-phone send window.
// @Tags otp
// @Accept json
// @Produce json
// @Param request body services.SendOtpRequest true "Phone number"
// @Success 200 {object} services.SendOtpResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /otp/send [post]
func (h *OtpHandler) SendOtp(c *gin.Context) {
	var req services.SendOtpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.otpService.SendCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyOtp checks a code against the latest challenge for the phone
// @Summary Verify code
// @Tags otp
// @Accept json
// @Produce json
// @Param request body services.VerifyOtpRequest true "Phone and code"
// @Success 200 {object} services.VerifyOtpResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /otp/verify [post]
func (h *OtpHandler) VerifyOtp(c *gin.Context) {
	var req services.VerifyOtpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.otpService.VerifyCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

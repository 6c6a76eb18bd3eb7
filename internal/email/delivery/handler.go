package delivery

import (
	"errors"
	"net/http"
	"strconv"

	authdelivery "mail-triage-backend/internal/auth/delivery"
	emaildomain "mail-triage-backend/internal/email/domain"
	emaildto "mail-triage-backend/internal/email/dto"
	"mail-triage-backend/internal/email/usecase"
	"mail-triage-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
	logger       *zap.Logger
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
		logger:       logger,
	}
}

// FetchEmails returns the caller's most recent messages, each labelled general.
// GET /api/emails?limit=N
func (h *EmailHandler) FetchEmails(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	token := c.GetString(authdelivery.AccessTokenKey)
	if token == "" {
		token = authdelivery.BearerToken(c.GetHeader("Authorization"))
	}

	emails, err := h.emailUsecase.FetchEmails(c.Request.Context(), token, limit)
	if err != nil {
		status, body := fetchErrorResponse(err)
		logger.FromContext(c.Request.Context(), h.logger).Error("Error fetching emails",
			zap.Int("status", status), zap.Error(err))
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{Emails: emails})
}

func fetchErrorResponse(err error) (int, emaildto.ErrorResponse) {
	var authErr *emaildomain.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, emaildto.ErrorResponse{Message: "Unauthorized - No access token"}
	}

	kind, _ := emaildomain.UpstreamKindOf(err)
	switch kind {
	case emaildomain.UpstreamUnauthorized:
		return http.StatusUnauthorized, emaildto.ErrorResponse{Message: "Authentication failed - please sign in again"}
	case emaildomain.UpstreamForbidden:
		return http.StatusForbidden, emaildto.ErrorResponse{Message: "Gmail access not granted - please check permissions"}
	case emaildomain.UpstreamRateLimited:
		return http.StatusTooManyRequests, emaildto.ErrorResponse{Message: "Rate limit exceeded - please try again later"}
	}
	return http.StatusInternalServerError, emaildto.ErrorResponse{Message: "Error fetching emails", Error: err.Error()}
}

// ClassifyEmails labels every email in the request body.
// POST /api/emails/classify
func (h *EmailHandler) ClassifyEmails(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req emaildto.ClassifyEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("Invalid classify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"message":          "No emails provided for classification",
			"classifiedEmails": []emaildomain.Email{},
		})
		return
	}

	classified, err := h.emailUsecase.ClassifyEmails(c.Request.Context(), req.Emails, req.Credential())
	if err != nil {
		var vErr *emaildomain.ValidationError
		var cErr *emaildomain.ConfigError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"message":          vErr.Message,
				"classifiedEmails": []emaildomain.Email{},
			})
		case errors.As(err, &cErr):
			log.Error("Classification unavailable", zap.Error(err))
			detail := "Please provide a model API key in server configuration or in the request"
			if cErr.Err != nil {
				detail = cErr.Err.Error()
			}
			c.JSON(http.StatusInternalServerError, emaildto.ErrorResponse{Message: cErr.Message, Error: detail})
		default:
			log.Error("Error classifying emails", zap.Error(err))
			c.JSON(http.StatusInternalServerError, emaildto.ErrorResponse{Message: "Error classifying emails", Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, emaildto.ClassifyEmailsResponse{ClassifiedEmails: classified})
}

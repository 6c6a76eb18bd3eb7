package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/logger"
	"mail-triage-backend/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	providerName = "gmail"
	user         = "me"
	// Gmail API maximum for a single list call
	maxListResults = 500
)

type Service struct {
	endpoint string
	logger   *zap.Logger
}

// NewService creates the Gmail mail provider. An empty endpoint means the public Gmail API.
func NewService(endpoint string, logger *zap.Logger) *Service {
	return &Service{
		endpoint: endpoint,
		logger:   logger,
	}
}

func (s *Service) Name() string {
	return providerName
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	client := oauth2.NewClient(ctx, tokenSource)

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Open builds a client for accessToken and checks mailbox access through the profile endpoint.
func (s *Service) Open(ctx context.Context, accessToken string) (emaildomain.MailSession, error) {
	if accessToken == "" {
		return nil, emaildomain.ErrNoCredential
	}

	srv, err := s.GetGmailService(ctx, accessToken)
	if err != nil {
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamOther, "create client", err)
	}

	profile, err := srv.Users.GetProfile(user).Context(ctx).Do()
	metrics.RecordMailProviderRequest(providerName, "profile", err)
	if err != nil {
		return nil, wrapError("get profile", err)
	}

	logger.FromContext(ctx, s.logger).Debug("Gmail access verified",
		zap.String("email", profile.EmailAddress),
		zap.Int64("messages_total", profile.MessagesTotal),
	)

	return &session{srv: srv}, nil
}

type session struct {
	srv *gmail.Service
}

func (ss *session) ListMessageIDs(ctx context.Context, limit int) ([]string, error) {
	if limit > maxListResults {
		limit = maxListResults
	}

	resp, err := ss.srv.Users.Messages.List(user).MaxResults(int64(limit)).Context(ctx).Do()
	metrics.RecordMailProviderRequest(providerName, "list", err)
	if err != nil {
		return nil, wrapError("list messages", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

func (ss *session) GetMessage(ctx context.Context, id string) (*emaildomain.RawMessage, error) {
	msg, err := ss.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	metrics.RecordMailProviderRequest(providerName, "get", err)
	if err != nil {
		return nil, wrapError("get message", err)
	}
	return convertGmailMessage(msg), nil
}

func (ss *session) Close() error {
	return nil
}

func convertGmailMessage(msg *gmail.Message) *emaildomain.RawMessage {
	raw := &emaildomain.RawMessage{ID: msg.Id}
	if msg.Payload == nil {
		return raw
	}

	raw.Headers = make([]emaildomain.Header, 0, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, emaildomain.Header{Name: h.Name, Value: h.Value})
	}
	raw.Body = getPlainTextBody(msg.Payload)
	return raw
}

// getPlainTextBody concatenates every text/plain part in document order. A payload
// without parts is decoded directly. Parts that fail to decode are skipped.
func getPlainTextBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) == 0 {
		if payload.Body == nil || payload.Body.Data == "" {
			return ""
		}
		text, err := decodeBody(payload.Body.Data)
		if err != nil {
			return ""
		}
		return text
	}

	var sb strings.Builder
	var findPlain func(parts []*gmail.MessagePart)
	findPlain = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part == nil {
				continue
			}
			if strings.EqualFold(part.MimeType, "text/plain") && part.Body != nil && part.Body.Data != "" {
				if text, err := decodeBody(part.Body.Data); err == nil {
					sb.WriteString(text)
				}
			}
			if len(part.Parts) > 0 {
				findPlain(part.Parts)
			}
		}
	}
	findPlain(payload.Parts)

	return sb.String()
}

var bodyEncodings = []*base64.Encoding{
	base64.URLEncoding,
	base64.RawURLEncoding,
	base64.StdEncoding,
	base64.RawStdEncoding,
}

// decodeBody decodes Gmail body data, which is base64url but not always padded.
func decodeBody(data string) (string, error) {
	var lastErr error
	for _, enc := range bodyEncodings {
		decoded, err := enc.DecodeString(data)
		if err == nil {
			return string(decoded), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("decode body: %w", lastErr)
}

// wrapError maps a Gmail API error onto the upstream error kinds callers branch on.
func wrapError(op string, err error) *emaildomain.UpstreamError {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return emaildomain.NewUpstreamError(emaildomain.UpstreamOther, op, err)
	}

	switch apiErr.Code {
	case http.StatusUnauthorized:
		return emaildomain.NewUpstreamError(emaildomain.UpstreamUnauthorized, op, err)
	case http.StatusTooManyRequests:
		return emaildomain.NewUpstreamError(emaildomain.UpstreamRateLimited, op, err)
	case http.StatusForbidden:
		if isRateLimited(apiErr) {
			return emaildomain.NewUpstreamError(emaildomain.UpstreamRateLimited, op, err)
		}
		return emaildomain.NewUpstreamError(emaildomain.UpstreamForbidden, op, err)
	default:
		return emaildomain.NewUpstreamError(emaildomain.UpstreamOther, op, err)
	}
}

func isRateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

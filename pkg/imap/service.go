package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/logger"
	"mail-triage-backend/pkg/metrics"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"go.uber.org/zap"
)

const providerName = "imap"

type Config struct {
	Address string
	TLS     bool
	Mailbox string
	// Username is sent with OAUTHBEARER, or with LOGIN when Password is set.
	Username string
	// Password switches authentication from the caller's bearer token to a fixed app password.
	Password string
}

type Service struct {
	cfg    Config
	logger *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Service{cfg: cfg, logger: logger}
}

func (s *Service) Name() string {
	return providerName
}

// Open dials the server, authenticates and selects the mailbox read-only.
func (s *Service) Open(ctx context.Context, accessToken string) (emaildomain.MailSession, error) {
	if accessToken == "" {
		return nil, emaildomain.ErrNoCredential
	}

	dialer := &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var (
		c   *client.Client
		err error
	)
	if s.cfg.TLS {
		host, _, _ := net.SplitHostPort(s.cfg.Address)
		c, err = client.DialWithDialerTLS(dialer, s.cfg.Address, &tls.Config{ServerName: host})
	} else {
		c, err = client.DialWithDialer(dialer, s.cfg.Address)
	}
	metrics.RecordMailProviderRequest(providerName, "dial", err)
	if err != nil {
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamOther, "dial", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if s.cfg.Password != "" {
		err = c.Login(s.cfg.Username, s.cfg.Password)
	} else {
		err = c.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: s.cfg.Username,
			Token:    accessToken,
		}))
	}
	metrics.RecordMailProviderRequest(providerName, "authenticate", err)
	if err != nil {
		_ = c.Logout()
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamUnauthorized, "authenticate", err)
	}

	status, err := c.Select(s.cfg.Mailbox, true)
	metrics.RecordMailProviderRequest(providerName, "select", err)
	if err != nil {
		_ = c.Logout()
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamForbidden, "select "+s.cfg.Mailbox, err)
	}

	logger.FromContext(ctx, s.logger).Debug("IMAP mailbox selected",
		zap.String("mailbox", status.Name),
		zap.Uint32("messages", status.Messages),
	)

	return &session{c: c, messages: status.Messages}, nil
}

type session struct {
	// go-imap v1 commands on one connection are issued one at a time
	mu       sync.Mutex
	c        *client.Client
	messages uint32
}

// ListMessageIDs returns UIDs of the newest limit messages, newest first.
func (ss *session) ListMessageIDs(_ context.Context, limit int) ([]string, error) {
	if ss.messages == 0 || limit <= 0 {
		return []string{}, nil
	}

	from := uint32(1)
	if ss.messages > uint32(limit) {
		from = ss.messages - uint32(limit) + 1
	}
	seqSet := new(goimap.SeqSet)
	seqSet.AddRange(from, ss.messages)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	messages := make(chan *goimap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- ss.c.Fetch(seqSet, []goimap.FetchItem{goimap.FetchUid}, messages)
	}()

	type entry struct {
		seq uint32
		uid uint32
	}
	entries := make([]entry, 0, limit)
	for msg := range messages {
		entries = append(entries, entry{seq: msg.SeqNum, uid: msg.Uid})
	}
	err := <-done
	metrics.RecordMailProviderRequest(providerName, "list", err)
	if err != nil {
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamOther, "list messages", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strconv.FormatUint(uint64(e.uid), 10))
	}
	return ids, nil
}

func (ss *session) GetMessage(_ context.Context, id string) (*emaildomain.RawMessage, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", id, err)
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uint32(uid))
	section := &goimap.BodySectionName{Peek: true}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- ss.c.UidFetch(seqSet, []goimap.FetchItem{goimap.FetchUid, section.FetchItem()}, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if literal := msg.GetBody(section); literal != nil && raw == nil {
			raw, readErr = io.ReadAll(literal)
		}
	}
	err = <-done
	metrics.RecordMailProviderRequest(providerName, "get", err)
	if err != nil {
		return nil, emaildomain.NewUpstreamError(emaildomain.UpstreamOther, "get message", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read message %s: %w", id, readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}

	parsed := parseMessage(raw)
	parsed.ID = id
	return parsed, nil
}

func (ss *session) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.c.Logout()
}

// parseMessage reads headers and the concatenated text/plain parts of an RFC 5322 message.
// A message that cannot be parsed yields no headers and an empty body.
func parseMessage(raw []byte) *emaildomain.RawMessage {
	out := &emaildomain.RawMessage{}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return out
	}
	defer mr.Close()

	fields := mr.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out.Headers = append(out.Headers, emaildomain.Header{Name: fields.Key(), Value: value})
	}

	var sb strings.Builder
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if (err != nil && !message.IsUnknownCharset(err)) || part == nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.EqualFold(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		sb.Write(body)
	}
	out.Body = sb.String()

	return out
}

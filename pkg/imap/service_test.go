package imap

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

func startServer(t *testing.T) string {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	be.Err(t, err, nil)

	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return l.Addr().String()
}

func TestServiceAgainstMemoryServer(t *testing.T) {
	addr := startServer(t)
	svc := NewService(Config{Address: addr, Username: "username", Password: "password"}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := svc.Open(ctx, "ignored-with-password")
	be.Err(t, err, nil)
	defer sess.Close()

	ids, err := sess.ListMessageIDs(ctx, 15)
	be.Err(t, err, nil)
	be.Equal(t, len(ids), 1)

	msg, err := sess.GetMessage(ctx, ids[0])
	be.Err(t, err, nil)

	email := msg.ToEmail()
	be.Equal(t, email.ID, ids[0])
	be.Equal(t, email.Subject, "A little message, just for you")
	be.Equal(t, email.Sender, "contact@example.org")
	be.Equal(t, strings.TrimSpace(email.Body), "Hi there :)")

	_, err = sess.GetMessage(ctx, "not-a-uid")
	be.Err(t, err)
}

func TestServiceOpenBadPassword(t *testing.T) {
	addr := startServer(t)
	svc := NewService(Config{Address: addr, Username: "username", Password: "wrong"}, zap.NewNop())

	_, err := svc.Open(context.Background(), "token")
	kind, ok := emaildomain.UpstreamKindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, emaildomain.UpstreamUnauthorized)
}

func TestServiceOpenWithoutCredential(t *testing.T) {
	svc := NewService(Config{Address: "127.0.0.1:1"}, zap.NewNop())
	_, err := svc.Open(context.Background(), "")
	be.Err(t, err, emaildomain.ErrNoCredential)
}

func TestServiceOpenUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	be.Err(t, err, nil)
	addr := l.Addr().String()
	_ = l.Close()

	svc := NewService(Config{Address: addr}, zap.NewNop())
	_, err = svc.Open(context.Background(), "token")
	kind, ok := emaildomain.UpstreamKindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, emaildomain.UpstreamOther)
}

func TestParseMessage(t *testing.T) {
	t.Run("multipart alternative", func(t *testing.T) {
		raw := strings.Join([]string{
			"From: Shop <shop@example.com>",
			"Subject: =?UTF-8?Q?50=25_off!?=",
			"MIME-Version: 1.0",
			`Content-Type: multipart/alternative; boundary="b1"`,
			"",
			"--b1",
			"Content-Type: text/html; charset=utf-8",
			"",
			"<b>Buy now</b>",
			"--b1",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"Buy now",
			"--b1--",
			"",
		}, "\r\n")

		msg := parseMessage([]byte(raw))
		email := msg.ToEmail()
		be.Equal(t, email.Subject, "50% off!")
		be.Equal(t, email.Sender, "Shop <shop@example.com>")
		be.Equal(t, email.Body, "Buy now")
	})
	t.Run("quoted printable single part", func(t *testing.T) {
		raw := strings.Join([]string{
			"Subject: Hello",
			"Content-Type: text/plain; charset=utf-8",
			"Content-Transfer-Encoding: quoted-printable",
			"",
			"caf=C3=A9",
		}, "\r\n")

		msg := parseMessage([]byte(raw))
		be.Equal(t, msg.Body, "café")
		be.Equal(t, msg.ToEmail().Sender, emaildomain.DefaultSender)
	})
	t.Run("html only", func(t *testing.T) {
		raw := "Content-Type: text/html\r\n\r\n<p>x</p>"
		be.Equal(t, parseMessage([]byte(raw)).Body, "")
	})
}

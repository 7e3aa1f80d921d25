package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

const (
	dialTimeout  = 30 * time.Second
	loginTimeout = 30 * time.Second
	fetchTimeout = 60 * time.Second
)

// connect establishes an authenticated IMAP session for the account.
// The caller owns the returned client and must Logout when done.
func (s *IMAPSource) connect(ctx context.Context, account interfaces.MailAccount) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSource.connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", account.ImapServer)
	span.SetTag("port", account.ImapPort)

	serverAddr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialTimeout,
	}

	var c *client.Client
	var err error

	if account.ImapSecurity == "none" {
		c, err = client.DialWithDialer(dialer, serverAddr)
	} else {
		tlsConfig := &tls.Config{
			ServerName: account.ImapServer,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	if _, err = c.Capability(); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}

	c.Timeout = loginTimeout
	if err = c.Login(account.ImapUsername, account.ImapPassword); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to login as %s: %w", account.ImapUsername, err)
	}
	c.Timeout = 0

	return c, nil
}

package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/seido-app/courier/internal/domain"
	"github.com/seido-app/courier/internal/ports"
)

// Dialer opens IMAP sessions for mailbox connections. Dial and every
// subsequent command carry bounded timeouts; a dead server surfaces as an
// error, never a hang.
type Dialer struct {
	dialTimeout    time.Duration
	commandTimeout time.Duration
}

func NewDialer(dialTimeout, commandTimeout time.Duration) *Dialer {
	if dialTimeout <= 0 {
		dialTimeout = 15 * time.Second
	}
	if commandTimeout <= 0 {
		commandTimeout = 60 * time.Second
	}
	return &Dialer{dialTimeout: dialTimeout, commandTimeout: commandTimeout}
}

func (d *Dialer) Dial(ctx context.Context, conn domain.MailConnection, creds ports.PlainCredentials) (ports.MailboxSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	netDialer := &net.Dialer{Timeout: d.dialTimeout}

	var (
		c   *client.Client
		err error
	)
	if conn.UseTLS {
		c, err = client.DialWithDialerTLS(netDialer, addr, &tls.Config{ServerName: conn.Host})
	} else {
		c, err = client.DialWithDialer(netDialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.Timeout = d.commandTimeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login %s: %w", creds.Username, err)
	}

	folder := conn.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := c.Select(folder, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	return &session{c: c, host: conn.Host}, nil
}

type session struct {
	c    *client.Client
	host string
}

func (s *session) Close() error {
	return s.c.Logout()
}

// FetchSince searches UIDs above the cursor (or by internal date for virgin
// connections) and fetches envelope, internal date and the full body section
// for each hit, returning messages in UID order.
func (s *session) FetchSince(ctx context.Context, lastUID uint32, since *time.Time) ([]ports.FetchedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := goimap.NewSearchCriteria()
	switch {
	case lastUID > 0:
		seq := new(goimap.SeqSet)
		seq.AddRange(lastUID+1, 0)
		criteria.Uid = seq
	case since != nil:
		criteria.Since = *since
	default:
		seq := new(goimap.SeqSet)
		seq.AddRange(1, 0)
		criteria.Uid = seq
	}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("uid search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchInternalDate,
		goimap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, messages)
	}()

	out := make([]ports.FetchedMessage, 0, len(uids))
	for msg := range messages {
		out = append(out, parseMessage(msg, section, s.host))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("uid fetch: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Package imap wraps github.com/emersion/go-imap into the mailbox
// operations the original Rust imap tool exposed: listing mailboxes,
// checking status, searching, and fetching headers or full messages.
package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"sort"
	"time"

	goimap "github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Config names the server and credentials for one connection. Password
// is never taken directly as a tool argument (an LLM's tool-call
// arguments are model-visible and may be logged); it is read from the
// named environment variable instead, following the original CLI's
// "never accept the password as a plain argument" rule, adapted from
// an interactive terminal prompt to a non-interactive env lookup.
type Config struct {
	Host        string
	Port        int
	Username    string
	PasswordEnv string
	UseTLS      bool
	Timeout     time.Duration
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		if c.UseTLS {
			port = 993
		} else {
			port = 143
		}
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c Config) password() (string, error) {
	name := c.PasswordEnv
	if name == "" {
		name = "IMAP_PASSWORD"
	}
	password := os.Getenv(name)
	if password == "" {
		return "", fmt.Errorf("imap: password env var %q is unset", name)
	}
	return password, nil
}

// Client is a connected, authenticated IMAP session.
type Client struct {
	conn *imapclient.Client
}

// Connect dials, optionally over TLS, and logs in using cfg.
func Connect(cfg Config) (*Client, error) {
	password, err := cfg.password()
	if err != nil {
		return nil, err
	}

	var conn *imapclient.Client
	if cfg.UseTLS {
		conn, err = imapclient.DialTLS(cfg.addr(), &tls.Config{ServerName: cfg.Host})
	} else {
		conn, err = imapclient.Dial(cfg.addr())
	}
	if err != nil {
		return nil, fmt.Errorf("imap: dial %s: %w", cfg.addr(), err)
	}
	if cfg.Timeout > 0 {
		conn.Timeout = cfg.Timeout
	}

	if err := conn.Login(cfg.Username, password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imap: login: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close logs out and closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Logout(); err != nil {
		return err
	}
	return nil
}

// ListMailboxes lists mailboxes matching pattern ("*" for all).
func (c *Client) ListMailboxes(pattern string) ([]MailboxInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	mailboxes := make(chan *goimap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.List("", pattern, mailboxes)
	}()

	var result []MailboxInfo
	for mb := range mailboxes {
		flags := make([]string, len(mb.Attributes))
		for i, a := range mb.Attributes {
			flags[i] = string(a)
		}
		result = append(result, MailboxInfo{Name: mb.Name, Delimiter: mb.Delimiter, Flags: flags})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: list mailboxes: %w", err)
	}
	return result, nil
}

// MailboxStatus returns message counts and UID state for mailbox.
func (c *Client) MailboxStatus(mailbox string) (*MailboxStatusInfo, error) {
	status, err := c.conn.Status(mailbox, []goimap.StatusItem{
		goimap.StatusMessages, goimap.StatusRecent, goimap.StatusUnseen,
		goimap.StatusUidNext, goimap.StatusUidValidity,
	})
	if err != nil {
		return nil, fmt.Errorf("imap: status %s: %w", mailbox, err)
	}
	return &MailboxStatusInfo{
		Mailbox:     mailbox,
		Messages:    status.Messages,
		Recent:      status.Recent,
		Unseen:      status.Unseen,
		UIDNext:     status.UidNext,
		UIDValidity: status.UidValidity,
	}, nil
}

// SearchEmails returns matching UIDs, most recent first, capped at limit
// (0 means unlimited).
func (c *Client) SearchEmails(mailbox string, criteria SearchCriteria, limit int) ([]uint32, error) {
	if _, err := c.conn.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("imap: select %s: %w", mailbox, err)
	}

	query, err := buildSearchCriteria(criteria)
	if err != nil {
		return nil, err
	}

	uids, err := c.conn.UidSearch(query)
	if err != nil {
		return nil, fmt.Errorf("imap: search: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}
	return uids, nil
}

func buildSearchCriteria(criteria SearchCriteria) (*goimap.SearchCriteria, error) {
	query := goimap.NewSearchCriteria()
	query.Header = textproto.MIMEHeader{}
	if criteria.From != "" {
		query.Header.Set("From", criteria.From)
	}
	if criteria.To != "" {
		query.Header.Set("To", criteria.To)
	}
	if criteria.Subject != "" {
		query.Header.Set("Subject", criteria.Subject)
	}
	if criteria.SinceDate != "" {
		t, err := time.Parse("02-Jan-2006", criteria.SinceDate)
		if err != nil {
			return nil, fmt.Errorf("imap: since_date must be DD-Mon-YYYY: %w", err)
		}
		query.Since = t
	}
	if criteria.BeforeDate != "" {
		t, err := time.Parse("02-Jan-2006", criteria.BeforeDate)
		if err != nil {
			return nil, fmt.Errorf("imap: before_date must be DD-Mon-YYYY: %w", err)
		}
		query.Before = t
	}
	if criteria.UnseenOnly {
		query.WithoutFlags = append(query.WithoutFlags, goimap.SeenFlag)
	}
	return query, nil
}

// FetchHeaders fetches envelope metadata for uids without their bodies.
func (c *Client) FetchHeaders(mailbox string, uids []uint32) ([]EmailHeader, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	if _, err := c.conn.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("imap: select %s: %w", mailbox, err)
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *goimap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqset, []goimap.FetchItem{
			goimap.FetchUid, goimap.FetchEnvelope, goimap.FetchFlags,
			goimap.FetchInternalDate, goimap.FetchRFC822Size,
		}, messages)
	}()

	var headers []EmailHeader
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		headers = append(headers, EmailHeader{
			UID:     msg.Uid,
			Subject: msg.Envelope.Subject,
			From:    formatAddresses(msg.Envelope.From),
			To:      formatAddresses(msg.Envelope.To),
			Date:    msg.Envelope.Date.Format(time.RFC1123Z),
			Flags:   msg.Flags,
			Size:    msg.Size,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: fetch headers: %w", err)
	}
	return headers, nil
}

func formatAddresses(addrs []*goimap.Address) []string {
	var out []string
	for _, a := range addrs {
		if a.MailboxName == "" || a.HostName == "" {
			continue
		}
		addr := a.MailboxName + "@" + a.HostName
		if a.PersonalName != "" {
			out = append(out, a.PersonalName+" <"+addr+">")
		} else {
			out = append(out, addr)
		}
	}
	return out
}

// FetchEmail fetches and parses uid's full message body.
func (c *Client) FetchEmail(mailbox string, uid uint32, includeHTML, includeText bool) (*EmailContent, error) {
	if _, err := c.conn.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("imap: select %s: %w", mailbox, err)
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uid)

	section := &goimap.BodySectionName{}
	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqset, []goimap.FetchItem{section.FetchItem()}, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap: fetch email %d: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("imap: email %d not found", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("imap: email %d has no body", uid)
	}
	return parseEmailBody(body, includeHTML, includeText)
}

func parseEmailBody(r io.Reader, includeHTML, includeText bool) (*EmailContent, error) {
	reader, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("imap: parse email: %w", err)
	}

	content := &EmailContent{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("imap: parse email part: %w", err)
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("imap: read email part: %w", err)
			}
			switch {
			case contentType == "text/html" && includeHTML:
				content.HTMLBody = string(data)
			case contentType != "text/html" && includeText:
				content.TextBody = string(data)
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			contentType, _, _ := header.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("imap: read attachment: %w", err)
			}
			content.Attachments = append(content.Attachments, AttachmentInfo{
				Filename:    filename,
				ContentType: contentType,
				Size:        len(data),
			})
		}
	}
	return content, nil
}

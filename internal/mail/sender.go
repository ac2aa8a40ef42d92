package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers the run report over SMTP.
type Sender struct {
	addr  string
	host  string
	from  string
	creds CredentialProvider
}

// NewSender creates an SMTP sender. Server is "host" or "host:port"; port
// defaults to 25.
func NewSender(server, from string, creds CredentialProvider) (*Sender, error) {
	if server == "" {
		return nil, fmt.Errorf("SMTP server is required")
	}
	if from == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	if creds == nil {
		creds = Static{}
	}

	host, _, err := net.SplitHostPort(server)
	addr := server
	if err != nil {
		// No port given (or a bare IPv6 literal); default to 25.
		host = server
		addr = net.JoinHostPort(server, "25")
	}

	return &Sender{
		addr:  addr,
		host:  host,
		from:  from,
		creds: creds,
	}, nil
}

// Send delivers one plain-text message to all recipients.
func (s *Sender) Send(subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	creds, err := s.creds.Credentials()
	if err != nil {
		return fmt.Errorf("failed to obtain SMTP credentials: %w", err)
	}

	var auth smtp.Auth
	if creds.Username != "" {
		auth = smtp.PlainAuth("", creds.Username, creds.Password, s.host)
	}

	message := BuildMessage(s.from, recipients, subject, body)

	if err := smtp.SendMail(s.addr, auth, s.from, recipients, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// BuildMessage assembles the raw RFC 822 message.
func BuildMessage(from string, to []string, subject, body string) string {
	return fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s", from, strings.Join(to, ", "), subject, body)
}

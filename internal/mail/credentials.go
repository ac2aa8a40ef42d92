package mail

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Credentials are SMTP credentials. Empty Username means the message is
// handed to the relay unauthenticated, i.e. on the ambient service identity.
type Credentials struct {
	Username string
	Password string
}

// CredentialProvider supplies SMTP credentials at send time. The run
// configuration decides which variant to construct, so the choice between
// ambient identity and an explicit login lives in one place.
type CredentialProvider interface {
	Credentials() (Credentials, error)
}

// Static returns fixed credentials, typically the service identity from the
// environment. Both fields may be empty.
type Static struct {
	Username string
	Password string
}

func (s Static) Credentials() (Credentials, error) {
	return Credentials{Username: s.Username, Password: s.Password}, nil
}

// Interactive prompts the operator for credentials on first use and caches
// them for the rest of the process, so a scheduled run only asks once.
type Interactive struct {
	In  io.Reader
	Out io.Writer

	cached *Credentials
}

func (p *Interactive) Credentials() (Credentials, error) {
	if p.cached != nil {
		return *p.cached, nil
	}

	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}

	reader := bufio.NewReader(in)

	fmt.Fprint(out, "SMTP username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Fprint(out, "SMTP password: ")
	password, err := readPassword(in, reader)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(out)

	p.cached = &Credentials{Username: username, Password: password}
	return *p.cached, nil
}

// readPassword suppresses echo when the input is a terminal and falls back
// to plain line reading otherwise (pipes, tests).
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

package mail

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("reaper@example.com", []string{"ops@example.com", "infra@example.com"}, "report", "body text")

	assert.True(t, strings.HasPrefix(msg, "From: reaper@example.com\r\n"))
	assert.Contains(t, msg, "To: ops@example.com, infra@example.com\r\n")
	assert.Contains(t, msg, "Subject: report\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody text"))
}

func TestNewSender(t *testing.T) {
	t.Run("defaults port to 25", func(t *testing.T) {
		s, err := NewSender("smtp.example.com", "reaper@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, "smtp.example.com:25", s.addr)
		assert.Equal(t, "smtp.example.com", s.host)
	})

	t.Run("keeps explicit port", func(t *testing.T) {
		s, err := NewSender("smtp.example.com:587", "reaper@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, "smtp.example.com:587", s.addr)
		assert.Equal(t, "smtp.example.com", s.host)
	})

	t.Run("ipv6 literal with port", func(t *testing.T) {
		s, err := NewSender("[::1]:587", "reaper@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, "[::1]:587", s.addr)
		assert.Equal(t, "::1", s.host)
	})

	t.Run("bare ipv6 literal defaults port", func(t *testing.T) {
		s, err := NewSender("::1", "reaper@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, "[::1]:25", s.addr)
		assert.Equal(t, "::1", s.host)
	})

	t.Run("missing server", func(t *testing.T) {
		_, err := NewSender("", "reaper@example.com", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SMTP server is required")
	})

	t.Run("missing from", func(t *testing.T) {
		_, err := NewSender("smtp.example.com", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sender address is required")
	})
}

func TestSendRequiresRecipients(t *testing.T) {
	s, err := NewSender("smtp.example.com", "reaper@example.com", nil)
	require.NoError(t, err)
	err = s.Send("subject", "body", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}

func TestStaticCredentials(t *testing.T) {
	creds, err := Static{Username: "user", Password: "pass"}.Credentials()
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "user", Password: "pass"}, creds)
}

func TestStaticCredentialsEmptyMeansAmbient(t *testing.T) {
	creds, err := Static{}.Credentials()
	require.NoError(t, err)
	assert.Empty(t, creds.Username)
}

func TestInteractiveCredentials(t *testing.T) {
	var out bytes.Buffer
	p := &Interactive{
		In:  strings.NewReader("alice\nsecret\n"),
		Out: &out,
	}

	creds, err := p.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "secret", creds.Password)
	assert.Contains(t, out.String(), "SMTP username:")
	assert.Contains(t, out.String(), "SMTP password:")
}

func TestInteractiveCredentialsCached(t *testing.T) {
	// Reader is exhausted after the first prompt; a second call must not
	// touch it again.
	p := &Interactive{
		In:  strings.NewReader("alice\nsecret\n"),
		Out: &bytes.Buffer{},
	}

	first, err := p.Credentials()
	require.NoError(t, err)

	second, err := p.Credentials()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

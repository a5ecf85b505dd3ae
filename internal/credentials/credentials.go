// Package credentials resolves the database password. The order is fixed:
// a password embedded in the connection string, then the POSTGRES_PASSWORD
// environment variable, then an interactive prompt.
package credentials

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordEnv is consulted when the connection string carries no password.
const PasswordEnv = "POSTGRES_PASSWORD"

// ErrNoTerminal indicates a prompt was needed but stdin is not a terminal.
var ErrNoTerminal = errors.New("no password available and stdin is not a terminal")

// Source identifies where a password came from.
type Source string

// Password sources, in resolution order.
const (
	SourceURL    Source = "connection string"
	SourceEnv    Source = "environment"
	SourcePrompt Source = "prompt"
)

// Prompter asks the operator for a password.
type Prompter interface {
	Prompt(message string) (string, error)
}

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// Resolve returns the password for dsn following the fixed resolution order.
// redacted is shown in the prompt instead of the raw connection string.
func Resolve(dsn, redacted string, lookupEnv LookupEnvFunc, p Prompter) (string, Source, error) {
	if pw := passwordFromDSN(dsn); pw != "" {
		return pw, SourceURL, nil
	}

	if pw, ok := lookupEnv(PasswordEnv); ok && pw != "" {
		return pw, SourceEnv, nil
	}

	pw, err := p.Prompt(fmt.Sprintf("Password for %s: ", redacted))
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}

	return pw, SourcePrompt, nil
}

// passwordFromDSN extracts an embedded password from a URL or key/value DSN.
// Parsing errors yield no password; connecting reports them properly later.
func passwordFromDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return ""
		}

		pw, _ := u.User.Password()

		return pw
	}

	return keywordValue(dsn)["password"]
}

// keywordValue splits a libpq key/value connection string. Spaces around "="
// are allowed, values may be single-quoted, and a backslash escapes the next
// character. Malformed input yields whatever was parsed before the error.
func keywordValue(dsn string) map[string]string {
	settings := make(map[string]string)
	s := strings.TrimLeft(dsn, " \t\n\r")

	for s != "" {
		eq := strings.IndexRune(s, '=')
		if eq < 0 {
			return settings
		}

		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t\n\r")

		var (
			value strings.Builder
			i     int
		)

		quoted := strings.HasPrefix(s, "'")
		if quoted {
			i = 1
		}

		for ; i < len(s); i++ {
			c := s[i]

			if c == '\\' && i+1 < len(s) {
				i++
				value.WriteByte(s[i])

				continue
			}

			if quoted && c == '\'' {
				i++

				break
			}

			if !quoted && (c == ' ' || c == '\t' || c == '\n' || c == '\r') {
				break
			}

			value.WriteByte(c)
		}

		settings[key] = value.String()
		s = strings.TrimLeft(s[min(i, len(s)):], " \t\n\r")
	}

	return settings
}

// TerminalPrompter reads a password from a terminal without echo.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Prompt writes message and reads one line without echoing it.
func (t *TerminalPrompter) Prompt(message string) (string, error) {
	fd := int(t.In.Fd()) //nolint:gosec // file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}

	fmt.Fprint(t.Out, message)

	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(t.Out)

	if err != nil {
		return "", err
	}

	return string(pw), nil
}

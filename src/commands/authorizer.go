package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"monzo-manager/src/apperrors"
)

// ConsoleAuthorizer walks the user through the OAuth flow on a terminal. The
// authorization code may be pasted on its own or as the full redirect URL.
type ConsoleAuthorizer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleAuthorizer(in io.Reader, out io.Writer) *ConsoleAuthorizer {
	return &ConsoleAuthorizer{in: bufio.NewReader(in), out: out}
}

func (a *ConsoleAuthorizer) PresentAuthorizationURL(authURL string) error {
	_, err := fmt.Fprintf(a.out, "Open this link in a browser and log in to Monzo:\n\n  %s\n\n", authURL)
	return err
}

func (a *ConsoleAuthorizer) AwaitAuthorizationCode(ctx context.Context) (string, error) {
	fmt.Fprint(a.out, "Paste the code (or the URL you were redirected to): ")
	line, err := a.readLine(ctx)
	if err != nil {
		return "", err
	}
	code := extractCode(line)
	if code == "" {
		return "", apperrors.Validation("no authorization code entered")
	}
	return code, nil
}

func (a *ConsoleAuthorizer) AwaitUserConfirmation(ctx context.Context) error {
	fmt.Fprint(a.out, "Approve access in the Monzo app, then press Enter: ")
	_, err := a.readLine(ctx)
	return err
}

func (a *ConsoleAuthorizer) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := a.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("reading input: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}

func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		return u.Query().Get("code")
	}
	return input
}

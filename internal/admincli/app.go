// Package admincli implements the operator command-line tool: key
// generation and derivation, plus offline issuing and inspection of
// consent tokens. Revocation is a server-side concern and goes through
// the HTTP API.
package admincli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/cryptox"
	"github.com/hushh-ai/consentvault/internal/shared"
)

const usage = `usage: consentvault-admin <command> [flags]

commands:
  keygen       generate a random vault root key
  derive-key   derive a root key from a passphrase (prompted)
  issue        issue a consent token
  verify       verify a consent token and print its claims
`

// App runs admin subcommands. The signing secret comes from the
// SIGNING_SECRET environment variable, falling back to a terminal prompt.
type App struct {
	out    io.Writer
	getenv func(string) string
}

func NewApp(out io.Writer) *App {
	return &App{out: out, getenv: os.Getenv}
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "keygen":
		return a.runKeygen()
	case "derive-key":
		return a.runDeriveKey(args[1:])
	case "issue":
		return a.runIssue(args[1:])
	case "verify":
		return a.runVerify(ctx, args[1:])
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) runKeygen() error {
	key, err := shared.MakeRandHexString(cryptox.KeySize)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, key)
	return nil
}

func (a *App) runDeriveKey(args []string) error {
	fs := flag.NewFlagSet("derive-key", flag.ContinueOnError)
	saltHex := fs.String("salt", "", "salt, hex encoded (random when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *saltHex == "" {
		s, err := shared.MakeRandHexString(16)
		if err != nil {
			return err
		}
		*saltHex = s
	}
	salt, err := hex.DecodeString(*saltHex)
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}

	passphrase, err := getSecret("Enter passphrase", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(passphrase)

	key := cryptox.DeriveKey(passphrase, salt)
	fmt.Fprintf(a.out, "salt: %s\nkey:  %s\n", *saltHex, hex.EncodeToString(key))
	return nil
}

func (a *App) runIssue(args []string) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	agentID := fs.String("agent", "", "agent id")
	scopeRaw := fs.String("scope", "", "consent scope")
	ttlRaw := fs.Duration("ttl", 0, "token lifetime (0 means never expires)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" || *agentID == "" {
		return fmt.Errorf("-user and -agent are required")
	}

	scope, err := consent.ParseScope(*scopeRaw)
	if err != nil {
		return err
	}

	secret, err := a.signingSecret()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(secret)

	var ttl *time.Duration
	if *ttlRaw > 0 {
		ttl = ttlRaw
	}

	svc := consent.NewService(secret, consent.NewMemoryRevocationList())
	tok, tokenString, err := svc.Issue(*userID, *agentID, scope, ttl)
	if err != nil {
		return err
	}

	return a.printJSON(map[string]any{
		"token":      tokenString,
		"token_id":   tok.ID,
		"user_id":    tok.UserID,
		"agent_id":   tok.AgentID,
		"scope":      tok.Scope,
		"issued_at":  tok.IssuedAt,
		"expires_at": tok.ExpiresAt,
	})
}

func (a *App) runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	tokenString := fs.String("token", "", "token to verify")
	scopeRaw := fs.String("scope", "", "expected scope (optional)")
	userID := fs.String("user", "", "expected user id (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tokenString == "" {
		return fmt.Errorf("-token is required")
	}

	var scope consent.Scope
	if *scopeRaw != "" {
		s, err := consent.ParseScope(*scopeRaw)
		if err != nil {
			return err
		}
		scope = s
	}

	secret, err := a.signingSecret()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(secret)

	svc := consent.NewService(secret, consent.NewMemoryRevocationList())
	tok, err := svc.Verify(ctx, *tokenString, scope, *userID)
	if err != nil {
		return err
	}

	return a.printJSON(map[string]any{
		"valid":      true,
		"token_id":   tok.ID,
		"user_id":    tok.UserID,
		"agent_id":   tok.AgentID,
		"scope":      tok.Scope,
		"issued_at":  tok.IssuedAt,
		"expires_at": tok.ExpiresAt,
	})
}

func (a *App) signingSecret() ([]byte, error) {
	if s := a.getenv("SIGNING_SECRET"); s != "" {
		return []byte(s), nil
	}
	return getSecret("Enter signing secret", a.out)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

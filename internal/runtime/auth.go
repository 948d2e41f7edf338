package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/mkellner/binsweep/internal/gmail"
)

// Auth selects how the Gmail service is authenticated.
type Auth struct {
	// CredentialsFile and TokenFile drive the installed-app flow.
	CredentialsFile string
	TokenFile       string
	// GmailctlDir, when non-empty, takes precedence and reuses a
	// gmailctl-managed credential directory instead.
	GmailctlDir string
}

// NewGmailClient builds an authenticated client with the modify scope.
func NewGmailClient(ctx context.Context, auth Auth) (gc.Client, error) {
	svc, err := newService(ctx, auth)
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc), nil
}

func newService(ctx context.Context, auth Auth) (*gmail.Service, error) {
	if auth.GmailctlDir != "" {
		// The gmailctl-managed token carries the scopes it was authorized
		// with; the directory's token must include a modify-capable scope
		// for trashing to succeed.
		svc, err := (localcred.Provider{}).Service(ctx, auth.GmailctlDir)
		if err != nil {
			return nil, fmt.Errorf("gmailctl credentials from %s: %w", auth.GmailctlDir, err)
		}
		return svc, nil
	}

	b, err := os.ReadFile(auth.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}

	tok, err := tokenFromFile(auth.TokenFile)
	if err != nil {
		tok, err = tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if saveErr := saveToken(auth.TokenFile, tok); saveErr != nil {
			return nil, saveErr
		}
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return tok, nil
}

// tokenFromWeb runs the installed-app flow: the operator opens the printed
// URL, authorizes, and pastes the code back on stdin.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write oauth token: %w", err)
	}
	return nil
}

// DefaultLogger returns the process-wide logger used by the binaries.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

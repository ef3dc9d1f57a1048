// Package auth handles OAuth2 authentication for the Drive connector.
// It reads OAuth client credentials from a Google Cloud Console
// credentials.json file and maintains a single stored token, refreshed
// transparently and persisted across runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/drivemcp/drivemcp/internal/logging"
)

// Error is an authentication failure: missing or invalid client
// configuration, a missing stored token, or a failed refresh. Tool handlers
// that receive an Error have not issued any Drive API request.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotLoggedIn indicates no stored token exists for this installation.
var ErrNotLoggedIn = errors.New("not logged in (run 'drivemcp auth login')")

// Manager owns the OAuth client configuration and the single stored token.
// The token file lives next to the credentials file in the config directory.
type Manager struct {
	mu              sync.Mutex
	configDir       string
	credentialsFile string
	token           *oauth2.Token
	logger          *slog.Logger
}

// NewManager creates an auth manager rooted at configDir.
//
// configDir defaults to $XDG_CONFIG_HOME/drivemcp (or ~/.config/drivemcp).
// credentialsFile defaults to <configDir>/credentials.json.
func NewManager(configDir, credentialsFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if configDir == "" {
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine home directory: %w", err)
			}
			xdg = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(xdg, "drivemcp")
	}
	if credentialsFile == "" {
		credentialsFile = filepath.Join(configDir, "credentials.json")
	}

	m := &Manager{
		configDir:       configDir,
		credentialsFile: credentialsFile,
		logger:          logger,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfigDir returns the configuration directory path.
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// CredentialsFile returns the path to the Google credentials.json file.
func (m *Manager) CredentialsFile() string {
	return m.credentialsFile
}

func (m *Manager) tokenPath() string {
	return filepath.Join(m.configDir, "token.json")
}

func (m *Manager) load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	m.token = &tok
	return nil
}

// saveLocked persists the current token. Callers must hold m.mu.
func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(m.configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(m.token, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}
	if err := os.WriteFile(m.tokenPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// oauthConfig reads the credentials.json file and builds an oauth2.Config
// with the given scopes.
func (m *Manager) oauthConfig(scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(m.credentialsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Op: "loading client configuration", Err: fmt.Errorf(
			"credentials file not found at %s\n\nDownload it from https://console.cloud.google.com/apis/credentials and place it there, or use --credentials to specify a different path",
			m.credentialsFile)}
	}
	if err != nil {
		return nil, &Error{Op: "loading client configuration", Err: err}
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, &Error{Op: "parsing client configuration", Err: err}
	}
	return cfg, nil
}

// LoggedIn reports whether a stored token exists.
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil
}

// Expiry returns the stored token's expiry time, or the zero time if no
// token is stored or the token carries no expiry.
func (m *Manager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return time.Time{}
	}
	return m.token.Expiry
}

// Login runs the OAuth2 authorization code flow: it starts a localhost
// callback server on a random port, prints the consent URL for the user's
// browser, exchanges the returned code for a token, and persists it.
func (m *Manager) Login(ctx context.Context, scopes []string) error {
	m.logger.Info("starting authorization flow", logging.Operation("login"))

	cfg, err := m.oauthConfig(scopes)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("starting local listener: %w", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	type authResult struct {
		code string
		err  error
	}
	resultCh := make(chan authResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			resultCh <- authResult{err: fmt.Errorf("oauth error: %s", errMsg)}
			fmt.Fprintf(w, "Authorization failed: %s. You can close this tab.", errMsg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			resultCh <- authResult{err: fmt.Errorf("no authorization code received")}
			fmt.Fprint(w, "No authorization code received. You can close this tab.")
			return
		}
		resultCh <- authResult{code: code}
		fmt.Fprint(w, "Authorization successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			resultCh <- authResult{err: fmt.Errorf("callback server error: %w", err)}
		}
	}()
	defer server.Shutdown(ctx)

	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("\nOpen this URL in your browser to authorize access to Google Drive:\n\n%s\n\nWaiting for authorization...\n", authURL)

	select {
	case result := <-resultCh:
		if result.err != nil {
			return result.err
		}
		token, err := cfg.Exchange(ctx, result.code)
		if err != nil {
			return &Error{Op: "exchanging authorization code", Err: err}
		}
		m.mu.Lock()
		m.token = token
		err = m.saveLocked()
		m.mu.Unlock()
		if err != nil {
			return err
		}
		m.logger.Info("authorization complete",
			logging.Operation("login"),
			slog.String("token", logging.SanitizeToken(token.AccessToken)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Logout removes the stored token. The client configuration is untouched.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return &Error{Op: "logout", Err: ErrNotLoggedIn}
	}
	m.token = nil
	if err := os.Remove(m.tokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}

// TokenSource returns an oauth2.TokenSource backed by the stored token.
// Expired tokens are refreshed exactly once before use and the refreshed
// token is persisted back to the token file.
func (m *Manager) TokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == nil {
		return nil, &Error{Op: "loading token", Err: ErrNotLoggedIn}
	}

	cfg, err := m.oauthConfig(scopes)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base:    cfg.TokenSource(ctx, token),
		manager: m,
		orig:    token,
	}, nil
}

// ClientOption returns a Google API client option for authenticated calls.
func (m *Manager) ClientOption(ctx context.Context, scopes []string) (option.ClientOption, error) {
	ts, err := m.TokenSource(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return option.WithTokenSource(ts), nil
}

// persistingTokenSource wraps a token source and saves refreshed tokens.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	manager *Manager
	orig    *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, &Error{Op: "refreshing token", Err: err}
	}

	// If the token was refreshed, persist it.
	if token.AccessToken != s.orig.AccessToken {
		s.orig = token
		s.manager.mu.Lock()
		s.manager.token = token
		saveErr := s.manager.saveLocked()
		s.manager.mu.Unlock()
		if saveErr != nil {
			s.manager.logger.Warn("could not persist refreshed token",
				logging.Status(logging.StatusError), logging.Err(saveErr))
		} else {
			s.manager.logger.Debug("refreshed token persisted",
				slog.String("token", logging.SanitizeToken(token.AccessToken)))
		}
	}
	return token, nil
}

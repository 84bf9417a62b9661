package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/config"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

// SessionArtifactKey is the console artifact holding the persisted session
const SessionArtifactKey = cache.AuthArtifactPrefix + "auth-token"

// tokenClient is the part of the Casdoor SDK the provider needs
type tokenClient interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
	RefreshOAuthToken(refreshToken string) (*oauth2.Token, error)
	DeleteToken(token *casdoorsdk.Token) (bool, error)
}

// Options configures a Client
type Options struct {
	Config        config.CasdoorConfig
	RefreshLeeway time.Duration
	Redis         *redis.Client
	Artifacts     *cache.ArtifactStore
	Logger        *slog.Logger
	HTTPClient    *http.Client
}

// Client is shared by all consoles. It owns the SDK client, the password
// grant configuration and the index of consoles signed in per user.
type Client struct {
	sdk        tokenClient
	oauth      *oauth2.Config
	httpClient *http.Client
	redis      *redis.Client
	artifacts  *cache.ArtifactStore
	logger     *slog.Logger
	leeway     time.Duration
	now        func() time.Time

	mu        sync.Mutex
	providers map[string]*Provider
}

func NewClient(opts Options) *Client {
	cfg := opts.Config
	sdk := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return newClient(sdk, opts)
}

func newClient(sdk tokenClient, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := strings.TrimRight(opts.Config.Endpoint, "/")

	return &Client{
		sdk: sdk,
		oauth: &oauth2.Config{
			ClientID:     opts.Config.ClientID,
			ClientSecret: opts.Config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoint + "/login/oauth/authorize",
				TokenURL:  endpoint + "/api/login/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "profile", "email"},
		},
		httpClient: httpClient,
		redis:      opts.Redis,
		artifacts:  opts.Artifacts,
		logger:     logger.With("component", "casdoor"),
		leeway:     opts.RefreshLeeway,
		now:        time.Now,
		providers:  make(map[string]*Provider),
	}
}

// ForConsole returns the provider of one console. Each call creates a new
// provider; the previous one for the same console is closed.
func (c *Client) ForConsole(consoleID string) *Provider {
	p := &Provider{
		client:      c,
		consoleID:   consoleID,
		artifacts:   c.artifacts.ForConsole(consoleID),
		broadcaster: auth.NewBroadcaster(),
		logger:      c.logger.With("console_id", consoleID),
	}

	c.mu.Lock()
	previous := c.providers[consoleID]
	c.providers[consoleID] = p
	c.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return p
}

func (c *Client) release(p *Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.providers[p.consoleID] == p {
		delete(c.providers, p.consoleID)
	}
}

func (c *Client) liveProvider(consoleID string) *Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers[consoleID]
}

// passwordGrant exchanges credentials for a token
func (c *Client) passwordGrant(ctx context.Context, email, password string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return token, nil
}

func (c *Client) refresh(refreshToken string) (*oauth2.Token, error) {
	token, err := c.sdk.RefreshOAuthToken(refreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return token, nil
}

// sessionFromToken verifies the access token and builds the session
func (c *Client) sessionFromToken(token *oauth2.Token) (*models.Session, error) {
	if token == nil || token.AccessToken == "" {
		return nil, &auth.Error{Code: auth.CodeProviderError, Message: "Authentication service returned no token", Status: http.StatusBadGateway}
	}

	claims, err := c.sdk.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access token: %w", err)
	}

	identity := identityFromClaims(claims)
	if identity == nil {
		return nil, &auth.Error{Code: auth.CodeProviderError, Message: "Access token carries no user", Status: http.StatusBadGateway}
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &models.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    expiresAt,
		User:         identity,
		TokenID:      claims.ID,
	}, nil
}

// revoke deletes the token record at Casdoor so its refresh token stops
// working. Token ids are "<owner>/<name>". Failures are logged only; the
// local sign-out proceeds regardless.
func (c *Client) revoke(tokenID string) {
	owner, name, ok := strings.Cut(tokenID, "/")
	if !ok || owner == "" || name == "" {
		return
	}
	affected, err := c.sdk.DeleteToken(&casdoorsdk.Token{Owner: owner, Name: name})
	if err != nil {
		c.logger.Warn("Failed to revoke token", "error", err, "token", tokenID)
		return
	}
	if !affected {
		c.logger.Debug("Token already gone upstream", "token", tokenID)
	}
}

// ===== SESSION INDEX =====

func userConsolesKey(userID string) string {
	return "auth:user:" + userID + ":consoles"
}

func (c *Client) indexConsole(ctx context.Context, userID, consoleID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.SAdd(ctx, userConsolesKey(userID), consoleID).Err(); err != nil {
		c.logger.Warn("Failed to index console session", "error", err, "user_id", userID, "console_id", consoleID)
	}
}

func (c *Client) unindexConsole(ctx context.Context, userID, consoleID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.SRem(ctx, userConsolesKey(userID), consoleID).Err(); err != nil {
		c.logger.Warn("Failed to unindex console session", "error", err, "user_id", userID, "console_id", consoleID)
	}
}

// signOutUser ends the sessions of userID on every indexed console except
// skip. Live providers of those consoles emit SIGNED_OUT.
func (c *Client) signOutUser(ctx context.Context, userID, skip string) error {
	consoles := []string{}
	if c.redis != nil {
		members, err := c.redis.SMembers(ctx, userConsolesKey(userID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to read session index: %w", err)
		}
		consoles = members
	}

	var errs []error
	for _, consoleID := range consoles {
		if consoleID == skip {
			continue
		}
		if p := c.liveProvider(consoleID); p != nil {
			p.terminate(ctx, userID)
			continue
		}
		artifacts := c.artifacts.ForConsole(consoleID)
		var stored storedSession
		if err := artifacts.Get(ctx, SessionArtifactKey, &stored); err == nil {
			c.revoke(stored.TokenID)
		}
		if err := artifacts.Delete(ctx, SessionArtifactKey); err != nil {
			errs = append(errs, err)
		}
		c.unindexConsole(ctx, userID, consoleID)
	}
	return errors.Join(errs...)
}

// ===== ERROR MAPPING =====

type tokenErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// mapTokenError turns token endpoint failures into auth errors carrying the
// provider message
func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return err
	}

	status := http.StatusBadGateway
	if retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}

	var body tokenErrorBody
	_ = json.Unmarshal(retrieveErr.Body, &body)

	message := body.ErrorDescription
	if message == "" {
		message = body.Error
	}

	switch {
	case body.Error == "invalid_grant" || body.Error == "invalid_request" || status == http.StatusUnauthorized:
		if message == "" {
			message = auth.ErrInvalidCredentials.Message
		}
		return &auth.Error{Code: auth.CodeInvalidCredentials, Message: message, Status: status}
	default:
		if message == "" {
			message = "Authentication service error"
		}
		return &auth.Error{Code: auth.CodeProviderError, Message: message, Status: status}
	}
}

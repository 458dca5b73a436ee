package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/auth"
	"github.com/hzj/miniblog/internal/cache"
	"github.com/hzj/miniblog/internal/model"
	"github.com/hzj/miniblog/internal/repository"
	"github.com/hzj/miniblog/internal/sms"
)

// phonePattern matches mainland Chinese mobile numbers: 11 digits, starting
// with 1, second digit 3-9.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// Placeholder passwords for accounts that never set one. Password login is
// not implemented, so these values only document HOW the account was made.
const (
	passwordSMSPlaceholder   = "N/A"
	passwordOAuthPlaceholder = "OAUTH_LOGIN"
)

// OAuthProvider is the slice of the GitHub client the auth flow needs.
// Declared here so tests can substitute a fake without touching oauth2.
type OAuthProvider interface {
	Enabled() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

var _ OAuthProvider = (*auth.GitHubProvider)(nil)

// AuthService orchestrates both login flows: SMS code and GitHub OAuth.
// Both converge on the same outcome — a user row and a signed JWT.
type AuthService struct {
	users  repository.UserRepository
	codes  cache.CodeStore
	sender sms.Sender
	tokens *auth.TokenService
	github OAuthProvider
	logger *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users repository.UserRepository,
	codes cache.CodeStore,
	sender sms.Sender,
	tokens *auth.TokenService,
	github OAuthProvider,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		codes:  codes,
		sender: sender,
		tokens: tokens,
		github: github,
		logger: logger,
	}
}

// SendCode generates a fresh 6-digit login code for the phone, stores it
// with a 5-minute expiry, and hands it to the SMS sender.
//
// Re-requesting a code overwrites the previous one — only the latest code is
// ever redeemable.
//
// TODO: add a per-phone resend cooldown (e.g. one code per 60s) so the
// endpoint can't be used to spam someone's phone.
func (s *AuthService) SendCode(ctx context.Context, phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperror.ValidationFailed("phone", "invalid phone number")
	}

	code, err := generateLoginCode()
	if err != nil {
		return fmt.Errorf("generating login code: %w", err)
	}

	if err := s.codes.SaveLoginCode(ctx, phone, code); err != nil {
		s.logger.Error("failed to store login code",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("storing login code: %w", err)
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		return fmt.Errorf("sending login code: %w", err)
	}

	s.logger.Info("login code sent", slog.String("phone", phone))
	return nil
}

// generateLoginCode returns a uniformly random 6-digit code (100000-999999).
// crypto/rand, not math/rand: login codes are guessing targets.
func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// LoginBySMS redeems a login code for a JWT.
//
// THE CODE IS SINGLE-USE, BUT ONLY ON SUCCESS:
//   - no stored code (never sent, or expired) → NotFound
//   - wrong code → Validation, and the stored code STAYS valid — a typo
//     must not force the user to request a fresh SMS
//   - right code → the code is deleted, then the user is resolved
//
// First login for a phone creates the account on the spot with a default
// username derived from the number. There is no separate registration step.
func (s *AuthService) LoginBySMS(ctx context.Context, phone, code string) (string, *model.User, error) {
	if !phonePattern.MatchString(phone) {
		return "", nil, apperror.ValidationFailed("phone", "invalid phone number")
	}

	stored, err := s.codes.GetLoginCode(ctx, phone)
	if err != nil {
		s.logger.Error("failed to load login code",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		return "", nil, fmt.Errorf("loading login code: %w", err)
	}
	if stored == "" {
		return "", nil, apperror.New(apperror.ErrNotFound, "login code expired or not sent")
	}
	if stored != code {
		return "", nil, apperror.ValidationFailed("code", "incorrect login code")
	}

	if err := s.codes.DeleteLoginCode(ctx, phone); err != nil {
		// The code was right; a failed delete means it stays redeemable until
		// expiry. Log it, don't fail the login over it.
		s.logger.Warn("failed to delete redeemed login code",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.findOrCreateUser(ctx, model.PhoneLogin(phone), defaultUsername(phone), passwordSMSPlaceholder)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in via sms",
		slog.Int64("userID", user.ID),
		slog.String("phone", phone),
	)

	return token, user, nil
}

// defaultUsername builds the first-login username: "user_" plus the last
// four digits of the phone number.
func defaultUsername(phone string) string {
	return "user_" + phone[len(phone)-4:]
}

// OAuthEnabled reports whether GitHub login is configured.
func (s *AuthService) OAuthEnabled() bool {
	return s.github.Enabled()
}

// BeginOAuth starts the GitHub flow: mint a state nonce, park it in Redis,
// and return the provider authorization URL carrying it.
func (s *AuthService) BeginOAuth(ctx context.Context, state string) (string, error) {
	if !s.github.Enabled() {
		return "", apperror.New(apperror.ErrNotFound, "github login is not configured")
	}

	if err := s.codes.SaveOAuthState(ctx, state); err != nil {
		s.logger.Error("failed to store oauth state", slog.String("error", err.Error()))
		return "", fmt.Errorf("storing oauth state: %w", err)
	}

	return s.github.AuthURL(state), nil
}

// CompleteOAuth finishes the GitHub flow after the provider redirects back.
//
// The state nonce is consumed atomically before anything else: an unknown,
// expired, or replayed state fails closed with Unauthorized. Only then is
// the authorization code exchanged and the GitHub identity mapped onto a
// local user.
//
// GitHub users have no phone number, so the account's phone column holds
// the synthetic key "github_<id>" instead. The numeric GitHub id is the
// stable identity; the login name can change between visits, and when it
// does we refresh our stored username to match.
func (s *AuthService) CompleteOAuth(ctx context.Context, state, code string) (string, *model.User, error) {
	if !s.github.Enabled() {
		return "", nil, apperror.New(apperror.ErrNotFound, "github login is not configured")
	}

	ok, err := s.codes.ConsumeOAuthState(ctx, state)
	if err != nil {
		s.logger.Error("failed to consume oauth state", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("consuming oauth state: %w", err)
	}
	if !ok {
		return "", nil, apperror.Unauthorized("unknown or expired oauth state")
	}

	ghUser, err := s.github.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("github code exchange failed", slog.String("error", err.Error()))
		return "", nil, apperror.Unauthorized("github authorization failed")
	}

	login := model.OAuthLogin("github", fmt.Sprintf("%d", ghUser.ID))

	user, err := s.findOrCreateUser(ctx, login, ghUser.Login, passwordOAuthPlaceholder)
	if err != nil {
		return "", nil, err
	}

	// Returning visitor with a renamed GitHub account: follow the rename.
	if user.Username != ghUser.Login && ghUser.Login != "" {
		if err := s.users.UpdateUsername(ctx, user.ID, ghUser.Login); err != nil {
			s.logger.Warn("failed to refresh github username",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			user.Username = ghUser.Login
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in via github",
		slog.Int64("userID", user.ID),
		slog.Int64("githubID", ghUser.ID),
	)

	return token, user, nil
}

// findOrCreateUser looks up the account for a login identity, creating it on
// first contact. The identity's Key() is what lives in the phone column —
// a real phone number for SMS logins, "github_<id>" for OAuth.
func (s *AuthService) findOrCreateUser(ctx context.Context, login model.LoginID, username, password string) (*model.User, error) {
	user, err := s.users.GetByPhone(ctx, login.Key())
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	user = &model.User{
		Phone:    login.Key(),
		Username: username,
		Password: password,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user account created",
		slog.Int64("userID", user.ID),
		slog.String("kind", login.Kind.String()),
	)

	return user, nil
}

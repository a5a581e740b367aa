// Package auth provides account, session and wallet-login services
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// Account constraints.
const (
	MinUsernameLen    = 3
	MaxUsernameLen    = 32
	MinPasswordLen    = 6
	MaxPasswordLen    = 128
	MaxDisplayNameLen = 64

	bcryptCost    = 10
	bcryptMaxLen  = 72
	tokenByteSize = 32
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Compile-time interface check
var _ interfaces.AuthService = (*Service)(nil)

// Service implements AuthService over the user and session stores.
type Service struct {
	storage    interfaces.StorageManager
	privy      interfaces.PrivyClient
	sessionTTL time.Duration

	// checkLinkedWallet requires the wallet to be linked to the Privy user.
	checkLinkedWallet bool

	logger *common.Logger
	now    func() time.Time
}

// NewService creates an auth service. privy may be nil, in which case wallet
// login is unavailable.
func NewService(storage interfaces.StorageManager, privy interfaces.PrivyClient, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage:           storage,
		privy:             privy,
		sessionTTL:        config.Auth.GetSessionTTL(),
		checkLinkedWallet: config.Privy.AppSecret != "",
		logger:            logger,
		now:               time.Now,
	}
}

// SessionTTL returns the lifetime given to new sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Signup creates an email account and logs it in.
func (s *Service) Signup(ctx context.Context, username, password, displayName string) (*models.AuthResult, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	displayName, err := cleanDisplayName(displayName, username)
	if err != nil {
		return nil, err
	}

	store := s.storage.UserStore()
	if _, err := store.GetUser(ctx, models.UserKey(username)); err == nil {
		return nil, fmt.Errorf("username %q is taken: %w", username, models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		AccountType:  models.AccountTypeEmail,
		Portfolios:   []models.Portfolio{},
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("User signed up")
	return s.startSession(ctx, user)
}

// Login checks a password and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	user, err := s.storage.UserStore().GetUser(ctx, models.UserKey(username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
		}
		return nil, err
	}
	if user.AccountType == models.AccountTypeWallet || user.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	return s.startSession(ctx, user)
}

// WalletLogin verifies a Privy access token and logs in the wallet's
// account, creating it on first use.
func (s *Service) WalletLogin(ctx context.Context, accessToken, walletAddress string) (*models.AuthResult, error) {
	if s.privy == nil {
		return nil, fmt.Errorf("wallet login is not configured: %w", models.ErrForbidden)
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("access token required: %w", models.ErrUnauthorized)
	}

	wallet := address.Normalize(walletAddress)
	if address.ChainOf(wallet) == "" {
		return nil, models.Invalid("wallet_address", "not a Solana or BSC address")
	}

	claims, err := s.privy.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if s.checkLinkedWallet {
		linked, err := s.privy.LinkedWallets(ctx, claims.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check linked wallets: %w", err)
		}
		if !containsWallet(linked, wallet) {
			return nil, fmt.Errorf("wallet is not linked to this account: %w", models.ErrForbidden)
		}
	}

	store := s.storage.UserStore()
	user, err := store.GetUser(ctx, models.UserKey(wallet))
	switch {
	case err == nil:
		if user.AccountType != models.AccountTypeWallet {
			return nil, fmt.Errorf("username is held by a password account: %w", models.ErrConflict)
		}
		if user.PrivyID != "" && user.PrivyID != claims.UserID {
			return nil, fmt.Errorf("wallet belongs to another account: %w", models.ErrForbidden)
		}
		if user.PrivyID == "" {
			user.PrivyID = claims.UserID
			user.ModifiedAt = s.now()
			if err := store.SaveUser(ctx, user); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, models.ErrNotFound):
		now := s.now()
		user = &models.User{
			Username:      wallet,
			DisplayName:   shortWallet(wallet),
			AccountType:   models.AccountTypeWallet,
			WalletAddress: wallet,
			PrivyID:       claims.UserID,
			Portfolios:    []models.Portfolio{},
			CreatedAt:     now,
			ModifiedAt:    now,
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Str("wallet", wallet).Msg("Wallet account created")
	default:
		return nil, err
	}

	return s.startSession(ctx, user)
}

// Logout deactivates the session behind a raw token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.storage.SessionStore().DeactivateSession(ctx, HashToken(token))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate resolves a raw session token to its user. Inactive or
// expired sessions are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, models.ErrUnauthorized
	}
	session, err := s.storage.SessionStore().GetSession(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrUnauthorized
		}
		return nil, nil, err
	}
	if !session.Valid(s.now()) {
		return nil, nil, models.ErrUnauthorized
	}

	user, err := s.storage.UserStore().GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrUnauthorized
		}
		return nil, nil, err
	}
	return user, session, nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.storage.SessionStore().PurgeExpired(ctx, s.now())
}

// UpdateSettings changes the display name and, for password accounts, the
// password. A password change requires the current password.
func (s *Service) UpdateSettings(ctx context.Context, userKey string, update interfaces.SettingsUpdate) (*models.User, error) {
	store := s.storage.UserStore()
	user, err := store.GetUser(ctx, userKey)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		name, err := cleanDisplayName(*update.DisplayName, user.Username)
		if err != nil {
			return nil, err
		}
		user.DisplayName = name
	}

	if update.NewPassword != nil {
		if user.AccountType != models.AccountTypeEmail {
			return nil, models.Invalid("new_password", "wallet accounts have no password")
		}
		if !checkPassword(user.PasswordHash, update.CurrentPassword) {
			return nil, fmt.Errorf("current password is incorrect: %w", models.ErrUnauthorized)
		}
		if err := ValidatePassword(*update.NewPassword); err != nil {
			return nil, err
		}
		hash, err := hashPassword(*update.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.ModifiedAt = s.now()
	if err := store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetProfilePicture stores an image data URL on the user. An empty dataURL
// removes the picture.
func (s *Service) SetProfilePicture(ctx context.Context, userKey, dataURL string) (*models.User, error) {
	if dataURL != "" {
		if err := ValidateImageDataURL(dataURL); err != nil {
			return nil, err
		}
	}

	store := s.storage.UserStore()
	user, err := store.GetUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	user.ProfilePicture = dataURL
	user.ModifiedAt = s.now()
	if err := store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile looks a user up by username.
func (s *Service) GetProfile(ctx context.Context, username string) (*models.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, models.Invalid("username", "required")
	}
	return s.storage.UserStore().GetUser(ctx, models.UserKey(username))
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*models.AuthResult, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		TokenHash: HashToken(token),
		UserID:    user.Key(),
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		Active:    true,
	}
	if err := s.storage.SessionStore().SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &models.AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// NewToken returns a fresh random session token.
func NewToken() (string, error) {
	b := make([]byte, tokenByteSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the storage key of a raw session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateUsername checks length and character set.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return models.Invalid("username", fmt.Sprintf("must be %d to %d characters", MinUsernameLen, MaxUsernameLen))
	}
	if !usernamePattern.MatchString(username) {
		return models.Invalid("username", "may only contain letters, digits and underscores")
	}
	// Wallet addresses name wallet accounts
	if address.IsSolana(username) {
		return models.Invalid("username", "may not be a wallet address")
	}
	return nil
}

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return models.Invalid("password", fmt.Sprintf("must be %d to %d characters", MinPasswordLen, MaxPasswordLen))
	}
	return nil
}

func cleanDisplayName(name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return "", models.Invalid("display_name", fmt.Sprintf("must be at most %d characters", MaxDisplayNameLen))
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", models.Invalid("display_name", "contains control characters")
		}
	}
	return name, nil
}

// bcrypt ignores everything past 72 bytes
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > bcryptMaxLen {
		b = b[:bcryptMaxLen]
	}
	return b
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}

func containsWallet(linked []string, wallet string) bool {
	for _, w := range linked {
		if address.Normalize(w) == wallet {
			return true
		}
	}
	return false
}

func shortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:4] + "..." + wallet[len(wallet)-4:]
}

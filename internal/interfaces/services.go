package interfaces

import (
	"context"

	"github.com/bobmcallan/bagboard/internal/models"
)

// AuthService manages accounts and sessions
type AuthService interface {
	Signup(ctx context.Context, username, password, displayName string) (*models.AuthResult, error)
	Login(ctx context.Context, username, password string) (*models.AuthResult, error)
	WalletLogin(ctx context.Context, accessToken, walletAddress string) (*models.AuthResult, error)
	Logout(ctx context.Context, token string) error

	// Authenticate resolves a raw session token to its user.
	Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error)

	UpdateSettings(ctx context.Context, userKey string, update SettingsUpdate) (*models.User, error)
	SetProfilePicture(ctx context.Context, userKey, dataURL string) (*models.User, error)
	GetProfile(ctx context.Context, username string) (*models.User, error)
}

// SettingsUpdate carries optional account changes. Nil fields are left as is.
type SettingsUpdate struct {
	DisplayName     *string
	CurrentPassword string
	NewPassword     *string
}

// PortfolioService manages the portfolios embedded in a user document
type PortfolioService interface {
	List(ctx context.Context, userKey string) ([]models.Portfolio, error)
	Create(ctx context.Context, userKey, name, id string) (*models.Portfolio, error)
	Rename(ctx context.Context, userKey, id, name string) (*models.Portfolio, error)
	Delete(ctx context.Context, userKey, id string) error
	AddRow(ctx context.Context, userKey, id, input string) (*models.Portfolio, error)
	RemoveRow(ctx context.Context, userKey, id, address string) (*models.Portfolio, error)
	ReplaceAll(ctx context.Context, userKey string, portfolios []models.Portfolio) ([]models.Portfolio, error)

	// Get returns another user's portfolio by username and id.
	Get(ctx context.Context, username, id string) (*models.User, *models.Portfolio, error)
	RecordView(ctx context.Context, username, id string) (*models.Portfolio, error)
	RecordShare(ctx context.Context, username, id string) (*models.Portfolio, error)

	Stats(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioStats, error)
}

// MetadataService resolves live token metadata
type MetadataService interface {
	Resolve(ctx context.Context, address string) (*models.TokenMetadata, error)
	ResolveMany(ctx context.Context, addresses []string) ([]models.TokenMetadata, error)
}

// LeaderboardService ranks every portfolio
type LeaderboardService interface {
	Compute(ctx context.Context) (*models.Leaderboard, error)
}

// ImageProxy fetches remote images on behalf of clients
type ImageProxy interface {
	Fetch(ctx context.Context, rawURL string) (*models.Image, error)
	PumpImage(ctx context.Context, mint string) (*models.Image, error)
}

// ShareCardRenderer draws the social share image for a portfolio
type ShareCardRenderer interface {
	Render(portfolio *models.Portfolio, stats *models.PortfolioStats) ([]byte, error)
}

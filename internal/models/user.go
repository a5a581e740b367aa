package models

import (
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Account types.
const (
	AccountTypeEmail  = "email"
	AccountTypeWallet = "wallet"
)

// User is a bagboard account. Portfolios are embedded in the user document;
// there is no separate portfolio table.
type User struct {
	Username       string      `json:"username"`
	PasswordHash   string      `json:"password_hash,omitempty"`
	DisplayName    string      `json:"display_name"`
	AccountType    string      `json:"account_type"`
	WalletAddress  string      `json:"wallet_address,omitempty"`
	PrivyID        string      `json:"privy_id,omitempty"`
	ProfilePicture string      `json:"profile_picture,omitempty"`
	Portfolios     []Portfolio `json:"portfolios"`
	CreatedAt      time.Time   `json:"created_at"`
	ModifiedAt     time.Time   `json:"modified_at"`
}

// UserKey returns the storage key for a username. Usernames are unique
// case-insensitively. Wallet accounts are named by their address, and
// Solana addresses are case-sensitive, so those keep their case.
func UserKey(username string) string {
	s := strings.TrimSpace(username)
	if isSolanaAddress(s) {
		return s
	}
	return strings.ToLower(s)
}

func isSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// Key returns the storage key of the user.
func (u *User) Key() string {
	return UserKey(u.Username)
}

// FindPortfolio returns the index of the portfolio with the given id, or -1.
func (u *User) FindPortfolio(id string) int {
	for i := range u.Portfolios {
		if u.Portfolios[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the user, including its portfolios and rows.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Portfolios != nil {
		c.Portfolios = make([]Portfolio, len(u.Portfolios))
		for i := range u.Portfolios {
			c.Portfolios[i] = u.Portfolios[i].Clone()
		}
	}
	return &c
}

// PublicProfile is the view of a user returned to other users.
type PublicProfile struct {
	Username       string      `json:"username"`
	DisplayName    string      `json:"display_name"`
	AccountType    string      `json:"account_type"`
	WalletAddress  string      `json:"wallet_address,omitempty"`
	ProfilePicture string      `json:"profile_picture,omitempty"`
	Portfolios     []Portfolio `json:"portfolios"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Public strips credentials and provider identifiers from the user.
func (u *User) Public() PublicProfile {
	portfolios := u.Portfolios
	if portfolios == nil {
		portfolios = []Portfolio{}
	}
	return PublicProfile{
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		AccountType:    u.AccountType,
		WalletAddress:  u.WalletAddress,
		ProfilePicture: u.ProfilePicture,
		Portfolios:     portfolios,
		CreatedAt:      u.CreatedAt,
	}
}

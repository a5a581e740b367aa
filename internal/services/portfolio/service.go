// Package portfolio provides portfolio management services
package portfolio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/services/metadata"
)

// Limits applied when the config leaves them unset.
const (
	DefaultMaxPortfolios = 20
	DefaultMaxRows       = 50
	MaxNameLen           = 64
	MaxIDLen             = 64
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService. Every write reads the user document,
// changes the embedded portfolio array and saves the whole document back.
type Service struct {
	storage       interfaces.StorageManager
	metadata      interfaces.MetadataService
	maxPortfolios int
	maxRows       int
	logger        *common.Logger
	now           func() time.Time
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, meta interfaces.MetadataService, config *common.PortfolioConfig, logger *common.Logger) *Service {
	s := &Service{
		storage:       storage,
		metadata:      meta,
		maxPortfolios: DefaultMaxPortfolios,
		maxRows:       DefaultMaxRows,
		logger:        logger,
		now:           time.Now,
	}
	if config != nil {
		if config.MaxPortfolios > 0 {
			s.maxPortfolios = config.MaxPortfolios
		}
		if config.MaxRows > 0 {
			s.maxRows = config.MaxRows
		}
	}
	return s
}

// List returns the user's portfolios in stored order.
func (s *Service) List(ctx context.Context, userKey string) ([]models.Portfolio, error) {
	user, err := s.storage.UserStore().GetUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	if user.Portfolios == nil {
		return []models.Portfolio{}, nil
	}
	return user.Portfolios, nil
}

// Create appends an empty portfolio. A blank id is generated from the clock.
func (s *Service) Create(ctx context.Context, userKey, name, id string) (*models.Portfolio, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	var created models.Portfolio
	err = s.update(ctx, userKey, func(user *models.User) error {
		if len(user.Portfolios) >= s.maxPortfolios {
			return models.Invalid("portfolios", fmt.Sprintf("at most %d portfolios per user", s.maxPortfolios))
		}

		id = strings.TrimSpace(id)
		if id == "" {
			id = s.newID(user)
		} else if err := validateID(id); err != nil {
			return err
		} else if user.FindPortfolio(id) >= 0 {
			return fmt.Errorf("portfolio %q: %w", id, models.ErrConflict)
		}

		now := s.now()
		created = models.Portfolio{
			ID:         id,
			Name:       name,
			Rows:       []models.Row{},
			CreatedAt:  now,
			ModifiedAt: now,
		}
		user.Portfolios = append(user.Portfolios, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user", userKey).Str("portfolio", created.ID).Msg("Portfolio created")
	return &created, nil
}

// Rename changes a portfolio's name.
func (s *Service) Rename(ctx context.Context, userKey, id, name string) (*models.Portfolio, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return s.updatePortfolio(ctx, userKey, id, func(p *models.Portfolio) error {
		p.Name = name
		return nil
	})
}

// Delete removes a portfolio.
func (s *Service) Delete(ctx context.Context, userKey, id string) error {
	return s.update(ctx, userKey, func(user *models.User) error {
		idx := user.FindPortfolio(id)
		if idx < 0 {
			return fmt.Errorf("portfolio %q: %w", id, models.ErrNotFound)
		}
		user.Portfolios = append(user.Portfolios[:idx], user.Portfolios[idx+1:]...)
		return nil
	})
}

// AddRow classifies free-form input (a bare address, a URL or pasted text)
// and appends the address it finds.
func (s *Service) AddRow(ctx context.Context, userKey, id, input string) (*models.Portfolio, error) {
	addr, ok := address.Classify(input)
	if !ok {
		return nil, models.Invalid("address", "no Solana or BSC address found")
	}

	return s.updatePortfolio(ctx, userKey, id, func(p *models.Portfolio) error {
		if p.HasAddress(addr.Value) {
			return fmt.Errorf("address %s already in portfolio: %w", addr.Value, models.ErrConflict)
		}
		if len(p.Rows) >= s.maxRows {
			return models.Invalid("rows", fmt.Sprintf("at most %d tokens per portfolio", s.maxRows))
		}
		p.Rows = append(p.Rows, models.Row{Address: addr.Value, Chain: addr.Chain})
		return nil
	})
}

// RemoveRow removes an address from a portfolio.
func (s *Service) RemoveRow(ctx context.Context, userKey, id, addr string) (*models.Portfolio, error) {
	addr = address.Normalize(addr)
	return s.updatePortfolio(ctx, userKey, id, func(p *models.Portfolio) error {
		for i, r := range p.Rows {
			if r.Address == addr {
				p.Rows = append(p.Rows[:i], p.Rows[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("address %s: %w", addr, models.ErrNotFound)
	})
}

// ReplaceAll overwrites the user's whole portfolio array after validating
// it. Row chains are re-derived from the addresses.
func (s *Service) ReplaceAll(ctx context.Context, userKey string, portfolios []models.Portfolio) ([]models.Portfolio, error) {
	if len(portfolios) > s.maxPortfolios {
		return nil, models.Invalid("portfolios", fmt.Sprintf("at most %d portfolios per user", s.maxPortfolios))
	}

	var out []models.Portfolio
	err := s.update(ctx, userKey, func(user *models.User) error {
		now := s.now()
		seen := make(map[string]bool, len(portfolios))
		out = make([]models.Portfolio, 0, len(portfolios))

		for i, in := range portfolios {
			p, err := s.sanitize(in, now)
			if err != nil {
				return err
			}
			if p.ID == "" {
				p.ID = strconv.FormatInt(now.UnixMilli()+int64(i), 10)
			}
			if seen[p.ID] {
				return models.Invalid("id", fmt.Sprintf("duplicate portfolio id %q", p.ID))
			}
			seen[p.ID] = true
			out = append(out, p)
		}

		user.Portfolios = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns another user's portfolio by username and id.
func (s *Service) Get(ctx context.Context, username, id string) (*models.User, *models.Portfolio, error) {
	user, err := s.storage.UserStore().GetUser(ctx, models.UserKey(username))
	if err != nil {
		return nil, nil, err
	}
	idx := user.FindPortfolio(id)
	if idx < 0 {
		return nil, nil, fmt.Errorf("portfolio %q: %w", id, models.ErrNotFound)
	}
	p := user.Portfolios[idx]
	return user, &p, nil
}

// RecordView increments the view counter.
func (s *Service) RecordView(ctx context.Context, username, id string) (*models.Portfolio, error) {
	return s.bump(ctx, username, id, func(p *models.Portfolio) { p.Views++ })
}

// RecordShare increments the share counter.
func (s *Service) RecordShare(ctx context.Context, username, id string) (*models.Portfolio, error) {
	return s.bump(ctx, username, id, func(p *models.Portfolio) { p.Shares++ })
}

// Stats resolves live metadata for every row and aggregates it.
func (s *Service) Stats(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioStats, error) {
	tokens, err := s.metadata.ResolveMany(ctx, portfolio.Addresses())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token metadata: %w", err)
	}
	stats := metadata.Aggregate(tokens)
	return &stats, nil
}

// bump changes a counter without touching ModifiedAt.
func (s *Service) bump(ctx context.Context, username, id string, fn func(*models.Portfolio)) (*models.Portfolio, error) {
	var updated models.Portfolio
	err := s.update(ctx, models.UserKey(username), func(user *models.User) error {
		idx := user.FindPortfolio(id)
		if idx < 0 {
			return fmt.Errorf("portfolio %q: %w", id, models.ErrNotFound)
		}
		fn(&user.Portfolios[idx])
		updated = user.Portfolios[idx].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) updatePortfolio(ctx context.Context, userKey, id string, fn func(*models.Portfolio) error) (*models.Portfolio, error) {
	var updated models.Portfolio
	err := s.update(ctx, userKey, func(user *models.User) error {
		idx := user.FindPortfolio(id)
		if idx < 0 {
			return fmt.Errorf("portfolio %q: %w", id, models.ErrNotFound)
		}
		p := &user.Portfolios[idx]
		if err := fn(p); err != nil {
			return err
		}
		p.ModifiedAt = s.now()
		updated = p.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// update is the read-modify-write cycle shared by every mutation.
func (s *Service) update(ctx context.Context, userKey string, fn func(*models.User) error) error {
	store := s.storage.UserStore()
	user, err := store.GetUser(ctx, userKey)
	if err != nil {
		return err
	}
	if err := fn(user); err != nil {
		return err
	}
	user.ModifiedAt = s.now()
	if err := store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Service) sanitize(in models.Portfolio, now time.Time) (models.Portfolio, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return models.Portfolio{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id != "" {
		if err := validateID(id); err != nil {
			return models.Portfolio{}, err
		}
	}
	if len(in.Rows) > s.maxRows {
		return models.Portfolio{}, models.Invalid("rows", fmt.Sprintf("at most %d tokens per portfolio", s.maxRows))
	}

	out := models.Portfolio{
		ID:         id,
		Name:       name,
		Rows:       make([]models.Row, 0, len(in.Rows)),
		Views:      max(in.Views, 0),
		Shares:     max(in.Shares, 0),
		CreatedAt:  in.CreatedAt,
		ModifiedAt: now,
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}

	for _, r := range in.Rows {
		addr := address.Normalize(r.Address)
		chain := address.ChainOf(addr)
		if chain == "" {
			return models.Portfolio{}, models.Invalid("address", fmt.Sprintf("%q is not a Solana or BSC address", r.Address))
		}
		if out.HasAddress(addr) {
			return models.Portfolio{}, models.Invalid("address", fmt.Sprintf("%s appears twice in %q", addr, name))
		}
		out.Rows = append(out.Rows, models.Row{Address: addr, Chain: chain})
	}
	return out, nil
}

// newID returns a millisecond timestamp id not already used by the user.
func (s *Service) newID(user *models.User) string {
	ms := s.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if user.FindPortfolio(id) < 0 {
			return id
		}
		ms++
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLen {
		return "", models.Invalid("name", fmt.Sprintf("must be 1 to %d characters", MaxNameLen))
	}
	return name, nil
}

func validateID(id string) error {
	if len(id) > MaxIDLen {
		return models.Invalid("id", fmt.Sprintf("must be at most %d characters", MaxIDLen))
	}
	if strings.ContainsAny(id, "/?#% \t\r\n") {
		return models.Invalid("id", "contains reserved characters")
	}
	return nil
}

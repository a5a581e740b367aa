package models

import "time"

// Chains a Row address may belong to.
const (
	ChainSolana = "solana"
	ChainBSC    = "bsc"
)

// Portfolio is a named, user-owned list of token addresses.
type Portfolio struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rows       []Row     `json:"rows"`
	Views      int       `json:"views"`
	Shares     int       `json:"shares"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Row is a single token address within a Portfolio. Token metadata is
// never persisted on the row.
type Row struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

// Clone returns a deep copy of the portfolio.
func (p Portfolio) Clone() Portfolio {
	if p.Rows != nil {
		rows := make([]Row, len(p.Rows))
		copy(rows, p.Rows)
		p.Rows = rows
	}
	return p
}

// HasAddress reports whether the portfolio already holds the address.
func (p *Portfolio) HasAddress(address string) bool {
	for _, r := range p.Rows {
		if r.Address == address {
			return true
		}
	}
	return false
}

// Addresses returns the row addresses in order.
func (p *Portfolio) Addresses() []string {
	out := make([]string, 0, len(p.Rows))
	for _, r := range p.Rows {
		out = append(out, r.Address)
	}
	return out
}

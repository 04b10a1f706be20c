package ports

import (
	"context"
	"time"

	"memeCoinBot/internal/domain"
)

// PositionRepository stores the keyed collection of open positions
// (symbol -> Position) so that peak-price state survives a restart.
type PositionRepository interface {
	// Save inserts or replaces the position for its symbol.
	Save(ctx context.Context, pos *domain.Position) error
	// Delete removes the position for a symbol. Deleting a symbol with no
	// stored position is not an error.
	Delete(ctx context.Context, symbol string) error
	// FindBySymbol retrieves the stored position for a symbol.
	// Returns nil, nil if none exists.
	FindBySymbol(ctx context.Context, symbol string) (*domain.Position, error)
	// FindAll retrieves every stored position.
	FindAll(ctx context.Context) ([]*domain.Position, error)
}

// FillRepository is the append-only ordered log of executed fills.
type FillRepository interface {
	// Append records a fill and returns its assigned ID.
	Append(ctx context.Context, fill *domain.Fill) (int64, error)
	// FindByDay retrieves the fills whose timestamp falls on the given
	// calendar day, ordered oldest first.
	FindByDay(ctx context.Context, day time.Time) ([]*domain.Fill, error)
	// FindAll retrieves every fill, ordered oldest first.
	FindAll(ctx context.Context) ([]*domain.Fill, error)
}

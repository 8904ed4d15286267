package port

import (
	"context"
	"errors"

	"github.com/dumall/reconcile/internal/core/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ProductCatalog is an external collaborator. Failures surface as empty
// results with a logged notice, never as fatal errors to the engine.
type ProductCatalog interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (domain.Product, error)
	Search(ctx context.Context, keyword string) ([]domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)
}

// CapWarehouse gates warehouse-management actions to admin-flagged users.
const CapWarehouse = "warehouse"

type AuthSession interface {
	// CurrentUser returns ErrNotAuthenticated when nobody is logged in.
	CurrentUser(ctx context.Context) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.User, error)
	Logout(ctx context.Context) error
	HasCapability(ctx context.Context, name string) bool
}

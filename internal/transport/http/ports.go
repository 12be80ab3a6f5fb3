package httptransport

import (
	"context"

	"iinfinder/internal/access"
	"iinfinder/internal/autosearch"
	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
	"iinfinder/internal/search"
	"iinfinder/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Searcher,Confirmer,AutoSearchService,AccessStore

// Searcher runs a gated resolution for an owner.
type Searcher interface {
	Search(ctx context.Context, owner domain.Owner, q search.Query) (*search.Result, error)
}

// Confirmer re-checks known candidates without screening.
type Confirmer interface {
	ConfirmOnly(ctx context.Context, candidates []iin.ID, name string) ([]registry.ConfirmationRecord, error)
}

type AutoSearchService interface {
	Create(ctx context.Context, req autosearch.CreateRequest) (*autosearch.Task, error)
	Get(ctx context.Context, owner domain.OwnerID) (*autosearch.Task, error)
	Cancel(ctx context.Context, owner domain.OwnerID) error
}

type AccessStore interface {
	Add(ctx context.Context, entry *access.Entry) error
	Remove(ctx context.Context, kind access.Kind, owner domain.OwnerID) error
	List(ctx context.Context, kind access.Kind) ([]*access.Entry, error)
}

// HealthChecker is implemented by backing stores that can be pinged.
type HealthChecker interface {
	Health(ctx context.Context) error
}

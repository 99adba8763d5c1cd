package resolve

import (
	"context"

	"github.com/kailas-cloud/compdex/internal/domain/property"
)

// Provider fetches partial property data. A nil property with a nil error
// means the provider has nothing for the query.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q property.Query) (*property.Property, error)
}

package inventory

import (
	"context"
	"errors"

	"github.com/opscart/finops-scan/pkg/models"
)

// ErrNotFound marks a resource that the inventory no longer knows,
// e.g. deleted mid-run.
var ErrNotFound = errors.New("resource not found")

// Source is the external system providing the list and static configuration
// of resources under review. Listings are snapshots: read once per run,
// never written back.
type Source interface {
	// ListResources enumerates the resources of one partition with their
	// basic attributes.
	ListResources(ctx context.Context, partition string) ([]models.Resource, error)

	// DescribeResource returns the resource with richer attributes than the
	// list call (sub-resources, billing mode, engine).
	DescribeResource(ctx context.Context, partition, id string) (*models.Resource, error)

	Name() string
}

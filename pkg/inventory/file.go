package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opscart/finops-scan/pkg/models"
)

// FileSource serves a JSON inventory snapshot, used for offline runs and
// tests. The file maps partition name to its resource list.
type FileSource struct {
	partitions map[string][]models.Resource
}

// NewFileSource loads the snapshot from disk.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var doc struct {
		Partitions map[string][]models.Resource `json:"partitions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}
	return &FileSource{partitions: doc.Partitions}, nil
}

// NewStaticSource builds a source from an in-memory partition map.
func NewStaticSource(partitions map[string][]models.Resource) *FileSource {
	return &FileSource{partitions: partitions}
}

func (f *FileSource) ListResources(ctx context.Context, partition string) ([]models.Resource, error) {
	resources, ok := f.partitions[partition]
	if !ok {
		return nil, fmt.Errorf("unknown partition %q", partition)
	}
	out := make([]models.Resource, len(resources))
	copy(out, resources)
	return out, nil
}

func (f *FileSource) DescribeResource(ctx context.Context, partition, id string) (*models.Resource, error) {
	resources, ok := f.partitions[partition]
	if !ok {
		return nil, fmt.Errorf("unknown partition %q", partition)
	}
	for i := range resources {
		if resources[i].ID == id {
			res := resources[i]
			return &res, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, partition, id)
}

func (f *FileSource) Name() string {
	return "file"
}

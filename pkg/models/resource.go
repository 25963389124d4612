package models

import "time"

// Resource is a read-only snapshot of one reviewed resource as reported
// by the inventory source. It is fetched once per run and never written back.
type Resource struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Partition string `json:"partition"`

	// Service is the profile key, e.g. "table", "broker", "instance".
	Service string `json:"service"`

	// Engine is the engine family for broker-like resources
	// ("rabbitmq", "activemq") and selects engine-specific metric names.
	Engine string `json:"engine,omitempty"`

	InstanceClass string    `json:"instance_class,omitempty"`
	StorageType   string    `json:"storage_type,omitempty"`
	BillingMode   string    `json:"billing_mode,omitempty"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	ItemCount     int64     `json:"item_count,omitempty"`
	MultiAZ       bool      `json:"multi_az,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`

	Tags map[string]string `json:"tags,omitempty"`

	// SubResources are finer-grained children that get their own telemetry
	// dimension, e.g. secondary indexes of a table or nodes of a broker.
	SubResources []SubResource `json:"sub_resources,omitempty"`
}

// SubResource identifies a child of a resource that carries its own metrics.
type SubResource struct {
	Kind string `json:"kind"` // e.g. "index", "node"
	Name string `json:"name"`
}

// SubResourceNames returns the names of all sub-resources of the given kind.
func (r *Resource) SubResourceNames(kind string) []string {
	var names []string
	for _, sub := range r.SubResources {
		if sub.Kind == kind {
			names = append(names, sub.Name)
		}
	}
	return names
}

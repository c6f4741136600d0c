package nodes

import (
	"time"

	"github.com/donpacheco/nodeshot/internal/access"
)

// Node statuses, roughly tracking a device's lifecycle on the network.
const (
	StatusPotential = "potential"
	StatusPlanned   = "planned"
	StatusActive    = "active"
)

// Node is a device placed on a map layer. Layer and owner references,
// elevation and the last sighting are nullable in storage: a layer
// delete orphans its nodes and a device may never have checked in.
type Node struct {
	ID          int64
	LayerID     *int64
	OwnerID     *int64
	Name        string
	Slug        string
	Description string
	Status      string
	Lat         float64
	Lng         float64
	Elevation   *float64
	Metadata    map[string]string
	IsPublished bool
	AccessLevel access.Level
	LastSeenAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilters narrows node listings beyond the access scope.
type ListFilters struct {
	Page    int
	Limit   int
	LayerID *int64
	Status  string
}

// Bounds is a geographic bounding box (south-west / north-east).
type Bounds struct {
	SWLat float64
	SWLng float64
	NELat float64
	NELng float64
}

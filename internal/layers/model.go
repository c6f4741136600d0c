package layers

import (
	"time"

	"github.com/donpacheco/nodeshot/internal/access"
)

// Layer groups nodes on the map: a geographic area with its own
// visibility settings.
type Layer struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	CenterLat   float64
	CenterLng   float64
	Zoom        int
	IsPublished bool
	AccessLevel access.Level
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package nodes

import "time"

// NodeForm is the JSON payload for creating or updating a node.
type NodeForm struct {
	LayerID     *int64            `json:"layer_id" validate:"required,gt=0"`
	Name        string            `json:"name" validate:"required,max=120"`
	Description string            `json:"description" validate:"max=2000"`
	Status      string            `json:"status" validate:"omitempty,oneof=potential planned active"`
	Lat         float64           `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64           `json:"lng" validate:"gte=-180,lte=180"`
	Elevation   *float64          `json:"elevation"`
	Metadata    map[string]string `json:"metadata" validate:"omitempty,max=50"`
	IsPublished bool              `json:"is_published"`
	AccessLevel string            `json:"access_level"`
}

// NodeResponse is the JSON shape returned for a node.
type NodeResponse struct {
	LayerID     *int64            `json:"layer_id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Lat         float64           `json:"lat"`
	Lng         float64           `json:"lng"`
	Elevation   *float64          `json:"elevation,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsPublished bool              `json:"is_published"`
	AccessLevel string            `json:"access_level"`
	LastSeenAt  *time.Time        `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toResponse(n Node) NodeResponse {
	return NodeResponse{
		LayerID:     n.LayerID,
		Name:        n.Name,
		Slug:        n.Slug,
		Description: n.Description,
		Status:      n.Status,
		Lat:         n.Lat,
		Lng:         n.Lng,
		Elevation:   n.Elevation,
		Metadata:    n.Metadata,
		IsPublished: n.IsPublished,
		AccessLevel: n.AccessLevel.String(),
		LastSeenAt:  n.LastSeenAt,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

package nodes

import (
	"fmt"
	"strings"

	"github.com/donpacheco/nodeshot/internal/platform/httpx"
)

func validStatus(status string) bool {
	switch status {
	case StatusPotential, StatusPlanned, StatusActive:
		return true
	}
	return false
}

func (s *Service) validate(n Node) error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: node name is required", httpx.ErrValidation)
	}
	if n.LayerID == nil || *n.LayerID <= 0 {
		return fmt.Errorf("%w: layer is required", httpx.ErrValidation)
	}
	if n.Status != "" && !validStatus(n.Status) {
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, n.Status)
	}
	if n.Lat < -90 || n.Lat > 90 || n.Lng < -180 || n.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", httpx.ErrValidation)
	}
	return nil
}

func validateBounds(b Bounds) error {
	if b.SWLat < -90 || b.NELat > 90 || b.SWLng < -180 || b.NELng > 180 {
		return fmt.Errorf("%w: bounds out of range", httpx.ErrValidation)
	}
	if b.SWLat > b.NELat || b.SWLng > b.NELng {
		return fmt.Errorf("%w: south-west corner must be below north-east corner", httpx.ErrValidation)
	}
	return nil
}

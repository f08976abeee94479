// Package zones models the user-drawn zone configuration that drives
// notification filtering: per-camera zone profiles, shareable presets, and
// the per-notifier settings that select between them.
//
// Zone vertices are stored normalized to [0, 1] so a zone drawn on one
// stream resolution applies to any other. They are scaled into pixel space
// against a frame's dimensions at match time.
package zones

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"github.com/edgewatch/zonefilter/geometry"
)

// MatchMode selects the geometric predicate a zone uses against detection
// bounding boxes.
type MatchMode string

const (
	// ModeIntersect matches any detection whose bounding box overlaps the
	// zone, boundary contact included. This is the default.
	ModeIntersect = MatchMode("Intersect")
	// ModeContain matches only detections whose bounding box lies entirely
	// inside the zone.
	ModeContain = MatchMode("Contain")
)

// ParseMatchMode parses a stored mode string. The empty string parses to
// ModeIntersect.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case ModeIntersect, ModeContain:
		return MatchMode(s), nil
	case "":
		return ModeIntersect, nil
	default:
		return "", errors.Errorf("unknown match mode %q", s)
	}
}

// Zone is one named polygonal region on a camera frame.
type Zone struct {
	Name     string       `json:"name"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
	Mode     MatchMode    `json:"mode,omitempty"`
}

// Active reports whether the zone has enough vertices to form a region.
// Users delete zones by clearing their vertices, so inactive zones are a
// normal state, not an error.
func (z Zone) Active() bool {
	return len(z.Vertices) >= 3
}

// EffectiveMode returns the zone's mode, defaulting to ModeIntersect.
func (z Zone) EffectiveMode() MatchMode {
	if z.Mode == "" {
		return ModeIntersect
	}
	return z.Mode
}

// Polygon builds the zone's polygon in normalized coordinate space.
func (z Zone) Polygon() (*geometry.Polygon, error) {
	pts := normalizedVertices(z.Vertices)
	p, err := geometry.NewPolygon(pts)
	if err != nil {
		return nil, errors.Wrapf(err, "zone %q", z.Name)
	}
	return p, nil
}

// PixelPolygon builds the zone's polygon scaled into a width x height pixel
// frame.
func (z Zone) PixelPolygon(width, height float64) (*geometry.Polygon, error) {
	p, err := z.Polygon()
	if err != nil {
		return nil, err
	}
	return p.Scale(width, height), nil
}

// Validate ensures all parts of the config are valid.
func (z Zone) Validate(path string) error {
	if z.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if _, err := ParseMatchMode(string(z.Mode)); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	for i, v := range z.Vertices {
		if v[0] < 0 || v[0] > 1 || v[1] < 0 || v[1] > 1 {
			return utils.NewConfigValidationError(path,
				errors.Errorf("vertex %d of zone %q is outside [0, 1]: (%v, %v)", i, z.Name, v[0], v[1]))
		}
	}
	return nil
}

// Clone returns a deep copy of the zone.
func (z Zone) Clone() Zone {
	out := z
	if z.Vertices != nil {
		out.Vertices = make([][2]float64, len(z.Vertices))
		copy(out.Vertices, z.Vertices)
	}
	return out
}

// Profile is the ordered zone list for one camera. Zone order is the order
// users drew them in; matching walks it front to back.
type Profile struct {
	Camera string `json:"camera,omitempty"`
	Zones  []Zone `json:"zones,omitempty"`
}

// Empty reports whether the profile has no zones at all. A nil profile is
// empty.
func (p *Profile) Empty() bool {
	return p == nil || len(p.Zones) == 0
}

// Zone returns the named zone.
func (p *Profile) Zone(name string) (Zone, bool) {
	if p == nil {
		return Zone{}, false
	}
	for _, z := range p.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

// Validate ensures all parts of the config are valid.
func (p *Profile) Validate(path string) error {
	if p == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for i, z := range p.Zones {
		zPath := fmt.Sprintf("%s.zones.%d", path, i)
		if err := z.Validate(zPath); err != nil {
			return err
		}
		if _, dup := seen[z.Name]; dup {
			return utils.NewConfigValidationError(zPath, errors.Errorf("duplicate zone name %q", z.Name))
		}
		seen[z.Name] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the profile. Clone of nil is nil.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := &Profile{Camera: p.Camera}
	if p.Zones != nil {
		out.Zones = lo.Map(p.Zones, func(z Zone, _ int) Zone { return z.Clone() })
	}
	return out
}

// ProfileSet holds zone profiles keyed by camera id.
type ProfileSet map[string]*Profile

// For returns the profile for a camera, or an empty profile when none is
// stored. It never returns nil.
func (s ProfileSet) For(camera string) *Profile {
	if p, ok := s[camera]; ok && p != nil {
		return p
	}
	return &Profile{Camera: camera}
}

// Validate ensures all parts of the config are valid.
func (s ProfileSet) Validate(path string) error {
	for camera, p := range s {
		if err := p.Validate(fmt.Sprintf("%s.%s", path, camera)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the set.
func (s ProfileSet) Clone() ProfileSet {
	if s == nil {
		return nil
	}
	out := make(ProfileSet, len(s))
	for camera, p := range s {
		out[camera] = p.Clone()
	}
	return out
}

// Preset is a named bundle of zone profiles shared across notifiers. Edits
// to a preset take effect for every notifier that selected it.
type Preset struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Profiles ProfileSet `json:"profiles,omitempty"`
}

// ProfileFor returns the preset's profile for a camera, or an empty profile
// when the preset has none. It never returns nil.
func (p *Preset) ProfileFor(camera string) *Profile {
	if p == nil {
		return &Profile{Camera: camera}
	}
	return p.Profiles.For(camera)
}

// Validate ensures all parts of the config are valid.
func (p *Preset) Validate(path string) error {
	if p.ID == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "id")
	}
	if p.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	return p.Profiles.Validate(fmt.Sprintf("%s.profiles", path))
}

// Clone returns a deep copy of the preset. Clone of nil is nil.
func (p *Preset) Clone() *Preset {
	if p == nil {
		return nil
	}
	return &Preset{ID: p.ID, Name: p.Name, Profiles: p.Profiles.Clone()}
}

func normalizedVertices(vs [][2]float64) []r2.Point {
	pts := make([]r2.Point, len(vs))
	for i, v := range vs {
		pts[i] = r2.Point{X: v[0], Y: v[1]}
	}
	return pts
}

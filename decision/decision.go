// Package decision implements the engine that decides whether a detection
// notification is forwarded to the user or suppressed, based on the zone
// profile in effect for the originating camera.
//
// Zones mark areas of interest, so the filter is an inclusion filter: a zone
// match means the event is interesting and the notification goes out, while
// a fully evaluated event that matched nothing is suppressed. Whenever the
// configuration or the event itself is too incomplete to evaluate, the
// engine fails open and forwards.
package decision

import (
	"encoding/json"
	"fmt"

	"github.com/edgewatch/zonefilter/geometry"
)

// Verdict is the outcome of an evaluation.
type Verdict string

const (
	// VerdictForward delivers the notification.
	VerdictForward = Verdict("forward")
	// VerdictSuppress drops the notification.
	VerdictSuppress = Verdict("suppress")
)

// Reason explains a verdict. Every decision carries exactly one reason so
// operators can audit why a notification was or was not delivered.
type Reason string

const (
	// ReasonNoZonesConfigured forwards because the camera has no zones at
	// all; absent configuration never blocks notifications.
	ReasonNoZonesConfigured = Reason("no_zones_configured")
	// ReasonZoneIntersect forwards because a detection overlapped an
	// Intersect zone.
	ReasonZoneIntersect = Reason("zone_intersect")
	// ReasonZoneContain forwards because a Contain zone fully enclosed a
	// detection.
	ReasonZoneContain = Reason("zone_contain")
	// ReasonNoZoneMatched suppresses: detections and zones were evaluated
	// and nothing matched.
	ReasonNoZoneMatched = Reason("no_zone_matched")
	// ReasonNothingToEvaluate forwards because the event or the zones were
	// unusable: no boxed detections, no frame dimensions, or no zone with
	// valid geometry.
	ReasonNothingToEvaluate = Reason("nothing_to_evaluate")
	// ReasonNoPresetSelected forwards because the notifier is configured to
	// use a preset but has none selected.
	ReasonNoPresetSelected = Reason("no_preset_selected")
	// ReasonPresetNotFound forwards because the selected preset no longer
	// exists.
	ReasonPresetNotFound = Reason("preset_not_found")
	// ReasonNoClassMatched suppresses because class filtering removed every
	// detection before zone matching.
	ReasonNoClassMatched = Reason("no_class_matched")
)

// Evidence captures the geometry behind a zone match, in pixel space. It is
// only populated for ReasonZoneIntersect and ReasonZoneContain, where a
// caller may render it onto a snapshot for debugging.
type Evidence struct {
	Camera           string
	Zone             string
	ZonePolygon      *geometry.Polygon
	DetectionPolygon *geometry.Polygon
}

// MarshalJSON encodes the polygons as vertex lists.
func (e *Evidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Camera           string       `json:"camera,omitempty"`
		Zone             string       `json:"zone,omitempty"`
		ZonePolygon      [][2]float64 `json:"zone_polygon,omitempty"`
		DetectionPolygon [][2]float64 `json:"detection_polygon,omitempty"`
	}{e.Camera, e.Zone, vertexPairs(e.ZonePolygon), vertexPairs(e.DetectionPolygon)})
}

// Decision is the transient result of one evaluation. It is never persisted;
// callers act on it and discard it.
type Decision struct {
	Verdict  Verdict   `json:"verdict"`
	Reason   Reason    `json:"reason"`
	Detail   string    `json:"detail,omitempty"`
	Evidence *Evidence `json:"evidence,omitempty"`
}

// ShouldForward reports whether the notification should be delivered.
func (d Decision) ShouldForward() bool {
	return d.Verdict == VerdictForward
}

func (d Decision) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s (%s)", d.Verdict, d.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", d.Verdict, d.Reason, d.Detail)
}

func vertexPairs(p *geometry.Polygon) [][2]float64 {
	if p == nil {
		return nil
	}
	verts := p.Vertices()
	out := make([][2]float64, len(verts))
	for i, v := range verts {
		out[i] = [2]float64{v.X, v.Y}
	}
	return out
}

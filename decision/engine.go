package decision

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/geometry"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/zones"
)

// Engine evaluates detection events against zone profiles. It holds no state
// between calls; a single Engine may serve concurrent callers.
type Engine struct {
	logger logging.Logger
}

// NewEngine returns an engine that logs evaluation diagnostics to logger.
func NewEngine(logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Global()
	}
	return &Engine{logger: logger}
}

// Decide resolves the zone profile for the event's camera from the notifier
// config and evaluates the event against it. Resolution failures and filter
// misconfiguration never suppress; they forward with a reason naming the
// problem. The one exception is class filtering: when the notifier restricts
// detection classes and the restriction removes every boxed detection, the
// event is suppressed with ReasonNoClassMatched.
func (e *Engine) Decide(ev *detection.Event, cfg *zones.NotifierConfig, lookup zones.PresetLookup) Decision {
	var camera string
	if ev != nil {
		camera = ev.Camera
	}

	profile, err := zones.Resolve(cfg, camera, lookup)
	if err != nil {
		switch {
		case errors.Is(err, zones.ErrNoPresetSelected):
			return Decision{Verdict: VerdictForward, Reason: ReasonNoPresetSelected, Detail: err.Error()}
		case errors.Is(err, zones.ErrPresetNotFound):
			return Decision{Verdict: VerdictForward, Reason: ReasonPresetNotFound, Detail: err.Error()}
		}
		return Decision{Verdict: VerdictForward, Reason: ReasonNothingToEvaluate, Detail: err.Error()}
	}
	if profile.Empty() {
		return forwardNoZones(camera)
	}

	if ev != nil && cfg != nil && (cfg.MinScore > 0 || len(cfg.DetectionClasses) > 0) {
		hadBoxed := len(ev.Boxed()) > 0
		filtered := *ev
		dets := ev.Detections
		if cfg.MinScore > 0 {
			dets = detection.NewScoreFilter(cfg.MinScore)(dets)
		}
		if len(cfg.DetectionClasses) > 0 {
			dets = detection.NewClassFilter(cfg.DetectionClasses)(dets)
		}
		filtered.Detections = dets
		if len(cfg.DetectionClasses) > 0 && hadBoxed && len(filtered.Boxed()) == 0 {
			return Decision{
				Verdict: VerdictSuppress,
				Reason:  ReasonNoClassMatched,
				Detail:  fmt.Sprintf("no detection matched classes %v", cfg.DetectionClasses),
			}
		}
		ev = &filtered
	}

	return e.Evaluate(ev, profile)
}

// Evaluate runs the event's detections against the profile's zones and
// returns a decision. A nil event evaluates like an event with no
// detections. A nil profile is a caller bug and panics; use zones.Resolve or
// ProfileSet.For, which never return nil.
//
// Matching walks detections in event order and, per detection, zones in
// profile order; the first match wins and its geometry is attached as
// evidence. Zones without usable geometry and detections without usable
// boxes are skipped. The event is suppressed only when at least one
// detection was actually tested against at least one zone and nothing
// matched.
func (e *Engine) Evaluate(ev *detection.Event, profile *zones.Profile) Decision {
	if profile == nil {
		panic("decision: Evaluate called with nil profile")
	}
	if profile.Empty() {
		return forwardNoZones(profile.Camera)
	}

	var boxed []detection.Detection
	if ev != nil {
		boxed = ev.Boxed()
	}
	if len(boxed) == 0 {
		return forwardNothing("no detections with bounding boxes")
	}
	if !ev.InputDimensions.Valid() {
		return forwardNothing("no frame dimensions")
	}
	dims := ev.InputDimensions

	type scaledZone struct {
		zone zones.Zone
		poly *geometry.Polygon
	}
	// Zone geometry does not depend on the detection, so scale each zone
	// into pixel space once.
	active := make([]scaledZone, 0, len(profile.Zones))
	for _, z := range profile.Zones {
		if !z.Active() {
			continue
		}
		poly, err := z.PixelPolygon(dims.Width, dims.Height)
		if err != nil {
			e.logger.Debugw("skipping zone with unusable geometry",
				"camera", profile.Camera, "zone", z.Name, "error", err)
			continue
		}
		active = append(active, scaledZone{zone: z, poly: poly})
	}
	if len(active) == 0 {
		return forwardNothing("no active zones")
	}

	evaluated := false
	for _, det := range boxed {
		detPoly, err := det.Box.Polygon()
		if err != nil {
			e.logger.Debugw("skipping detection with unusable bounding box",
				"camera", profile.Camera, "label", det.Label, "box", det.Box, "error", err)
			continue
		}
		for _, az := range active {
			evaluated = true
			switch az.zone.EffectiveMode() {
			case zones.ModeContain:
				if az.poly.Contains(detPoly) {
					return Decision{
						Verdict:  VerdictForward,
						Reason:   ReasonZoneContain,
						Detail:   fmt.Sprintf("zone %q contains %s %s", az.zone.Name, labelOrObject(det), det.Box),
						Evidence: newEvidence(ev, profile, az.zone.Name, az.poly, detPoly),
					}
				}
			default:
				if detPoly.Intersects(az.poly) {
					return Decision{
						Verdict:  VerdictForward,
						Reason:   ReasonZoneIntersect,
						Detail:   fmt.Sprintf("%s %s intersects zone %q", labelOrObject(det), det.Box, az.zone.Name),
						Evidence: newEvidence(ev, profile, az.zone.Name, az.poly, detPoly),
					}
				}
			}
		}
	}
	if !evaluated {
		return forwardNothing("no testable detection geometry")
	}
	return Decision{
		Verdict: VerdictSuppress,
		Reason:  ReasonNoZoneMatched,
		Detail:  fmt.Sprintf("%d detection(s) outside all %d zone(s)", len(boxed), len(active)),
	}
}

func forwardNoZones(camera string) Decision {
	detail := "no zones configured"
	if camera != "" {
		detail = fmt.Sprintf("no zones configured for camera %q", camera)
	}
	return Decision{Verdict: VerdictForward, Reason: ReasonNoZonesConfigured, Detail: detail}
}

func forwardNothing(detail string) Decision {
	return Decision{Verdict: VerdictForward, Reason: ReasonNothingToEvaluate, Detail: detail}
}

func newEvidence(ev *detection.Event, profile *zones.Profile, zone string, zonePoly, detPoly *geometry.Polygon) *Evidence {
	camera := profile.Camera
	if camera == "" && ev != nil {
		camera = ev.Camera
	}
	return &Evidence{Camera: camera, Zone: zone, ZonePolygon: zonePoly, DetectionPolygon: detPoly}
}

func labelOrObject(d detection.Detection) string {
	if d.Label == "" {
		return "object"
	}
	return d.Label
}

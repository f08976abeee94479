package decision

import (
	"encoding/json"
	"testing"

	"go.viam.com/test"

	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/zones"
)

// leftHalf covers the left half of the frame in normalized coordinates.
func leftHalf(name string, mode zones.MatchMode) zones.Zone {
	return zones.Zone{
		Name:     name,
		Mode:     mode,
		Vertices: [][2]float64{{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1}},
	}
}

func boxedEvent(camera, label string, score float64, box detection.BoundingBox) *detection.Event {
	return &detection.Event{
		Camera:          camera,
		Detections:      []detection.Detection{{Label: label, Score: score, Box: &box}},
		InputDimensions: detection.Dimensions{Width: 1000, Height: 800},
	}
}

func TestEvaluateIntersect(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	profile := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}}

	// Overlapping the zone forwards with evidence.
	d := engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 400, Y: 100, Width: 300, Height: 200}), profile)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)
	test.That(t, d.Evidence, test.ShouldNotBeNil)
	test.That(t, d.Evidence.Zone, test.ShouldEqual, "porch")
	test.That(t, d.Evidence.Camera, test.ShouldEqual, "cam1")
	test.That(t, d.Evidence.ZonePolygon, test.ShouldNotBeNil)
	test.That(t, d.Evidence.DetectionPolygon, test.ShouldNotBeNil)

	// Fully outside every zone suppresses without evidence.
	d = engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 700, Y: 100, Width: 100, Height: 100}), profile)
	test.That(t, d.ShouldForward(), test.ShouldBeFalse)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoZoneMatched)
	test.That(t, d.Evidence, test.ShouldBeNil)

	// Boundary contact counts as intersection.
	d = engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 500, Y: 100, Width: 100, Height: 100}), profile)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)
}

func TestEvaluateContain(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	profile := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("yard", zones.ModeContain)}}

	// Fully inside the zone forwards.
	d := engine.Evaluate(boxedEvent("cam1", "dog", 0.8, detection.BoundingBox{X: 100, Y: 100, Width: 50, Height: 50}), profile)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneContain)
	test.That(t, d.Evidence.Zone, test.ShouldEqual, "yard")

	// Straddling the zone boundary is not containment.
	d = engine.Evaluate(boxedEvent("cam1", "dog", 0.8, detection.BoundingBox{X: 450, Y: 100, Width: 100, Height: 100}), profile)
	test.That(t, d.ShouldForward(), test.ShouldBeFalse)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoZoneMatched)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	full := zones.Zone{Name: "everything", Vertices: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	profile := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", ""), full}}

	// Both zones overlap the detection; the earlier one is reported.
	d := engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), profile)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)
	test.That(t, d.Evidence.Zone, test.ShouldEqual, "porch")

	// A detection seen only by the later zone still matches it.
	d = engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 700, Y: 100, Width: 100, Height: 100}), profile)
	test.That(t, d.Evidence.Zone, test.ShouldEqual, "everything")
}

func TestEvaluateFailOpen(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	zoned := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}}

	for _, tc := range []struct {
		name    string
		event   *detection.Event
		profile *zones.Profile
		reason  Reason
	}{
		{
			"no zones",
			boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}),
			&zones.Profile{Camera: "cam1"},
			ReasonNoZonesConfigured,
		},
		{
			"nil event",
			nil,
			zoned,
			ReasonNothingToEvaluate,
		},
		{
			"no detections",
			&detection.Event{Camera: "cam1", InputDimensions: detection.Dimensions{Width: 1000, Height: 800}},
			zoned,
			ReasonNothingToEvaluate,
		},
		{
			"detections without boxes",
			&detection.Event{
				Camera:          "cam1",
				Detections:      []detection.Detection{{Label: "person", Score: 0.9}},
				InputDimensions: detection.Dimensions{Width: 1000, Height: 800},
			},
			zoned,
			ReasonNothingToEvaluate,
		},
		{
			"no frame dimensions",
			&detection.Event{
				Camera:     "cam1",
				Detections: []detection.Detection{{Label: "person", Box: &detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}}},
			},
			zoned,
			ReasonNothingToEvaluate,
		},
		{
			"only inactive zones",
			boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}),
			&zones.Profile{Camera: "cam1", Zones: []zones.Zone{{Name: "stub", Vertices: [][2]float64{{0, 0}, {1, 1}}}}},
			ReasonNothingToEvaluate,
		},
		{
			"only degenerate zones",
			boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}),
			&zones.Profile{Camera: "cam1", Zones: []zones.Zone{{Name: "line", Vertices: [][2]float64{{0, 0}, {0.5, 0.5}, {1, 1}}}}},
			ReasonNothingToEvaluate,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := engine.Evaluate(tc.event, tc.profile)
			test.That(t, d.ShouldForward(), test.ShouldBeTrue)
			test.That(t, d.Reason, test.ShouldEqual, tc.reason)
			test.That(t, d.Evidence, test.ShouldBeNil)
		})
	}
}

func TestEvaluateNilProfilePanics(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	test.That(t, func() {
		engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}), nil)
	}, test.ShouldPanic)
}

func TestDecidePresets(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	preset := &zones.Preset{
		ID:   "5f3a",
		Name: "Home",
		Profiles: zones.ProfileSet{
			"cam1": {Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}},
		},
	}
	lookup := func(id string) (*zones.Preset, bool) {
		if id == preset.ID {
			return preset, true
		}
		return nil, false
	}
	inZone := boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100})

	// A selected preset supplies the zones.
	d := engine.Decide(inZone, &zones.NotifierConfig{SelectedPreset: "5f3a"}, lookup)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)

	// Cameras the preset does not cover have no zones.
	other := boxedEvent("cam2", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100})
	d = engine.Decide(other, &zones.NotifierConfig{SelectedPreset: "5f3a"}, lookup)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoZonesConfigured)

	// No preset selected forwards.
	d = engine.Decide(inZone, &zones.NotifierConfig{}, lookup)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoPresetSelected)

	// A dangling preset reference forwards.
	d = engine.Decide(inZone, &zones.NotifierConfig{SelectedPreset: "gone"}, lookup)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonPresetNotFound)

	// Nil config behaves like an unconfigured notifier.
	d = engine.Decide(inZone, nil, lookup)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoPresetSelected)

	// Custom zones win over the selected preset even when empty.
	cfg := &zones.NotifierConfig{
		UseCustomZones: true,
		SelectedPreset: "5f3a",
		Custom:         zones.ProfileSet{},
	}
	d = engine.Decide(inZone, cfg, lookup)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoZonesConfigured)

	cfg.Custom = zones.ProfileSet{
		"cam1": {Camera: "cam1", Zones: []zones.Zone{leftHalf("door", zones.ModeContain)}},
	}
	d = engine.Decide(inZone, cfg, lookup)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneContain)
	test.That(t, d.Evidence.Zone, test.ShouldEqual, "door")
}

func TestDecideClassFilter(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	cfg := &zones.NotifierConfig{
		UseCustomZones: true,
		Custom: zones.ProfileSet{
			"cam1": {Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}},
		},
		DetectionClasses: []string{"person"},
	}

	// A matching class proceeds to zone evaluation.
	d := engine.Decide(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), cfg, nil)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)

	// A non-matching class suppresses before zones are consulted.
	d = engine.Decide(boxedEvent("cam1", "car", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), cfg, nil)
	test.That(t, d.ShouldForward(), test.ShouldBeFalse)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNoClassMatched)

	// Without boxed detections the class filter never suppresses.
	d = engine.Decide(&detection.Event{
		Camera:          "cam1",
		Detections:      []detection.Detection{{Label: "car", Score: 0.9}},
		InputDimensions: detection.Dimensions{Width: 1000, Height: 800},
	}, cfg, nil)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNothingToEvaluate)
}

func TestDecideScoreFilter(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	cfg := &zones.NotifierConfig{
		UseCustomZones: true,
		Custom: zones.ProfileSet{
			"cam1": {Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}},
		},
		MinScore: 0.5,
	}

	d := engine.Decide(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), cfg, nil)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)

	// A low score alone never suppresses; the stripped event just has
	// nothing left to evaluate.
	d = engine.Decide(boxedEvent("cam1", "person", 0.2, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), cfg, nil)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonNothingToEvaluate)
}

func TestEvaluateMultipleDetections(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	profile := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}}

	ev := &detection.Event{
		Camera: "cam1",
		Detections: []detection.Detection{
			{Label: "car", Score: 0.7, Box: &detection.BoundingBox{X: 700, Y: 100, Width: 100, Height: 100}},
			{Label: "cat", Score: 0.6},
			{Label: "person", Score: 0.9, Box: &detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}},
		},
		InputDimensions: detection.Dimensions{Width: 1000, Height: 800},
	}
	d := engine.Evaluate(ev, profile)
	test.That(t, d.ShouldForward(), test.ShouldBeTrue)
	test.That(t, d.Reason, test.ShouldEqual, ReasonZoneIntersect)
	test.That(t, d.Detail, test.ShouldContainSubstring, "person")
}

func TestDecisionJSON(t *testing.T) {
	engine := NewEngine(logging.NewTestLogger(t))
	profile := &zones.Profile{Camera: "cam1", Zones: []zones.Zone{leftHalf("porch", "")}}

	d := engine.Evaluate(boxedEvent("cam1", "person", 0.9, detection.BoundingBox{X: 100, Y: 100, Width: 100, Height: 100}), profile)
	data, err := json.Marshal(d)
	test.That(t, err, test.ShouldBeNil)

	var decoded map[string]interface{}
	test.That(t, json.Unmarshal(data, &decoded), test.ShouldBeNil)
	test.That(t, decoded["verdict"], test.ShouldEqual, "forward")
	test.That(t, decoded["reason"], test.ShouldEqual, "zone_intersect")

	evidence, ok := decoded["evidence"].(map[string]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, evidence["zone"], test.ShouldEqual, "porch")
	zonePoly, ok := evidence["zone_polygon"].([]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, zonePoly, test.ShouldHaveLength, 4)
}

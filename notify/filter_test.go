package notify_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/notify"
	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/testutils/inject"
	"github.com/edgewatch/zonefilter/zones"
)

// leftHalfConfig draws one custom zone over the left half of the camera's
// frame.
func leftHalfConfig(camera string) *zones.NotifierConfig {
	return &zones.NotifierConfig{
		UseCustomZones: true,
		Custom: zones.ProfileSet{
			camera: {Camera: camera, Zones: []zones.Zone{{
				Name:     "porch",
				Vertices: [][2]float64{{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1}},
			}}},
		},
	}
}

func boxedEvent(camera string, box detection.BoundingBox) *detection.Event {
	return &detection.Event{
		Camera: camera,
		Detections: []detection.Detection{
			{Label: "person", Score: 0.9, Box: &box},
		},
		InputDimensions: detection.Dimensions{Width: 1000, Height: 800},
	}
}

type capturingNotifier struct {
	name string
	sent []notify.Notification
	err  error
}

func (n *capturingNotifier) Name() string {
	return n.name
}

func (n *capturingNotifier) SendNotification(_ context.Context, notification notify.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func TestFilterForwardAndSuppress(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	store := settings.NewMemStore()
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", leftHalfConfig("cam1")), test.ShouldBeNil)

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, nil, nil, logger)
	test.That(t, filter.Name(), test.ShouldEqual, "push-1")

	// Inside the left-half zone.
	err := filter.SendNotification(ctx, notify.Notification{
		Title: "Person detected",
		Event: boxedEvent("cam1", detection.BoundingBox{X: 100, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)
	test.That(t, downstream.sent[0].Title, test.ShouldEqual, "Person detected")

	// Entirely in the right half; suppressed without error.
	err = filter.SendNotification(ctx, notify.Notification{
		Title: "Person detected",
		Event: boxedEvent("cam1", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)

	forwarded, suppressed, failed := filter.Stats()
	test.That(t, forwarded, test.ShouldEqual, 1)
	test.That(t, suppressed, test.ShouldEqual, 1)
	test.That(t, failed, test.ShouldEqual, 0)
}

func TestFilterNoStoredConfig(t *testing.T) {
	ctx := context.Background()
	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, settings.NewMemStore(), nil, nil, logging.NewTestLogger(t))

	// Nothing configured means nothing is filtered.
	err := filter.SendNotification(ctx, notify.Notification{
		Event: boxedEvent("cam1", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)
}

func TestFilterStoreErrorFailsOpen(t *testing.T) {
	ctx := context.Background()
	downstream := &capturingNotifier{name: "push-1"}
	store := &inject.SettingsStore{
		NotifierConfigFunc: func(ctx context.Context, id string) (*zones.NotifierConfig, error) {
			return nil, errors.New("database locked")
		},
	}
	filter := notify.NewFilter(downstream, store, nil, nil, logging.NewTestLogger(t))

	err := filter.SendNotification(ctx, notify.Notification{
		Event: boxedEvent("cam1", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)

	forwarded, _, failed := filter.Stats()
	test.That(t, forwarded, test.ShouldEqual, 1)
	test.That(t, failed, test.ShouldEqual, 1)
}

func TestFilterSnoozeIDCameraFallback(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemStore()
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", leftHalfConfig("cam1")), test.ShouldBeNil)

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, nil, nil, logging.NewTestLogger(t))

	// The event does not name its camera; the snooze id's second token does.
	ev := boxedEvent("", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200})
	err := filter.SendNotification(ctx, notify.Notification{
		Event:    ev,
		SnoozeID: "detection-cam1-1700000000",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldBeEmpty)
	// The caller's event stays untouched.
	test.That(t, ev.Camera, test.ShouldEqual, "")

	// Without a usable snooze id the camera stays unknown, so no zones apply.
	err = filter.SendNotification(ctx, notify.Notification{
		Event:    boxedEvent("", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200}),
		SnoozeID: "detection",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)
}

func TestFilterDebugOverlay(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemStore()
	cfg := leftHalfConfig("cam1")
	cfg.DebugZones = true
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", cfg), test.ShouldBeNil)

	snapshot := imaging.New(200, 100, color.NRGBA{255, 255, 255, 255})
	var imageCalls int
	cameras := &inject.CameraRegistry{
		CameraByIDFunc: func(id string) (notify.Camera, bool) {
			if id != "cam1" {
				return nil, false
			}
			return &inject.Camera{
				NameFunc: func() string { return id },
				ImageFunc: func(ctx context.Context) (image.Image, error) {
					imageCalls++
					return snapshot, nil
				},
			}, true
		},
	}

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, nil, cameras, logging.NewTestLogger(t))

	original := []byte("jpeg-from-host")
	err := filter.SendNotification(ctx, notify.Notification{
		Event:     boxedEvent("cam1", detection.BoundingBox{X: 100, Y: 100, Width: 200, Height: 200}),
		Media:     original,
		MediaMIME: "image/jpeg",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)
	test.That(t, imageCalls, test.ShouldEqual, 1)

	sent := downstream.sent[0]
	test.That(t, sent.MediaMIME, test.ShouldEqual, "image/png")
	test.That(t, len(sent.Media), test.ShouldBeGreaterThan, 8)
	// PNG magic.
	test.That(t, sent.Media[:4], test.ShouldResemble, []byte{0x89, 'P', 'N', 'G'})
}

func TestFilterDebugOverlayFailureKeepsMedia(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemStore()
	cfg := leftHalfConfig("cam1")
	cfg.DebugZones = true
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", cfg), test.ShouldBeNil)

	cameras := &inject.CameraRegistry{
		CameraByIDFunc: func(id string) (notify.Camera, bool) {
			return &inject.Camera{
				NameFunc: func() string { return id },
				ImageFunc: func(ctx context.Context) (image.Image, error) {
					return nil, errors.New("stream offline")
				},
			}, true
		},
	}

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, nil, cameras, logging.NewTestLogger(t))

	original := []byte("jpeg-from-host")
	err := filter.SendNotification(ctx, notify.Notification{
		Event:     boxedEvent("cam1", detection.BoundingBox{X: 100, Y: 100, Width: 200, Height: 200}),
		Media:     original,
		MediaMIME: "image/jpeg",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldHaveLength, 1)
	test.That(t, downstream.sent[0].Media, test.ShouldResemble, original)
	test.That(t, downstream.sent[0].MediaMIME, test.ShouldEqual, "image/jpeg")
}

func TestFilterCameraLookupCached(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemStore()
	cfg := leftHalfConfig("cam1")
	cfg.DebugZones = true
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", cfg), test.ShouldBeNil)

	snapshot := imaging.New(200, 100, color.NRGBA{255, 255, 255, 255})
	camera := &inject.Camera{
		NameFunc:  func() string { return "cam1" },
		ImageFunc: func(ctx context.Context) (image.Image, error) { return snapshot, nil },
	}
	var lookups int
	cameras := &inject.CameraRegistry{
		CameraByIDFunc: func(id string) (notify.Camera, bool) {
			lookups++
			return camera, true
		},
	}

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, nil, cameras, logging.NewTestLogger(t))

	notification := notify.Notification{
		Event: boxedEvent("cam1", detection.BoundingBox{X: 100, Y: 100, Width: 200, Height: 200}),
	}
	test.That(t, filter.SendNotification(ctx, notification), test.ShouldBeNil)
	test.That(t, filter.SendNotification(ctx, notification), test.ShouldBeNil)

	// Second send hits the short-lived camera cache.
	test.That(t, lookups, test.ShouldEqual, 1)
}

func TestFilterDownstreamError(t *testing.T) {
	ctx := context.Background()
	downstream := &capturingNotifier{name: "push-1", err: errors.New("delivery refused")}
	filter := notify.NewFilter(downstream, settings.NewMemStore(), nil, nil, logging.NewTestLogger(t))

	err := filter.SendNotification(ctx, notify.Notification{
		Event: boxedEvent("cam1", detection.BoundingBox{X: 100, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldNotBeNil)

	forwarded, _, failed := filter.Stats()
	test.That(t, forwarded, test.ShouldEqual, 0)
	test.That(t, failed, test.ShouldEqual, 1)
}

func TestFilterPresetLookup(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemStore()
	test.That(t, store.SaveNotifierConfig(ctx, "push-1", &zones.NotifierConfig{SelectedPreset: "p1"}), test.ShouldBeNil)

	preset := &zones.Preset{
		ID:   "p1",
		Name: "Home",
		Profiles: zones.ProfileSet{
			"cam1": {Camera: "cam1", Zones: []zones.Zone{{
				Name:     "porch",
				Vertices: [][2]float64{{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1}},
			}}},
		},
	}
	lookup := func(id string) (*zones.Preset, bool) {
		if id == preset.ID {
			return preset, true
		}
		return nil, false
	}

	downstream := &capturingNotifier{name: "push-1"}
	filter := notify.NewFilter(downstream, store, lookup, nil, logging.NewTestLogger(t))

	err := filter.SendNotification(ctx, notify.Notification{
		Event: boxedEvent("cam1", detection.BoundingBox{X: 700, Y: 100, Width: 200, Height: 200}),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, downstream.sent, test.ShouldBeEmpty)

	_, suppressed, _ := filter.Stats()
	test.That(t, suppressed, test.ShouldEqual, 1)
}

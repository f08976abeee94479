package notify

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/edgewatch/zonefilter/decision"
	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/overlay"
	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/zones"
)

const (
	cameraCacheSize = 1024
	cameraCacheTTL  = 5 * time.Second

	overlayMIME = "image/png"
)

// Filter wraps a Notifier and suppresses notifications whose detections land
// outside the notifier's configured zones. The zone configuration is loaded
// from the settings store on every call so edits apply to the next event
// without a restart. Everything that can go wrong internally fails open; a
// broken store or renderer degrades to forwarding, never to silence.
type Filter struct {
	logger  logging.Logger
	wrapped Notifier
	store   settings.Store
	engine  *decision.Engine
	lookup  zones.PresetLookup
	cameras CameraRegistry

	cameraCache *expirable.LRU[string, Camera]

	forwarded  atomic.Int64
	suppressed atomic.Int64
	failed     atomic.Int64
}

// NewFilter wraps the given notifier. lookup resolves preset ids for the
// notifier's config; cameras may be nil when the host offers no snapshot
// capability, which only disables debug overlays.
func NewFilter(
	wrapped Notifier,
	store settings.Store,
	lookup zones.PresetLookup,
	cameras CameraRegistry,
	logger logging.Logger,
) *Filter {
	if logger == nil {
		logger = logging.Global()
	}
	return &Filter{
		logger:      logger,
		wrapped:     wrapped,
		store:       store,
		engine:      decision.NewEngine(logger),
		lookup:      lookup,
		cameras:     cameras,
		cameraCache: expirable.NewLRU[string, Camera](cameraCacheSize, nil, cameraCacheTTL),
	}
}

// Name returns the wrapped notifier's name.
func (f *Filter) Name() string {
	return f.wrapped.Name()
}

// SendNotification decides whether the notification should reach the wrapped
// notifier. Suppressed notifications return nil so hosts treat them as
// delivered.
func (f *Filter) SendNotification(ctx context.Context, notification Notification) error {
	cfg, err := f.store.NotifierConfig(ctx, f.wrapped.Name())
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		f.failed.Inc()
		f.logger.Warnw("notifier config load failed; forwarding",
			"notifier", f.wrapped.Name(), "error", err)
		return f.forward(ctx, notification)
	}
	if cfg == nil {
		cfg = &zones.NotifierConfig{}
	}

	ev := f.eventForDecision(notification)
	d := f.engine.Decide(ev, cfg, f.lookup)
	if !d.ShouldForward() {
		f.suppressed.Inc()
		f.logger.Infow("notification suppressed",
			"notifier", f.wrapped.Name(), "camera", eventCamera(ev),
			"reason", d.Reason, "detail", d.Detail)
		return nil
	}

	if cfg.DebugZones && d.Evidence != nil {
		if media, ok := f.renderOverlay(ctx, d.Evidence); ok {
			notification.Media = media
			notification.MediaMIME = overlayMIME
		}
	}

	f.logger.Debugw("notification forwarded",
		"notifier", f.wrapped.Name(), "camera", eventCamera(ev), "reason", d.Reason)
	return f.forward(ctx, notification)
}

// Stats returns the running forwarded, suppressed, and failed counts.
func (f *Filter) Stats() (forwarded, suppressed, failed int64) {
	return f.forwarded.Load(), f.suppressed.Load(), f.failed.Load()
}

func (f *Filter) forward(ctx context.Context, notification Notification) error {
	if err := f.wrapped.SendNotification(ctx, notification); err != nil {
		f.failed.Inc()
		return err
	}
	f.forwarded.Inc()
	return nil
}

// eventForDecision returns the event the engine should decide on. When the
// host left Event.Camera empty, the camera id is recovered from the snooze
// id's second token; the event is copied so the caller's stays untouched.
func (f *Filter) eventForDecision(notification Notification) *detection.Event {
	ev := notification.Event
	if ev == nil || ev.Camera != "" {
		return ev
	}
	camera := cameraFromSnoozeID(notification.SnoozeID)
	if camera == "" {
		return ev
	}
	copied := *ev
	copied.Camera = camera
	return &copied
}

// renderOverlay fetches a fresh snapshot from the matched camera and strokes
// the decision evidence onto it. Failures are logged and reported as a miss
// so the caller keeps the original media.
func (f *Filter) renderOverlay(ctx context.Context, evidence *decision.Evidence) ([]byte, bool) {
	camera, ok := f.cameraByID(evidence.Camera)
	if !ok {
		f.logger.Debugw("debug overlay skipped; camera unavailable", "camera", evidence.Camera)
		return nil, false
	}

	snapshot, err := camera.Image(ctx)
	if err != nil {
		f.logger.Warnw("debug overlay snapshot failed", "camera", evidence.Camera, "error", err)
		return nil, false
	}

	rendered, err := overlay.Render(snapshot, evidence)
	if err != nil {
		f.logger.Warnw("debug overlay render failed", "camera", evidence.Camera, "error", err)
		return nil, false
	}

	var buf bytes.Buffer
	if err := overlay.EncodePNG(&buf, rendered); err != nil {
		f.logger.Warnw("debug overlay encode failed", "camera", evidence.Camera, "error", err)
		return nil, false
	}
	return buf.Bytes(), true
}

// cameraByID resolves a camera through a short-lived cache so event bursts do
// not hammer the host's registry.
func (f *Filter) cameraByID(id string) (Camera, bool) {
	if id == "" {
		return nil, false
	}
	if camera, ok := f.cameraCache.Get(id); ok {
		return camera, true
	}
	if f.cameras == nil {
		return nil, false
	}
	camera, ok := f.cameras.CameraByID(id)
	if !ok {
		return nil, false
	}
	f.cameraCache.Add(id, camera)
	return camera, true
}

// cameraFromSnoozeID extracts the camera id encoded as the second token of a
// snooze id, e.g. "detection-cam1-1700000000".
func cameraFromSnoozeID(snoozeID string) string {
	parts := strings.Split(snoozeID, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func eventCamera(ev *detection.Event) string {
	if ev == nil {
		return ""
	}
	return ev.Camera
}

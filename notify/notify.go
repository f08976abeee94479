// Package notify defines the host-facing notification interfaces and the
// zone filter that wraps them. The host owns detection, snapshots, and
// delivery; this package owns the decision of whether a notification is
// worth delivering at all.
package notify

import (
	"context"
	"image"

	"github.com/edgewatch/zonefilter/detection"
)

// Notifier is a notification delivery sink owned by the host. Name identifies
// the notifier; it keys the stored zone configuration.
type Notifier interface {
	Name() string
	SendNotification(ctx context.Context, notification Notification) error
}

// Notification is one outbound notification. Event carries the detections the
// notification is about; SnoozeID is the host's dedup token, which encodes
// the camera id on hosts that omit Event.Camera. Media optionally carries an
// attached snapshot.
type Notification struct {
	Title     string
	Body      string
	Event     *detection.Event
	SnoozeID  string
	Media     []byte
	MediaMIME string
}

// Camera is a host camera that can produce a still frame.
type Camera interface {
	Name() string
	Image(ctx context.Context) (image.Image, error)
}

// CameraRegistry exposes the host's detector-capable cameras. Cameras without
// object detection are not listed; they produce no events to filter.
type CameraRegistry interface {
	CameraByID(id string) (Camera, bool)
	DetectorCameras() []string
}

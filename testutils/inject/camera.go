package inject

import (
	"context"
	"image"

	"github.com/edgewatch/zonefilter/notify"
)

// Camera is an injected camera.
type Camera struct {
	notify.Camera
	NameFunc  func() string
	ImageFunc func(ctx context.Context) (image.Image, error)
}

// Name calls the injected Name or the real version.
func (c *Camera) Name() string {
	if c.NameFunc == nil {
		return c.Camera.Name()
	}
	return c.NameFunc()
}

// Image calls the injected Image or the real version.
func (c *Camera) Image(ctx context.Context) (image.Image, error) {
	if c.ImageFunc == nil {
		return c.Camera.Image(ctx)
	}
	return c.ImageFunc(ctx)
}

// CameraRegistry is an injected camera registry.
type CameraRegistry struct {
	notify.CameraRegistry
	CameraByIDFunc      func(id string) (notify.Camera, bool)
	DetectorCamerasFunc func() []string
}

// CameraByID calls the injected CameraByID or the real version.
func (r *CameraRegistry) CameraByID(id string) (notify.Camera, bool) {
	if r.CameraByIDFunc == nil {
		return r.CameraRegistry.CameraByID(id)
	}
	return r.CameraByIDFunc(id)
}

// DetectorCameras calls the injected DetectorCameras or the real version.
func (r *CameraRegistry) DetectorCameras() []string {
	if r.DetectorCamerasFunc == nil {
		return r.CameraRegistry.DetectorCameras()
	}
	return r.DetectorCamerasFunc()
}

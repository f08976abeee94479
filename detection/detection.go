// Package detection defines the object detection event model consumed by the
// zone filter. Events originate from host detection pipelines; this package
// only describes them, it never runs inference.
package detection

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/edgewatch/zonefilter/geometry"
)

// Dimensions is a frame size in pixels. Its wire form is the two-element
// array [width, height] emitted by detection pipelines.
type Dimensions struct {
	Width  float64
	Height float64
}

// Valid reports whether the dimensions describe a usable frame.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// MarshalJSON encodes the dimensions as [width, height].
func (d Dimensions) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{d.Width, d.Height})
}

// UnmarshalJSON decodes the [width, height] wire form.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	var arr [2]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return errors.Wrap(err, "dimensions must be [width, height]")
	}
	d.Width, d.Height = arr[0], arr[1]
	return nil
}

// BoundingBox is an axis-aligned detection rectangle in pixel space. Its
// wire form is the four-element array [x, y, width, height] with the origin
// at the frame's top-left corner.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// MarshalJSON encodes the box as [x, y, width, height].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.Width, b.Height})
}

// UnmarshalJSON decodes the [x, y, width, height] wire form.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return errors.Wrap(err, "bounding box must be [x, y, width, height]")
	}
	b.X, b.Y, b.Width, b.Height = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// Polygon converts the box into a matchable polygon. Degenerate boxes are
// rejected with geometry.ErrInvalidGeometry.
func (b BoundingBox) Polygon() (*geometry.Polygon, error) {
	return geometry.NewBox(b.X, b.Y, b.Width, b.Height)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.1f, %.1f, %.1f, %.1f]", b.X, b.Y, b.Width, b.Height)
}

// Detection is a single detected object. Box is nil when the pipeline
// reported an object without localizing it; such detections cannot be
// matched against zones.
type Detection struct {
	Label string       `json:"label,omitempty"`
	Score float64      `json:"score,omitempty"`
	Box   *BoundingBox `json:"boundingBox,omitempty"`
}

// Event is one detection event as delivered by a host pipeline. Camera may
// be empty on hosts that only identify the source out of band.
// InputDimensions describes the frame the bounding boxes are expressed in;
// a zero value means the pipeline did not report them.
type Event struct {
	Camera          string      `json:"camera,omitempty"`
	Detections      []Detection `json:"detections,omitempty"`
	InputDimensions Dimensions  `json:"inputDimensions"`
}

// Boxed returns the detections that carry a bounding box, preserving order.
func (e *Event) Boxed() []Detection {
	out := make([]Detection, 0, len(e.Detections))
	for _, d := range e.Detections {
		if d.Box != nil {
			out = append(out, d)
		}
	}
	return out
}

// Package overlay renders zone debug images: the zones and matched detection
// geometry of a decision drawn onto a camera snapshot. Zones are drawn in
// red, the matching detection in blue, mirroring the colors users see in the
// zone editor.
package overlay

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/edgewatch/zonefilter/decision"
	"github.com/edgewatch/zonefilter/geometry"
	"github.com/edgewatch/zonefilter/zones"
)

const (
	lineWidth = 3
	labelSize = 16
)

var (
	zoneColor      = color.NRGBA{R: 255, A: 255}
	detectionColor = color.NRGBA{B: 255, A: 255}
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Render draws decision evidence onto a snapshot and returns the annotated
// image. The evidence polygons are in the pixel space of the frame the
// detections were reported against, so the snapshot must have the same
// resolution.
func Render(snapshot image.Image, evidence *decision.Evidence) (image.Image, error) {
	if snapshot == nil {
		return nil, errors.New("no snapshot to draw on")
	}
	if evidence == nil {
		return nil, errors.New("no evidence to draw")
	}

	dc := gg.NewContextForImage(snapshot)
	if evidence.ZonePolygon != nil {
		drawPolygon(dc, evidence.ZonePolygon, zoneColor)
		if evidence.Zone != "" {
			labelPolygon(dc, evidence.ZonePolygon, evidence.Zone, zoneColor)
		}
	}
	if evidence.DetectionPolygon != nil {
		drawPolygon(dc, evidence.DetectionPolygon, detectionColor)
	}
	return dc.Image(), nil
}

// RenderZones draws every active zone of a profile onto a snapshot, scaled to
// the snapshot's resolution. Zones with unusable geometry are skipped.
func RenderZones(snapshot image.Image, profile *zones.Profile) (image.Image, error) {
	if snapshot == nil {
		return nil, errors.New("no snapshot to draw on")
	}

	bounds := snapshot.Bounds()
	dc := gg.NewContextForImage(snapshot)
	if profile != nil {
		for _, z := range profile.Zones {
			if !z.Active() {
				continue
			}
			poly, err := z.PixelPolygon(float64(bounds.Dx()), float64(bounds.Dy()))
			if err != nil {
				continue
			}
			drawPolygon(dc, poly, zoneColor)
			if z.Name != "" {
				labelPolygon(dc, poly, z.Name, zoneColor)
			}
		}
	}
	return dc.Image(), nil
}

// EncodePNG writes an image to w in PNG format.
func EncodePNG(w io.Writer, img image.Image) error {
	return errors.Wrap(imaging.Encode(w, img, imaging.PNG), "encode overlay png")
}

// DecodeSnapshot reads a snapshot image from r, in any registered format.
func DecodeSnapshot(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return img, nil
}

func drawPolygon(dc *gg.Context, poly *geometry.Polygon, c color.Color) {
	verts := poly.Vertices()
	if len(verts) == 0 {
		return
	}
	dc.MoveTo(verts[0].X, verts[0].Y)
	for _, v := range verts[1:] {
		dc.LineTo(v.X, v.Y)
	}
	dc.ClosePath()
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)
	dc.Stroke()
}

// labelPolygon writes a name just inside the polygon's first vertex.
func labelPolygon(dc *gg.Context, poly *geometry.Polygon, name string, c color.Color) {
	verts := poly.Vertices()
	if len(verts) == 0 {
		return
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: labelSize}))
	dc.SetColor(c)
	dc.DrawStringWrapped(name, verts[0].X+lineWidth, verts[0].Y+lineWidth, 0, 0, float64(dc.Width()), 1, 0)
}

// Package main provides a one-shot evaluator that runs a detection event
// JSON file against a zone profile or preset and prints the decision.
// With -snapshot and -out it also renders the decision overlay to a PNG.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.viam.com/utils"

	"github.com/edgewatch/zonefilter/decision"
	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/overlay"
	"github.com/edgewatch/zonefilter/zones"
)

var logger = logging.NewLogger("zoneeval")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	EventFile   string `flag:"0,required,usage=detection event JSON file"`
	ProfileFile string `flag:"profile,usage=zone profile JSON file"`
	PresetFile  string `flag:"preset,usage=preset JSON file; the event camera picks the profile"`
	Camera      string `flag:"camera,usage=override the event camera"`
	Snapshot    string `flag:"snapshot,usage=camera snapshot to draw the overlay on"`
	Out         string `flag:"out,usage=overlay output file (PNG)"`
	Debug       bool   `flag:"debug"`
}

func mainWithArgs(_ context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logging.GlobalLogLevel.SetLevel(zap.DebugLevel)
	}
	if (argsParsed.Snapshot == "") != (argsParsed.Out == "") {
		return errors.New("-snapshot and -out must be used together")
	}

	ev, err := readEvent(argsParsed.EventFile)
	if err != nil {
		return err
	}
	if argsParsed.Camera != "" {
		ev.Camera = argsParsed.Camera
	}

	profile, err := resolveProfile(argsParsed, ev.Camera)
	if err != nil {
		return err
	}

	d := decision.NewEngine(logger).Evaluate(ev, profile)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return err
	}

	if argsParsed.Out == "" {
		return nil
	}
	return writeOverlay(argsParsed.Snapshot, argsParsed.Out, d.Evidence, profile)
}

// readEvent decodes leniently; events piped in from detectors may carry
// fields this tool does not know about.
func readEvent(path string) (*detection.Event, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ev detection.Event
	if err := json.Unmarshal(buf, &ev); err != nil {
		return nil, errors.Wrapf(err, "failed to decode event from %q", path)
	}
	return &ev, nil
}

func resolveProfile(argsParsed Arguments, camera string) (*zones.Profile, error) {
	switch {
	case argsParsed.ProfileFile != "" && argsParsed.PresetFile != "":
		return nil, errors.New("only one of -profile or -preset may be given")
	case argsParsed.ProfileFile != "":
		var profile zones.Profile
		if err := decodeZonesFile(argsParsed.ProfileFile, &profile); err != nil {
			return nil, err
		}
		if err := profile.Validate("profile"); err != nil {
			return nil, err
		}
		return &profile, nil
	case argsParsed.PresetFile != "":
		var preset zones.Preset
		if err := decodeZonesFile(argsParsed.PresetFile, &preset); err != nil {
			return nil, err
		}
		profile := preset.ProfileFor(camera)
		if err := profile.Validate("profile"); err != nil {
			return nil, err
		}
		return profile, nil
	}
	return nil, errors.New("one of -profile or -preset is required")
}

// decodeZonesFile decodes strictly; profiles and presets are hand written
// and a misspelled key should fail loudly rather than evaluate as absent.
func decodeZonesFile(path string, into interface{}) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(buf))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return errors.Wrapf(err, "failed to decode %q", path)
	}
	return nil
}

func writeOverlay(snapshotPath, outPath string, evidence *decision.Evidence, profile *zones.Profile) (err error) {
	in, err := os.Open(snapshotPath)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)
	snapshot, err := overlay.DecodeSnapshot(in)
	if err != nil {
		return err
	}

	var annotated image.Image
	if evidence != nil {
		annotated, err = overlay.Render(snapshot, evidence)
	} else {
		// No matched geometry to show; draw the zones alone.
		annotated, err = overlay.RenderZones(snapshot, profile)
	}
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	return overlay.EncodePNG(out, annotated)
}

package web

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"goji.io/pat"

	"github.com/edgewatch/zonefilter/detection"
	"github.com/edgewatch/zonefilter/settings"
	"github.com/edgewatch/zonefilter/zones"
)

// registeredConfigSchemas maps the editable config types to the JSON schemas
// a UI needs to build forms for them.
var registeredConfigSchemas = map[string]*jsonschema.Schema{
	"notifier_config": jsonschema.Reflect(&zones.NotifierConfig{}),
	"zone":            jsonschema.Reflect(&zones.Zone{}),
	"profile":         jsonschema.Reflect(&zones.Profile{}),
	"preset":          jsonschema.Reflect(&zones.Preset{}),
}

// PresetSummary is the list form of a preset.
type PresetSummary struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Cameras []string `json:"cameras"`
}

// PresetsResponse is the JSON response for listing presets.
type PresetsResponse struct {
	Presets []PresetSummary `json:"presets"`
	Count   int             `json:"count"`
}

// CamerasResponse is the JSON response for listing detector cameras.
type CamerasResponse struct {
	Cameras []string `json:"cameras"`
	Count   int      `json:"count"`
}

// EvaluateRequest asks for a dry-run decision on one event. Config carries
// inline notifier attributes; Notifier names a stored config instead. Inline
// wins when both are present.
type EvaluateRequest struct {
	Notifier string             `json:"notifier,omitempty"`
	Config   zones.AttributeMap `json:"config,omitempty"`
	Event    *detection.Event   `json:"event"`
}

func presetSummary(preset *zones.Preset) PresetSummary {
	cameras := lo.Keys(preset.Profiles)
	sort.Strings(cameras)
	return PresetSummary{ID: preset.ID, Name: preset.Name, Cameras: cameras}
}

type namedRequest struct {
	Name string `json:"name"`
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	summaries := lo.Map(s.registry.List(), func(preset *zones.Preset, _ int) PresetSummary {
		return presetSummary(preset)
	})
	s.writeJSON(w, http.StatusOK, PresetsResponse{Presets: summaries, Count: len(summaries)})
}

func (s *Server) createPreset(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	preset, err := s.registry.Create(r.Context(), req.Name)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.registry.Get(pat.Param(r, "id"))
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

func (s *Server) renamePreset(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	preset, err := s.registry.Rename(r.Context(), pat.Param(r, "id"), req.Name)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), pat.Param(r, "id")); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putPresetProfile replaces a preset's zones for one camera. A JSON null body
// removes the camera from the preset.
func (s *Server) putPresetProfile(w http.ResponseWriter, r *http.Request) {
	var profile *zones.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if profile != nil {
		if err := profile.Validate("profile"); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	preset, err := s.registry.SetProfile(r.Context(), pat.Param(r, "id"), pat.Param(r, "camera"), profile)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

func (s *Server) getNotifierConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.NotifierConfig(r.Context(), pat.Param(r, "id"))
	if errors.Is(err, settings.ErrNotFound) {
		cfg = &zones.NotifierConfig{}
	} else if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) putNotifierConfig(w http.ResponseWriter, r *http.Request) {
	var attrs zones.AttributeMap
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := zones.DecodeNotifierConfig(attrs)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := cfg.Validate("config"); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SaveNotifierConfig(r.Context(), pat.Param(r, "id"), cfg); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

// evaluate runs a decision without delivering anything, so zone setups can be
// tested against captured events.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Event == nil {
		s.writeJSONError(w, http.StatusBadRequest, "event is required")
		return
	}

	var cfg *zones.NotifierConfig
	switch {
	case req.Config != nil:
		decoded, err := zones.DecodeNotifierConfig(req.Config)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := decoded.Validate("config"); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg = decoded
	case req.Notifier != "":
		stored, err := s.store.NotifierConfig(r.Context(), req.Notifier)
		if errors.Is(err, settings.ErrNotFound) {
			stored = &zones.NotifierConfig{}
		} else if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		cfg = stored
	default:
		cfg = &zones.NotifierConfig{}
	}

	s.writeJSON(w, http.StatusOK, s.engine.Decide(req.Event, cfg, s.registry.Lookup()))
}

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	cameras := []string{}
	if s.cameras != nil {
		cameras = append(cameras, s.cameras.DetectorCameras()...)
	}
	s.writeJSON(w, http.StatusOK, CamerasResponse{Cameras: cameras, Count: len(cameras)})
}

func (s *Server) getSchemas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, registeredConfigSchemas)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	utils.UncheckedError(json.NewEncoder(w).Encode(v))
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeRegistryError maps registry failures onto HTTP statuses.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zones.ErrPresetNotFound) || errors.Is(err, settings.ErrNotFound):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// Package config loads the demo driver's RenderJob document: a flat JSON
// struct loaded with encoding/json, then a Resolve step that fills
// defaults and lets CLI flags (from the stdlib flag package, in
// cmd/render) override file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RenderJob is the JSON document cmd/render loads: enough to build a scene
// and run one forward render. Scene geometry itself lives in a separate
// scene file (internal/scenefile) pointed to by ScenePath rather than
// being inlined here.
type RenderJob struct {
	ScenePath      string  `json:"scene_path"`
	BackgroundPath string  `json:"background_path"`
	OutputPath     string  `json:"output_path"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Sigma          float64 `json:"sigma"`
	Supersample    int     `json:"supersample"`
	WebP           bool    `json:"webp"`
}

// Load reads a JSON RenderJob file. Fields absent from the file keep their
// zero values, resolved by Resolve.
func Load(path string) (RenderJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RenderJob{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var job RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return RenderJob{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return job, nil
}

// Flags holds CLI flag values; flags win over file values in Resolve.
type Flags struct {
	ScenePath      string
	BackgroundPath string
	OutputPath     string
	Width          int
	Height         int
	Sigma          float64
	Supersample    int
}

// Resolve applies CLI overrides and fills defaults for anything still
// unset.
func (j *RenderJob) Resolve(flags Flags) {
	if flags.ScenePath != "" {
		j.ScenePath = flags.ScenePath
	}
	if flags.BackgroundPath != "" {
		j.BackgroundPath = flags.BackgroundPath
	}
	if flags.OutputPath != "" {
		j.OutputPath = flags.OutputPath
	}
	if flags.Width > 0 {
		j.Width = flags.Width
	}
	if flags.Height > 0 {
		j.Height = flags.Height
	}
	if flags.Sigma > 0 {
		j.Sigma = flags.Sigma
	}
	if flags.Supersample > 0 {
		j.Supersample = flags.Supersample
	}

	if j.Width <= 0 {
		j.Width = 256
	}
	if j.Height <= 0 {
		j.Height = 256
	}
	if j.Supersample <= 0 {
		j.Supersample = 1
	}
	if j.OutputPath == "" {
		j.OutputPath = "render.png"
	}
}

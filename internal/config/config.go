// Package config loads sideline's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwulff/sideline/internal/annotate"
	"github.com/jwulff/sideline/internal/folder"
	"github.com/jwulff/sideline/internal/region"
)

// DefaultFileName is looked up in the working directory when no path is
// given.
const DefaultFileName = "sideline.yaml"

// Environment overrides.
const (
	EnvConfig    = "SIDELINE_CONFIG"
	EnvMPV       = "SIDELINE_MPV"
	EnvFFmpeg    = "SIDELINE_FFMPEG"
	EnvTesseract = "SIDELINE_TESSERACT"
	EnvExportDir = "SIDELINE_EXPORT_DIR"
)

// Features toggles optional parts of the review screen.
type Features struct {
	ClockRecognition bool `yaml:"clock_recognition"`
	FolderBrowsing   bool `yaml:"folder_browsing"`
	TeamTagging      bool `yaml:"team_tagging"`
}

// Binaries are the external programs sideline drives.
type Binaries struct {
	MPV       string `yaml:"mpv"`
	FFmpeg    string `yaml:"ffmpeg"`
	Tesseract string `yaml:"tesseract"`
}

// Region is a preset clock region in display coordinates.
type Region struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Rect converts the preset to a region.Rect.
func (r Region) Rect() region.Rect {
	return region.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// Config holds every setting.
type Config struct {
	Binaries Binaries `yaml:"binaries"`
	Socket   string   `yaml:"socket"`

	// Recognition
	Language         string        `yaml:"language"`
	AutoReadInterval time.Duration `yaml:"auto_read_interval"`
	MinRegionSize    float64       `yaml:"min_region_size"`
	ClockRegion      *Region       `yaml:"clock_region"`

	// Playback
	SeekStep float64 `yaml:"seek_step"`

	// Export
	ExportDir string `yaml:"export_dir"`

	Features Features          `yaml:"features"`
	Actions  []annotate.Action `yaml:"actions"`
	Teams    [2]string         `yaml:"teams"`

	LogFile string `yaml:"log_file"`

	path string
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}

	c.Binaries.MPV = "mpv"
	c.Binaries.FFmpeg = "ffmpeg"
	c.Binaries.Tesseract = "tesseract"

	c.Language = "eng"
	c.AutoReadInterval = time.Second
	c.MinRegionSize = region.DefaultMinSize

	c.SeekStep = 3

	c.ExportDir = "."

	c.Features = Features{ClockRecognition: true, FolderBrowsing: true, TeamTagging: true}
	c.Actions = append([]annotate.Action(nil), annotate.DefaultActions...)
	c.Teams = folder.DefaultTeams

	c.LogFile = filepath.Join(os.TempDir(), "sideline.log")
	return c
}

// Load reads the configuration. Fields missing from the file keep their
// defaults. An empty path uses $SIDELINE_CONFIG, then DefaultFileName; a
// missing default file is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFileName
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		path = ""
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.path = path

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// Path returns the file the configuration was read from, or "" when only
// defaults apply.
func (c *Config) Path() string { return c.path }

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		EnvMPV:       &c.Binaries.MPV,
		EnvFFmpeg:    &c.Binaries.FFmpeg,
		EnvTesseract: &c.Binaries.Tesseract,
		EnvExportDir: &c.ExportDir,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

func (c *Config) normalize() {
	def := Default()

	c.Binaries.MPV = orDefault(c.Binaries.MPV, def.Binaries.MPV)
	c.Binaries.FFmpeg = orDefault(c.Binaries.FFmpeg, def.Binaries.FFmpeg)
	c.Binaries.Tesseract = orDefault(c.Binaries.Tesseract, def.Binaries.Tesseract)
	c.Language = orDefault(c.Language, def.Language)
	c.ExportDir = filepath.Clean(orDefault(c.ExportDir, def.ExportDir))
	c.LogFile = orDefault(c.LogFile, def.LogFile)
	c.Socket = strings.TrimSpace(c.Socket)

	if c.AutoReadInterval <= 0 {
		c.AutoReadInterval = def.AutoReadInterval
	}
	if c.MinRegionSize <= 0 {
		c.MinRegionSize = def.MinRegionSize
	}
	if c.SeekStep <= 0 {
		c.SeekStep = def.SeekStep
	}

	c.Actions = normalizeActions(c.Actions)
	if len(c.Actions) == 0 {
		c.Actions = def.Actions
	}

	for i := range c.Teams {
		c.Teams[i] = strings.TrimSpace(c.Teams[i])
	}
	if c.Teams[0] == "" || c.Teams[1] == "" {
		c.Teams = def.Teams
	}

	if c.ClockRegion != nil && !c.ClockRegion.Rect().Empty() {
		return
	}
	c.ClockRegion = nil
}

// normalizeActions trims actions, drops those without an id and keeps the
// first of duplicate ids. A missing label or color falls back to the id and
// the custom color.
func normalizeActions(in []annotate.Action) []annotate.Action {
	seen := make(map[string]bool, len(in))
	out := make([]annotate.Action, 0, len(in))
	for _, a := range in {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		a.Label = orDefault(a.Label, a.ID)
		a.Color = orDefault(a.Color, annotate.CustomColor)
		out = append(out, a)
	}
	return out
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

package datasmith

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// Options controls a scene export.
type Options struct {
	// RootTag names the root element of the scene document.
	RootTag    string `toml:"root_tag"`
	Version    string `toml:"version"`
	SDKVersion string `toml:"sdk_version"`
	Host       string `toml:"host"`
	// AssetsSuffix is appended to the scene name to form the folder that
	// holds meshes and textures.
	AssetsSuffix string `toml:"assets_suffix"`
	// Workers bounds concurrent mesh and texture writes.
	Workers                 int    `toml:"workers"`
	ExperimentalTextureMode bool   `toml:"experimental_texture_mode"`
	LogLevel                string `toml:"log_level"`

	Hash Hasher `toml:"-"`
}

func DefaultOptions() Options {
	return Options{
		RootTag:      "DatasmithUnrealScene",
		Version:      "0.22",
		SDKVersion:   "4.22",
		Host:         "Blender",
		AssetsSuffix: "_Assets",
		Workers:      runtime.NumCPU(),
		LogLevel:     "warn",
		Hash:         HashFile,
	}
}

// LoadOptions reads a TOML file over DefaultOptions. Keys missing from the
// file keep their defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	return opts, opts.normalize()
}

func (o *Options) normalize() error {
	def := DefaultOptions()
	if o.RootTag == "" {
		o.RootTag = def.RootTag
	}
	if o.AssetsSuffix == "" {
		o.AssetsSuffix = def.AssetsSuffix
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.Hash == nil {
		o.Hash = HashFile
	}
	if o.LogLevel == "" {
		o.LogLevel = def.LogLevel
	}
	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level is the parsed LogLevel, warn when unset or invalid.
func (o Options) Level() log.Level {
	lvl, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

package packager

import (
	"path/filepath"

	internalconfig "github.com/scadu/serverless/internal/config"
	internalpackager "github.com/scadu/serverless/internal/packager"
	"github.com/scadu/serverless/internal/patterns"
)

// The engine lives in the internal packager package; the aliases here are
// the names external integrations import.
type (
	Packager = internalpackager.Packager
	Artifact = internalpackager.Artifact
	Plan     = internalpackager.Plan
	Unit     = internalpackager.Unit
	Mode     = internalpackager.Mode
	Kind     = internalpackager.Kind
)

// Typed errors reported by planning and runs.
type (
	ConfigErr         = internalpackager.ConfigErr
	EmptySelectionErr = internalpackager.EmptySelectionErr
	SyntaxError       = patterns.SyntaxError
)

const (
	ModeShared     = internalpackager.ModeShared
	ModeIndividual = internalpackager.ModeIndividual
	ModePreBuilt   = internalpackager.ModePreBuilt
)

const (
	KindService  = internalpackager.KindService
	KindFunction = internalpackager.KindFunction
	KindLayer    = internalpackager.KindLayer
)

// Config is a parsed service configuration, together with the building
// blocks for constructing one programmatically.
type (
	Config   = internalconfig.Root
	Provider = internalconfig.Provider
	Plugins  = internalconfig.Plugins
	Package  = internalconfig.Package
	Patterns = internalconfig.Patterns
	Function = internalconfig.Function
	Layer    = internalconfig.Layer
)

// FromFile parses the service configuration at path and returns a Packager
// rooted at the file's directory. This is the recommended constructor for
// external projects; options can be layered on with the Packager's With
// methods before calling Run.
func FromFile(path string) (*Packager, error) {
	cfg, err := internalconfig.ParseFile(path)
	if err != nil {
		return nil, err
	}

	return internalpackager.New(cfg).
		WithRootDir(filepath.Dir(path)).
		WithConfigFile(filepath.Base(path)), nil
}

// New returns a Packager for an already parsed or programmatically built
// configuration. The root directory defaults to the current directory.
func New(cfg *Config) *Packager {
	return internalpackager.New(cfg)
}

// BuildPlan resolves the packaging units for cfg without touching the
// filesystem. configFile, when not empty, names the configuration file so it
// is kept out of every selection; the same goes for a non-default outDir.
func BuildPlan(cfg *Config, configFile, outDir string) (*Plan, error) {
	return internalpackager.BuildPlan(cfg, configFile, outDir)
}

// ParseConfig parses and validates raw YAML service configuration.
func ParseConfig(data []byte) (*Config, error) {
	return internalconfig.Parse(data)
}

// DiscoverConfig locates the service configuration file in dir, probing the
// default file names in order.
func DiscoverConfig(dir string) (string, error) {
	return internalconfig.Discover(dir)
}

package packager

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/scadu/serverless/internal/config"
	"github.com/scadu/serverless/internal/patterns"
)

// ConfigErr reports configuration that cannot be packaged as written.
type ConfigErr struct {
	Unit string
	Msg  string
}

func (e *ConfigErr) Error() string {
	return fmt.Sprintf("unit %q: %s", e.Unit, e.Msg)
}

// EmptySelectionErr reports a unit whose pattern stack ruled out every file.
type EmptySelectionErr struct {
	Unit string
}

func (e *EmptySelectionErr) Error() string {
	return fmt.Sprintf("unit %q: no file matches include / exclude patterns", e.Unit)
}

// Mode selects how a unit's artifact comes to be.
type Mode int

const (
	// ModeShared bundles the unit into the service-wide archive.
	ModeShared Mode = iota
	// ModeIndividual gives the unit an archive of its own.
	ModeIndividual
	// ModePreBuilt points at an existing archive; nothing is selected or built.
	ModePreBuilt
)

func (m Mode) String() string {
	switch m {
	case ModeIndividual:
		return "individual"
	case ModePreBuilt:
		return "prebuilt"
	}
	return "shared"
}

// Kind tells service, function and layer units apart.
type Kind int

const (
	KindService Kind = iota
	KindFunction
	KindLayer
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindLayer:
		return "layer"
	}
	return "service"
}

// Unit is one archive to produce: the service-wide archive, an individually
// packaged function, or a layer. Include and Exclude arrive fully stacked,
// defaults first, then the service-wide lists, then the unit's own, so a
// unit pattern always has the last word.
type Unit struct {
	Name        string
	Kind        Kind
	Mode        Mode
	Root        string // selection root, relative to the service directory
	Artifact    string // ModePreBuilt: path to the existing archive
	Include     []string
	Exclude     []string
	Executables []string // entries whose mode is forced to 0755
}

// ArtifactName returns the file name of the unit's archive.
func (u Unit) ArtifactName() string {
	return u.Name + ".zip"
}

// Plan is the resolved set of units a packaging run will produce.
type Plan struct {
	Service string
	Units   []Unit
}

// BuildPlan resolves a service configuration into packaging units. For each
// function an explicit artifact wins, then the function's own individually
// flag, then the service-wide one. The service archive exists when at least
// one function shares it, or when the service defines no functions at all;
// a service-level artifact replaces the service archive but is ignored by
// individually packaged functions. Layers always get an archive of their
// own, rooted at their path.
//
// Plan resolution is a pure function of the configuration: the file tree is
// not consulted here. outDir, when not empty, is kept out of every selection
// the same way the conventional artifact directory is.
func BuildPlan(cfg *config.Root, configFile, outDir string) (*Plan, error) {
	defaults := patterns.Defaults{
		ConfigFile: configFile,
		OutDir:     outDir,
		UseDotenv:  cfg.UseDotenv,
	}
	if cfg.Plugins != nil {
		defaults.PluginsPath = cfg.Plugins.LocalPath
	}
	for _, l := range cfg.Layers {
		defaults.LayerPaths = append(defaults.LayerPaths, l.Path)
	}
	slices.Sort(defaults.LayerPaths)
	excludes := defaults.Excludes()

	var fnUnits []Unit
	var sharedCount int
	var sharedExecutables []string

	for _, fn := range cfg.SortedFunctions() {
		switch {
		case fn.Package.Artifact != "":
			fnUnits = append(fnUnits, Unit{
				Name:     fn.Name,
				Kind:     KindFunction,
				Mode:     ModePreBuilt,
				Artifact: fn.Package.Artifact,
			})
		case individually(cfg.Package, fn.Package):
			fnUnits = append(fnUnits, Unit{
				Name:        fn.Name,
				Kind:        KindFunction,
				Mode:        ModeIndividual,
				Root:        ".",
				Include:     slices.Concat([]string(cfg.Package.Include), []string(fn.Package.Include)),
				Exclude:     slices.Concat(excludes, []string(cfg.Package.Exclude), []string(fn.Package.Exclude)),
				Executables: executables(cfg.Provider, fn),
			})
		default:
			sharedCount++
			sharedExecutables = append(sharedExecutables, executables(cfg.Provider, fn)...)
		}
	}

	var units []Unit

	if sharedCount > 0 || len(cfg.Functions) == 0 {
		unit := Unit{Name: cfg.Service, Kind: KindService}
		if cfg.Package.Artifact != "" {
			unit.Mode = ModePreBuilt
			unit.Artifact = cfg.Package.Artifact
		} else {
			slices.Sort(sharedExecutables)
			unit.Mode = ModeShared
			unit.Root = "."
			unit.Include = slices.Clone(cfg.Package.Include)
			unit.Exclude = slices.Concat(excludes, []string(cfg.Package.Exclude))
			unit.Executables = slices.Compact(sharedExecutables)
		}
		units = append(units, unit)
	}

	units = append(units, fnUnits...)

	for _, l := range cfg.SortedLayers() {
		units = append(units, Unit{
			Name:    l.Name,
			Kind:    KindLayer,
			Mode:    ModeIndividual,
			Root:    l.Path,
			Include: slices.Concat([]string(cfg.Package.Include), []string(l.Include)),
			Exclude: slices.Concat(excludes, []string(cfg.Package.Exclude), []string(l.Exclude)),
		})
	}

	// Every built archive lands in the same output directory, so unit names
	// must not collide across kinds.
	names := map[string]string{}
	for _, u := range units {
		if u.Mode == ModePreBuilt {
			continue
		}
		if prev, ok := names[u.ArtifactName()]; ok {
			return nil, &ConfigErr{Unit: u.Name, Msg: fmt.Sprintf("artifact name %q collides with %s", u.ArtifactName(), prev)}
		}
		names[u.ArtifactName()] = fmt.Sprintf("%s %q", u.Kind, u.Name)
	}

	return &Plan{Service: cfg.Service, Units: units}, nil
}

// individually resolves the per-unit packaging flag: the unit's own value
// wins over the service-wide one, absence means shared.
func individually(service, unit config.Package) bool {
	if unit.Individually != nil {
		return *unit.Individually
	}
	return service.Individually != nil && *service.Individually
}

// Runtime conventions: "provided*" runtimes boot a file named bootstrap,
// go runtimes the compiled handler path. Those entries must stay executable
// no matter what permission bits the working tree carries.
func executables(provider config.Provider, fn *config.Function) []string {
	runtime := cmp.Or(fn.Runtime, provider.Runtime)
	switch {
	case strings.HasPrefix(runtime, "provided"):
		return []string{"bootstrap"}
	case strings.HasPrefix(runtime, "go") && fn.Handler != "":
		return []string{fn.Handler}
	}
	return nil
}

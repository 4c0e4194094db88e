package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/scadu/serverless/internal/patterns"
	"github.com/scadu/serverless/internal/util"
)

// Internal configuration data structures for the deployment packager.

// Root is the top-level service configuration. Only the sections that
// influence packaging are modeled; a service file carries plenty of
// deploy-time configuration besides these, and unknown keys are allowed
// everywhere except inside package blocks.
type Root struct {
	Service   string               `json:"service"`
	Provider  Provider             `json:"provider,omitzero"`
	UseDotenv bool                 `json:"useDotenv,omitempty"`
	Plugins   *Plugins             `json:"plugins,omitempty"`
	Package   Package              `json:"package,omitzero"`
	Functions map[string]*Function `json:"functions,omitempty"` // Schema validation overrides Function to object or null type.
	Layers    map[string]*Layer    `json:"layers,omitempty"`
}

// DefaultConfigFiles are the file names probed, in order, when no explicit
// configuration path is given.
var DefaultConfigFiles = []string{"serverless.yml", "serverless.yaml"}

// Discover returns the configuration file to use for dir.
func Discover(dir string) (string, error) {
	for _, name := range DefaultConfigFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("no configuration file found in %s (tried %s)", dir, strings.Join(DefaultConfigFiles, ", "))
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for the Root
// struct. Functions and layers are defined as mappings where keys are the
// unit names, so the names are injected into the values here.
func (r *Root) UnmarshalYAML(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalYAML by type aliasing
	var raw rawRoot

	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw) // Assign the unmarshaled data back to the original struct
	return r.unmarshal(r)
}

func (r *Root) UnmarshalJSON(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalJSON by type aliasing
	var raw rawRoot

	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw) // Assign the unmarshaled data back to the original struct
	return r.unmarshal(r)
}

// Unmarshal normalizes a programmatically constructed Root the same way
// parsing does: unit names are injected from the map keys and required
// values are checked.
func (r *Root) Unmarshal() error {
	return r.unmarshal(r)
}

func (*Root) unmarshal(raw *Root) error {
	if raw.Service == "" {
		return errors.New("service name is required")
	}

	for name := range raw.Functions {
		raw.Functions[name] = cmp.Or(raw.Functions[name], &Function{})
		raw.Functions[name].Name = name
	}

	for name := range raw.Layers {
		raw.Layers[name] = cmp.Or(raw.Layers[name], &Layer{})
		raw.Layers[name].Name = name
		if raw.Layers[name].Path == "" {
			return fmt.Errorf("layer %q: path is required", name)
		}
	}

	return nil
}

func (r *Root) SortedFunctions() iter.Seq2[int, *Function] {
	return iterator(r.Functions, func(f *Function) string { return f.Name })
}

func (r *Root) SortedLayers() iter.Seq2[int, *Layer] {
	return iterator(r.Layers, func(l *Layer) string { return l.Name })
}

func iterator[V any](m map[string]V, name func(V) string) func(func(int, V) bool) {
	names := make([]string, 0, len(m))
	for _, v := range m {
		names = append(names, name(v))
	}

	sort.Strings(names)

	return func(yield func(int, V) bool) {
		for i, name := range names {
			if !yield(i, m[name]) {
				return
			}
		}
	}
}

func (r *Root) Equal(other *Root) bool {
	return util.FastEqual(r, other, func(r, other *Root) bool {
		return r.Service == other.Service &&
			r.Provider.Equal(other.Provider) &&
			r.UseDotenv == other.UseDotenv &&
			r.Plugins.Equal(other.Plugins) &&
			r.Package.Equal(&other.Package) &&
			maps.EqualFunc(r.Functions, other.Functions, (*Function).Equal) &&
			maps.EqualFunc(r.Layers, other.Layers, (*Layer).Equal)
	})
}

func Validate(data []byte) error {
	var config any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	return rootSchema.Validate(config)
}

func ParseFile(filename string) (*Root, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	return Parse(bs)
}

func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &root, nil
}

// Provider identifies the target platform. The runtime doubles as the
// default runtime for every function that does not declare its own.
type Provider struct {
	Name    string `json:"name,omitempty"`
	Runtime string `json:"runtime,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

func (p Provider) Equal(other Provider) bool {
	return p == other
}

// Plugins declares the plugins the service loads. Two spellings are
// accepted: a plain list of module names, or an object carrying the modules
// together with a localPath pointing at a directory of local plugins.
type Plugins struct {
	Modules   []string `json:"modules,omitempty"`
	LocalPath string   `json:"localPath,omitempty"`
}

func (p *Plugins) UnmarshalYAML(bs []byte) error {
	var modules []string
	if err := yaml.Unmarshal(bs, &modules); err == nil {
		*p = Plugins{Modules: modules}
		return nil
	}

	type rawPlugins Plugins // avoid recursive calls to UnmarshalYAML by type aliasing
	var raw rawPlugins

	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode plugins: %w", err)
	}

	*p = Plugins(raw)
	return nil
}

func (p *Plugins) UnmarshalJSON(bs []byte) error {
	var modules []string
	if err := json.Unmarshal(bs, &modules); err == nil {
		*p = Plugins{Modules: modules}
		return nil
	}

	type rawPlugins Plugins // avoid recursive calls to UnmarshalJSON by type aliasing
	var raw rawPlugins

	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode plugins: %w", err)
	}

	*p = Plugins(raw)
	return nil
}

func (p *Plugins) Equal(other *Plugins) bool {
	return util.FastEqual(p, other, func(p, other *Plugins) bool {
		return slices.Equal(p.Modules, other.Modules) &&
			p.LocalPath == other.LocalPath
	})
}

// Package controls artifact selection for one scope: the whole service, a
// single function, or a layer. Include and exclude stack on top of the
// defaults, with the service-wide lists applied before the unit's own.
type Package struct {
	Include      Patterns `json:"include,omitempty"`
	Exclude      Patterns `json:"exclude,omitempty"`
	Individually *bool    `json:"individually,omitempty"`
	Artifact     string   `json:"artifact,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func (p *Package) Equal(other *Package) bool {
	return util.FastEqual(p, other, func(p, other *Package) bool {
		return p.Include.Equal(other.Include) &&
			p.Exclude.Equal(other.Exclude) &&
			util.PtrEqual(p.Individually, other.Individually) &&
			p.Artifact == other.Artifact
	})
}

// Patterns is an ordered list of glob patterns. Order is significant: when
// several patterns match a path the last one wins, and a "!" prefix flips
// the effect of the list it appears in.
type Patterns []string

func (p *Patterns) UnmarshalYAML(bs []byte) error {
	var raw []string
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return err
	}
	return p.unmarshal(raw)
}

func (p *Patterns) UnmarshalJSON(bs []byte) error {
	var raw []string
	if err := json.Unmarshal(bs, &raw); err != nil {
		return err
	}
	return p.unmarshal(raw)
}

func (p *Patterns) unmarshal(raw []string) error {
	if err := patterns.Validate(raw); err != nil {
		return err
	}
	*p = raw
	return nil
}

func (p Patterns) Equal(other Patterns) bool {
	return slices.Equal(p, other)
}

// Function is a single deployable unit of the service.
type Function struct {
	Name    string  `json:"-"`
	Handler string  `json:"handler,omitempty"`
	Runtime string  `json:"runtime,omitempty"`
	Package Package `json:"package,omitzero"`
}

func (f *Function) Equal(other *Function) bool {
	return util.FastEqual(f, other, func(f, other *Function) bool {
		return f.Name == other.Name &&
			f.Handler == other.Handler &&
			f.Runtime == other.Runtime &&
			f.Package.Equal(&other.Package)
	})
}

// Layer is a shared artifact packaged from its own directory subtree. A
// layer always gets its own archive, rooted at Path.
type Layer struct {
	Name    string   `json:"-"`
	Path    string   `json:"path,omitempty"`
	Include Patterns `json:"include,omitempty"`
	Exclude Patterns `json:"exclude,omitempty"`
}

func (l *Layer) Equal(other *Layer) bool {
	return util.FastEqual(l, other, func(l, other *Layer) bool {
		return l.Name == other.Name &&
			l.Path == other.Path &&
			l.Include.Equal(other.Include) &&
			l.Exclude.Equal(other.Exclude)
	})
}

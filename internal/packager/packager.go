package packager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scadu/serverless/internal/archive"
	"github.com/scadu/serverless/internal/config"
	"github.com/scadu/serverless/internal/logging"
	"github.com/scadu/serverless/internal/metrics"
	"github.com/scadu/serverless/internal/patterns"
	"github.com/scadu/serverless/internal/progress"
	"github.com/scadu/serverless/internal/walker"
)

const defaultConcurrency = 4

// Packager is responsible for turning a service configuration into deployment
// artifacts: it plans the units to build, enumerates their file trees, runs
// the pattern stacks to select files, and writes one reproducible archive per
// unit under the output directory.
type Packager struct {
	cfg         *config.Root
	rootDir     string
	outDir      string
	configFile  string
	concurrency int
	only        []string
	log         *logging.Logger
	bar         *progress.Bar
}

func New(cfg *config.Root) *Packager {
	return &Packager{
		cfg:     cfg,
		rootDir: ".",
		outDir:  ".serverless",
		log:     logging.NewNopLogger(),
	}
}

// WithRootDir sets the service directory selections are made from.
func (p *Packager) WithRootDir(dir string) *Packager {
	p.rootDir = dir
	return p
}

// WithOutputDir sets the artifact directory, relative to the root directory.
func (p *Packager) WithOutputDir(dir string) *Packager {
	p.outDir = dir
	return p
}

// WithConfigFile records the configuration file name so it is kept out of
// every archive.
func (p *Packager) WithConfigFile(name string) *Packager {
	p.configFile = name
	return p
}

// WithConcurrency bounds the number of archives built at the same time.
func (p *Packager) WithConcurrency(n int) *Packager {
	p.concurrency = n
	return p
}

// WithOnly restricts the run to the named units.
func (p *Packager) WithOnly(names ...string) *Packager {
	p.only = append(p.only, names...)
	return p
}

func (p *Packager) WithLogger(log *logging.Logger) *Packager {
	p.log = log
	return p
}

func (p *Packager) WithProgress(bar *progress.Bar) *Packager {
	p.bar = bar
	return p
}

// Artifact describes one produced archive.
type Artifact struct {
	Unit  string
	Kind  Kind
	Mode  Mode
	Path  string
	Files int
	Bytes int64
}

// Run packages every planned unit and returns one artifact per unit, ordered
// by unit name. Configuration, pattern and file tree problems abort the run
// before anything is written. A failure while building one archive does not
// stop the others; all unit errors are collected and reported together.
func (p *Packager) Run(ctx context.Context) ([]Artifact, error) {
	plan, err := BuildPlan(p.cfg, p.configFile, p.outDir)
	if err != nil {
		return nil, err
	}

	units := plan.Units
	if len(p.only) > 0 {
		if units, err = p.filter(units); err != nil {
			return nil, err
		}
	}

	sets := make([]*patterns.Set, len(units))
	for i, u := range units {
		if u.Mode == ModePreBuilt {
			if _, err := os.Stat(filepath.Join(p.rootDir, filepath.FromSlash(u.Artifact))); err != nil {
				return nil, &ConfigErr{Unit: u.Name, Msg: fmt.Sprintf("artifact %q does not exist", u.Artifact)}
			}
			continue
		}
		if sets[i], err = patterns.Compile(u.Exclude, u.Include); err != nil {
			return nil, err
		}
	}

	// Several units usually share a selection root. Walk each distinct root
	// once and let the units share the listing read-only.
	trees := map[string][]string{}
	for _, u := range units {
		if u.Mode == ModePreBuilt {
			continue
		}
		if _, ok := trees[u.Root]; ok {
			continue
		}
		start := time.Now()
		files, err := walker.Walk(filepath.Join(p.rootDir, filepath.FromSlash(u.Root)))
		if err != nil {
			return nil, err
		}
		trees[u.Root] = files
		metrics.TreeWalked(u.Root, len(files), start)
		p.log.Debugf("Walked %q: %d files.", u.Root, len(files))
	}

	p.bar.AddMax(len(units))

	artifacts := make([]Artifact, len(units))
	unitErrs := make([]error, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cmp.Or(p.concurrency, defaultConcurrency))

	for i, u := range units {
		g.Go(func() error {
			defer p.bar.Add(1)
			artifacts[i], unitErrs[i] = p.packageUnit(ctx, u, sets[i], trees[u.Root])
			return nil // unit errors are collected, not propagated, so siblings keep building
		})
	}

	_ = g.Wait()

	if err := errors.Join(unitErrs...); err != nil {
		return nil, err
	}

	slices.SortFunc(artifacts, func(a, b Artifact) int {
		return strings.Compare(a.Unit, b.Unit)
	})
	return artifacts, nil
}

func (p *Packager) packageUnit(ctx context.Context, u Unit, set *patterns.Set, tree []string) (Artifact, error) {
	start := time.Now()

	if u.Mode == ModePreBuilt {
		p.log.Debugf("Unit %q uses pre-built artifact %q.", u.Name, u.Artifact)
		return Artifact{
			Unit: u.Name,
			Kind: u.Kind,
			Mode: u.Mode,
			Path: filepath.Join(p.rootDir, filepath.FromSlash(u.Artifact)),
		}, nil
	}

	files := set.Resolve(tree)
	if len(files) == 0 {
		metrics.ArtifactBuildFailed(u.Name, "empty_selection")
		return Artifact{}, &EmptySelectionErr{Unit: u.Name}
	}

	dest := filepath.Join(p.rootDir, p.outDir, u.ArtifactName())
	size, err := archive.New().
		WithRoot(filepath.Join(p.rootDir, filepath.FromSlash(u.Root))).
		WithPaths(files).
		WithExecutables(u.Executables...).
		WithDestination(dest).
		Build(ctx)
	if err != nil {
		p.log.Warnf("failed to build artifact for %s %q: %v", u.Kind, u.Name, err)
		metrics.ArtifactBuildFailed(u.Name, errorType(err))
		return Artifact{}, fmt.Errorf("unit %q: %w", u.Name, err)
	}

	p.log.Debugf("Artifact for %s %q built: %d files, %d bytes.", u.Kind, u.Name, len(files), size)
	metrics.ArtifactBuildSucceeded(u.Name, size, start)

	return Artifact{
		Unit:  u.Name,
		Kind:  u.Kind,
		Mode:  u.Mode,
		Path:  dest,
		Files: len(files),
		Bytes: size,
	}, nil
}

func (p *Packager) filter(units []Unit) ([]Unit, error) {
	keep := make([]Unit, 0, len(p.only))
	seen := map[string]struct{}{}
	for _, name := range p.only {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		i := slices.IndexFunc(units, func(u Unit) bool { return u.Name == name })
		if i == -1 {
			if _, ok := p.cfg.Functions[name]; ok {
				return nil, &ConfigErr{Unit: name, Msg: "function is packaged into the service archive; set package.individually to package it alone"}
			}
			return nil, &ConfigErr{Unit: name, Msg: "no function or layer with this name"}
		}
		keep = append(keep, units[i])
	}
	return keep, nil
}

// errorType buckets an error for metric labels: configuration problems,
// empty selections, malformed patterns, everything else is I/O.
func errorType(err error) string {
	var (
		configErr *ConfigErr
		emptyErr  *EmptySelectionErr
		syntaxErr *patterns.SyntaxError
	)
	switch {
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &emptyErr):
		return "empty_selection"
	case errors.As(err, &syntaxErr):
		return "pattern"
	}
	return "io"
}

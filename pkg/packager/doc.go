// Package packager builds deployment artifacts for a serverless service.
//
// The packager selects files with layered include / exclude glob patterns,
// groups them into packaging units according to the service configuration,
// and writes one reproducible zip archive per unit. It is the library behind
// the slspack CLI and is meant to be embedded by deploy tooling that wants
// packaging without shelling out.
//
// # Basic Usage
//
// Package a service straight from its configuration file:
//
//	import "github.com/scadu/serverless/pkg/packager"
//
//	pkgr, err := packager.FromFile("serverless.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	artifacts, err := pkgr.WithOutputDir(".serverless").Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, a := range artifacts {
//	    fmt.Println(a.Unit, a.Path)
//	}
//
// # Programmatic Configuration
//
// A configuration can be built in code instead of parsed. Call Unmarshal to
// apply the same normalization parsing does before handing it to New:
//
//	cfg := &packager.Config{
//	    Service: "photos",
//	    Functions: map[string]*packager.Function{
//	        "resize": {Handler: "src/resize.handler"},
//	    },
//	}
//	if err := cfg.Unmarshal(); err != nil {
//	    log.Fatal(err)
//	}
//
//	artifacts, err := packager.New(cfg).WithRootDir("/srv/photos").Run(ctx)
//
// # Packaging Modes
//
// Every function is packaged in one of three modes:
//   - shared: the function is part of the single service archive (default)
//   - individual: the function gets its own archive with its own patterns
//   - prebuilt: a configured artifact path is used as-is, nothing is built
//
// Setting package.individually at the service level switches every function
// to individual; a function's own package.individually overrides the service
// setting either way. A configured package.artifact always wins. Layers are
// always packaged individually, rooted at their path.
//
// # File Selection
//
// Selections start from everything under the service directory minus the
// built-in defaults (VCS internals, logs, the artifact directory). Patterns
// layer on top: service-wide excludes and includes first, then the unit's
// own. Later patterns win, and a leading ! re-includes what an earlier
// pattern excluded:
//
//	package:
//	  exclude:
//	    - "src/**"
//	    - "!src/handler.js"
//
// # Planning Without Building
//
// BuildPlan resolves modes, pattern stacks and artifact names without
// touching the filesystem:
//
//	plan, err := packager.BuildPlan(cfg, "serverless.yml", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, u := range plan.Units {
//	    fmt.Println(u.Name, u.Mode)
//	}
//
// # Errors
//
// Runs fail with typed errors; use errors.As to tell them apart:
//   - ConfigErr: contradictory or unusable configuration
//   - EmptySelectionErr: a unit's patterns matched no files at all
//   - SyntaxError: a glob pattern does not compile
//
// Anything else is an I/O problem from walking the file tree or writing
// archives.
//
// # Thread Safety
//
// A Packager instance is NOT thread-safe while being configured. Configure
// it fully, then call Run once; Run fans work out over a bounded number of
// goroutines internally.
package packager

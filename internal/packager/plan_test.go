package packager_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scadu/serverless/internal/config"
	"github.com/scadu/serverless/internal/packager"
	"github.com/scadu/serverless/internal/patterns"
)

func ptr[T any](v T) *T {
	return &v
}

func TestBuildPlanNoFunctions(t *testing.T) {
	plan, err := packager.BuildPlan(&config.Root{Service: "svc"}, "serverless.yml", "")
	if err != nil {
		t.Fatal(err)
	}

	exp := []packager.Unit{{
		Name:    "svc",
		Kind:    packager.KindService,
		Mode:    packager.ModeShared,
		Root:    ".",
		Exclude: patterns.Defaults{ConfigFile: "serverless.yml"}.Excludes(),
	}}
	if diff := cmp.Diff(exp, plan.Units); diff != "" {
		t.Errorf("units: (-want,+got)\n%s", diff)
	}
}

func TestBuildPlanSharedFunctions(t *testing.T) {
	cfg := &config.Root{
		Service:  "svc",
		Provider: config.Provider{Runtime: "provided.al2023"},
		Package:  config.Package{Exclude: config.Patterns{"tests/**"}},
		Functions: map[string]*config.Function{
			"a": {Name: "a", Handler: "src/a.main"},
			"b": {Name: "b", Handler: "src/b.main"},
		},
	}

	plan, err := packager.BuildPlan(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}

	exp := []packager.Unit{{
		Name:        "svc",
		Kind:        packager.KindService,
		Mode:        packager.ModeShared,
		Root:        ".",
		Exclude:     append(patterns.Defaults{}.Excludes(), "tests/**"),
		Executables: []string{"bootstrap"},
	}}
	if diff := cmp.Diff(exp, plan.Units); diff != "" {
		t.Errorf("units: (-want,+got)\n%s", diff)
	}
}

func TestBuildPlanIndividuallyPrecedence(t *testing.T) {
	// Service-wide individually, with one function opting back into the
	// shared archive and one left to inherit.
	cfg := &config.Root{
		Service: "svc",
		Package: config.Package{Individually: ptr(true)},
		Functions: map[string]*config.Function{
			"solo":   {Name: "solo", Handler: "src/solo.main"},
			"shared": {Name: "shared", Handler: "src/shared.main", Package: config.Package{Individually: ptr(false)}},
		},
	}

	plan, err := packager.BuildPlan(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}

	modes := map[string]packager.Mode{}
	for _, u := range plan.Units {
		modes[u.Name] = u.Mode
	}

	exp := map[string]packager.Mode{
		"svc":  packager.ModeShared,     // "shared" opted back in, so the service archive exists
		"solo": packager.ModeIndividual, // inherited from the service-wide flag
	}
	if diff := cmp.Diff(exp, modes); diff != "" {
		t.Errorf("modes: (-want,+got)\n%s", diff)
	}
}

func TestBuildPlanPatternStacking(t *testing.T) {
	cfg := &config.Root{
		Service: "svc",
		Package: config.Package{
			Include: config.Patterns{"assets/**"},
			Exclude: config.Patterns{"tests/**"},
		},
		Functions: map[string]*config.Function{
			"fn": {
				Name: "fn",
				Package: config.Package{
					Individually: ptr(true),
					Include:      config.Patterns{"bin/fn"},
					Exclude:      config.Patterns{"!tests/golden/**"},
				},
			},
		},
	}

	plan, err := packager.BuildPlan(cfg, "serverless.yml", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Units) != 1 {
		t.Fatalf("expected a single unit, got %v", plan.Units)
	}

	u := plan.Units[0]
	expExclude := slices.Concat(
		patterns.Defaults{ConfigFile: "serverless.yml"}.Excludes(),
		[]string{"tests/**", "!tests/golden/**"},
	)
	if diff := cmp.Diff(expExclude, u.Exclude); diff != "" {
		t.Errorf("exclude stack: (-want,+got)\n%s", diff)
	}
	if diff := cmp.Diff([]string{"assets/**", "bin/fn"}, u.Include); diff != "" {
		t.Errorf("include stack: (-want,+got)\n%s", diff)
	}
}

func TestBuildPlanPreBuiltArtifacts(t *testing.T) {
	cfg := &config.Root{
		Service: "svc",
		Package: config.Package{Artifact: "dist/service.zip"},
		Functions: map[string]*config.Function{
			"canned": {
				Name: "canned",
				Package: config.Package{
					Artifact: "dist/canned.zip",
					Include:  config.Patterns{"ignored/**"},
				},
			},
			"shared": {Name: "shared"},
			"solo":   {Name: "solo", Package: config.Package{Individually: ptr(true)}},
		},
	}

	plan, err := packager.BuildPlan(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}

	byName := map[string]packager.Unit{}
	for _, u := range plan.Units {
		byName[u.Name] = u
	}

	// The service archive is replaced by the service-level artifact because
	// "shared" is packaged into it.
	if u := byName["svc"]; u.Mode != packager.ModePreBuilt || u.Artifact != "dist/service.zip" {
		t.Fatalf("unexpected service unit: %+v", u)
	}
	// A unit-level artifact wins over everything, and its patterns are ignored.
	if u := byName["canned"]; u.Mode != packager.ModePreBuilt || u.Artifact != "dist/canned.zip" || u.Include != nil {
		t.Fatalf("unexpected canned unit: %+v", u)
	}
	// Individually packaged functions ignore the service-level artifact.
	if u := byName["solo"]; u.Mode != packager.ModeIndividual {
		t.Fatalf("unexpected solo unit: %+v", u)
	}
}

func TestBuildPlanServiceArtifactIgnoredWhenAllIndividual(t *testing.T) {
	cfg := &config.Root{
		Service: "svc",
		Package: config.Package{Individually: ptr(true), Artifact: "dist/service.zip"},
		Functions: map[string]*config.Function{
			"a": {Name: "a"},
		},
	}

	plan, err := packager.BuildPlan(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Units) != 1 || plan.Units[0].Name != "a" {
		t.Fatalf("expected only the individual function unit, got %+v", plan.Units)
	}
}

func TestBuildPlanLayers(t *testing.T) {
	cfg := &config.Root{
		Service: "svc",
		Package: config.Package{Exclude: config.Patterns{"tests/**"}},
		Layers: map[string]*config.Layer{
			"imagemagick": {Name: "imagemagick", Path: "layers/imagemagick", Exclude: config.Patterns{"**/*.md"}},
			"ffmpeg":      {Name: "ffmpeg", Path: "layers/ffmpeg"},
		},
	}

	plan, err := packager.BuildPlan(cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, u := range plan.Units {
		names = append(names, u.Name)
	}
	if diff := cmp.Diff([]string{"svc", "ffmpeg", "imagemagick"}, names); diff != "" {
		t.Errorf("unit order: (-want,+got)\n%s", diff)
	}

	byName := map[string]packager.Unit{}
	for _, u := range plan.Units {
		byName[u.Name] = u
	}

	// Layer archives are rooted at the layer path and always built on their own.
	im := byName["imagemagick"]
	if im.Mode != packager.ModeIndividual || im.Root != "layers/imagemagick" {
		t.Fatalf("unexpected layer unit: %+v", im)
	}
	expExclude := slices.Concat(
		patterns.Defaults{LayerPaths: []string{"layers/ffmpeg", "layers/imagemagick"}}.Excludes(),
		[]string{"tests/**", "**/*.md"},
	)
	if diff := cmp.Diff(expExclude, im.Exclude); diff != "" {
		t.Errorf("layer exclude stack: (-want,+got)\n%s", diff)
	}

	// Layer directories stay out of the service archive.
	svc := byName["svc"]
	if !slices.Contains(svc.Exclude, "layers/imagemagick/**") || !slices.Contains(svc.Exclude, "layers/ffmpeg/**") {
		t.Fatalf("expected layer paths in service excludes: %v", svc.Exclude)
	}
}

func TestBuildPlanExecutables(t *testing.T) {
	cases := []struct {
		note     string
		provider string
		runtime  string
		handler  string
		exp      []string
	}{
		{note: "custom runtime boots bootstrap", runtime: "provided.al2023", exp: []string{"bootstrap"}},
		{note: "go runtime keeps handler executable", runtime: "go1.x", handler: "bin/main", exp: []string{"bin/main"}},
		{note: "provider runtime is the fallback", provider: "provided", exp: []string{"bootstrap"}},
		{note: "function runtime wins", provider: "provided", runtime: "nodejs18.x", handler: "src/a.main", exp: nil},
		{note: "interpreted runtime forces nothing", runtime: "python3.12", exp: nil},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			cfg := &config.Root{
				Service:  "svc",
				Provider: config.Provider{Runtime: tc.provider},
				Functions: map[string]*config.Function{
					"fn": {
						Name:    "fn",
						Handler: tc.handler,
						Runtime: tc.runtime,
						Package: config.Package{Individually: ptr(true)},
					},
				},
			}

			plan, err := packager.BuildPlan(cfg, "", "")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, plan.Units[0].Executables); diff != "" {
				t.Errorf("executables: (-want,+got)\n%s", diff)
			}
		})
	}
}

func TestBuildPlanNameCollision(t *testing.T) {
	cfg := &config.Root{
		Service: "svc",
		Functions: map[string]*config.Function{
			"common": {Name: "common", Package: config.Package{Individually: ptr(true)}},
		},
		Layers: map[string]*config.Layer{
			"common": {Name: "common", Path: "layers/common"},
		},
	}

	_, err := packager.BuildPlan(cfg, "", "")
	var configErr *packager.ConfigErr
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *packager.ConfigErr, got %v", err)
	}
	if configErr.Unit != "common" {
		t.Fatalf("unexpected unit in error: %q", configErr.Unit)
	}
}

func TestBuildPlanDefaultExcludeInputs(t *testing.T) {
	cfg := &config.Root{
		Service:   "svc",
		UseDotenv: true,
		Plugins:   &config.Plugins{LocalPath: ".plugins"},
	}

	plan, err := packager.BuildPlan(cfg, "serverless.yaml", "")
	if err != nil {
		t.Fatal(err)
	}

	exclude := plan.Units[0].Exclude
	for _, exp := range []string{"serverless.yaml", ".plugins/**", ".env", ".env.*"} {
		if !slices.Contains(exclude, exp) {
			t.Errorf("expected %q in defaults: %v", exp, exclude)
		}
	}
}

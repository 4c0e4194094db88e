package patterns

import "slices"

// baseExcludes is the fixed baseline kept out of every archive: VCS metadata,
// OS and tooling artifacts, and the build output directory itself. Kept as
// data rather than baked into the engine so it can be inspected and tested
// on its own.
var baseExcludes = []string{
	".git/**",
	".gitignore",
	".DS_Store",
	"npm-debug.log",
	"yarn-*.log",
	".serverless/**",
	".serverless_plugins/**",
}

// Defaults captures the configuration inputs that shape the baseline exclude
// list for one invocation.
type Defaults struct {
	ConfigFile  string   // resolved project configuration filename, if any
	OutDir      string   // artifact directory, when different from the conventional one
	PluginsPath string   // local plugin directory, if configured
	LayerPaths  []string // layer base directories, kept out of function archives
	UseDotenv   bool     // when set, environment files are never packaged
}

// Excludes returns the baseline exclude list. It is a pure function of
// configuration and never consults the file tree; callers merge it ahead of
// any user-supplied exclude pattern.
func (d Defaults) Excludes() []string {
	excludes := slices.Clone(baseExcludes)
	if d.ConfigFile != "" {
		excludes = append(excludes, d.ConfigFile)
	}
	if d.OutDir != "" && d.OutDir != ".serverless" {
		excludes = append(excludes, d.OutDir+"/**")
	}
	if d.PluginsPath != "" {
		excludes = append(excludes, d.PluginsPath+"/**")
	}
	for _, p := range d.LayerPaths {
		excludes = append(excludes, p+"/**")
	}
	if d.UseDotenv {
		excludes = append(excludes, ".env", ".env.*")
	}
	return excludes
}

// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"fmt"

	"modboot/internal/config"
	"modboot/pkg/artifact"
)

// Module names of the project's own graph.
const (
	EnvModule         = "common-env"
	UtilModule        = "common-util"
	LegacyAPIModule   = "common-legacy-api"
	PlatformAPIModule = "common-platform-api"
)

const (
	analysisGroup   = "org.tabooproject.reflex"
	analysisVersion = "1.1.8"
	asmVersion      = "9.8"
)

var (
	baseLibraries = []artifact.Coordinate{
		artifact.NewCoordinate("", "me.lucko", "jar-relocator", "1.7"),
		artifact.NewCoordinate("", "org.ow2.asm", "asm", asmVersion),
		artifact.NewCoordinate("", "org.ow2.asm", "asm-util", asmVersion),
		artifact.NewCoordinate("", "org.ow2.asm", "asm-commons", asmVersion),
	}
	analysisModules = []artifact.Coordinate{
		artifact.NewCoordinate("", analysisGroup, "reflex", analysisVersion),
		artifact.NewCoordinate("", analysisGroup, "analyser", analysisVersion),
	}
)

// Graph is the fixed, ordered set of modules a boot loads.
type Graph struct {
	// Base are loaded twice: plain, then relocated.
	Base []artifact.Coordinate
	// Analysis complete the base phase.
	Analysis []artifact.Coordinate
	// Env brings up the companion runtime.
	Env artifact.Coordinate
	// Util registers the callbacks later modules rely on.
	Util artifact.Coordinate
	// Common are internal modules; their units are scanned for awakeners.
	Common []artifact.Coordinate
	// Optional are the user-selected modules.
	Optional []artifact.Coordinate
	// Rules apply to every relocated load.
	Rules artifact.RuleSet
}

// NewGraph binds the fixed graph to the configured repositories and builds
// the relocation rules: the analysis group and the relocator's own
// dependencies are moved under versioned or project namespaces, the project
// id is moved to the project package unless dev.skip_self_relocate is set,
// and the configured extra rules follow.
func NewGraph(cfg *config.Config) (Graph, error) {
	extra, err := cfg.Rules()
	if err != nil {
		return Graph{}, fmt.Errorf("relocation rules: %w", err)
	}
	optional, err := cfg.OptionalModules()
	if err != nil {
		return Graph{}, fmt.Errorf("optional modules: %w", err)
	}

	rules := artifact.RuleSet{
		artifact.NewRule("org.tabooproject", cfg.Project.Package+".library"),
		artifact.NewRule("me.lucko.jarrelocator.", "me.lucko.jarrelocator15."),
		artifact.NewRule("org.objectweb.asm.", "org.objectweb.asm9."),
	}
	if !cfg.Dev.SkipSelfRelocate && cfg.Project.ID != cfg.Project.Package {
		rules = append(rules, artifact.NewRule(cfg.Project.ID, cfg.Project.Package))
	}
	rules = rules.With(extra...)

	project := func(name string) artifact.Coordinate {
		return artifact.NewCoordinate(cfg.Repositories.Project, cfg.Project.Group, name, cfg.Project.Version)
	}
	return Graph{
		Base:     bind(baseLibraries, cfg.Repositories.Central),
		Analysis: bind(analysisModules, cfg.Repositories.Reflex),
		Env:      project(EnvModule),
		Util:     project(UtilModule),
		Common:   []artifact.Coordinate{project(LegacyAPIModule), project(PlatformAPIModule)},
		Optional: optional,
		Rules:    rules,
	}, nil
}

func bind(coords []artifact.Coordinate, repository string) []artifact.Coordinate {
	out := make([]artifact.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = c.WithRepository(repository)
	}
	return out
}

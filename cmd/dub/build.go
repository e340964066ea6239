package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/buildcache"
	"github.com/dub-go/dub/internal/config"
	"github.com/dub-go/dub/internal/pkgmanager"
	"github.com/dub-go/dub/internal/planner"
	"github.com/dub-go/dub/internal/recipe"
	"github.com/dub-go/dub/internal/resolver"
	"github.com/dub-go/dub/internal/selections"
	"github.com/dub-go/dub/internal/worker"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the project and its dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runBuild(cmd.Context())
		return err
	},
}

// buildProject bundles the outcome of resolveProject + planner.Plan, so
// run/test can reach into the root target's artifact path after a
// successful build.
type buildProject struct {
	cfg     *config.Config
	root    *recipe.Recipe
	rootDir string
	targets []planner.Target
	rootID  string // identity of the root package's own target
}

// resolveProject runs the resolver (unless --nodeps asked to reuse the
// existing selections file verbatim) and writes the result back to
// dub.selections.json. The selections file is written only from the
// main task, after all resolution completes.
func resolveProject(ctx context.Context) (*recipe.Recipe, string, map[string]selections.Locator, *pkgmanager.Manager, error) {
	root, err := loadRootRecipe()
	if err != nil {
		return nil, "", nil, nil, err
	}
	rootDir := root.SourcePath

	cfg, err := dubConfig()
	if err != nil {
		return nil, "", nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", nil, nil, err
	}
	mgr := pkgmanager.New(cfg)

	existingFile, err := selections.Load(rootDir)
	if err != nil {
		return nil, "", nil, nil, err
	}
	var existing map[string]selections.Locator
	if existingFile != nil {
		existing = existingFile.Versions
	}

	if nodepsFlag {
		if existing == nil {
			return nil, "", nil, nil, fmt.Errorf("--nodeps given but no dub.selections.json was found above %s", rootDir)
		}
		return root, rootDir, existing, mgr, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, "", nil, nil, err
	}
	suppliers := buildSuppliers(settings)

	p, _, err := currentPlatform()
	if err != nil {
		return nil, "", nil, nil, err
	}

	selected, err := resolver.Resolve(ctx, resolver.Input{
		Root:      root,
		Policy:    resolver.Policy{},
		Existing:  existing,
		Suppliers: suppliers,
		Overrides: overridesAsVersions(mgr),
		Packages:  mgr,
		GitHub:    resolver.NewGitHubResolver(githubToken()),
		Platform:  p,
	})
	if err != nil {
		return nil, "", nil, nil, err
	}

	out := make(map[string]selections.Locator, len(selected))
	for name, sel := range selected {
		out[name] = sel.Locator
	}

	f, err := selections.Upgrade(rootDir, out)
	if err != nil {
		return nil, "", nil, nil, err
	}
	if err := f.Save(); err != nil {
		return nil, "", nil, nil, err
	}

	return root, rootDir, out, mgr, nil
}

// planProject resolves, then computes the topologically ordered build
// plan for the current platform.
func planProject(ctx context.Context) (*buildProject, error) {
	root, rootDir, selected, mgr, err := resolveProject(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := dubConfig()
	if err != nil {
		return nil, err
	}

	p, compilerID, err := currentPlatform()
	if err != nil {
		return nil, err
	}

	policy := planner.HashBased
	if os.Getenv("DUB_BUILD_POLICY") == "time" {
		policy = planner.TimeBased
	}

	configOverrides := map[string]string{}
	if configFlag != "" {
		configOverrides[root.Name] = configFlag
	}

	targets, err := planner.Plan(planner.Input{
		Root:           root,
		RootDir:        rootDir,
		Selected:       selected,
		Packages:       mgr,
		Platform:       p,
		Configurations: configOverrides,
		CompilerID:     compilerID,
		Policy:         policy,
	})
	if err != nil {
		return nil, err
	}

	rootID := ""
	if len(targets) > 0 {
		rootID = targets[len(targets)-1].Identity
	}

	return &buildProject{cfg: cfg, root: root, rootDir: rootDir, targets: targets, rootID: rootID}, nil
}

// runBuild plans the project, then builds every target through a
// worker.Pool bounded by the host's CPU count: a target's task is keyed
// by its build identity and depends on every upstream identity folded
// into it, so independent subtrees build concurrently while a target
// never starts ahead of the upstream artifacts its link inputs need
// . buildcache's own per-identity
// lock still serializes two pool workers that land on the same
// identity, e.g. a shared subpackage reached through two paths.
func runBuild(ctx context.Context) (*buildProject, error) {
	proj, err := planProject(ctx)
	if err != nil {
		return nil, err
	}

	printInfof("Building %s...\n", proj.root.Name)

	tasks := make([]worker.Task, len(proj.targets))
	for i := range proj.targets {
		t := proj.targets[i]
		tasks[i] = worker.Task{
			Name:      t.Identity,
			DependsOn: t.UpstreamIdentities,
			Run: func(ctx context.Context) error {
				return buildTarget(ctx, proj.cfg, &t, proj.root.Version)
			},
		}
	}
	pool := &worker.Pool{Limit: buildParallelism()}
	if err := pool.Run(ctx, tasks); err != nil {
		return nil, err
	}
	printInfo("Build complete.")
	return proj, nil
}

// buildParallelism honors an explicit $DUB_BUILD_PARALLELISM override;
// zero falls through to worker.Pool's runtime.NumCPU() default.
func buildParallelism() int {
	if v := os.Getenv("DUB_BUILD_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// buildTarget builds a single target, honoring the cache: a matching
// identity already on disk is reused unless --force was given; a miss
// acquires the per-identity lock, invokes the compiler, and installs
// the result atomically.
func buildTarget(ctx context.Context, cfg *config.Config, t *planner.Target, rootVersion string) error {
	version := rootVersion
	if version == "" {
		version = "0.0.0"
	}
	store, err := buildcache.Open(cfg, t.Name, version, configFlag)
	if err != nil {
		return err
	}

	if !forceFlag {
		if _, ok, err := store.Lookup(t.Identity); err != nil {
			return err
		} else if ok {
			printInfof("%s is up to date (%s)\n", targetLabel(t), t.Identity[:12])
			return nil
		}
	}

	lock, artifactAppeared, err := store.Acquire(ctx, t.Identity)
	if err != nil {
		return err
	}
	if artifactAppeared {
		printInfof("%s was built by a concurrent invocation\n", targetLabel(t))
		return nil
	}
	defer lock.Unlock()

	stagingDir, err := os.MkdirTemp(cfg.TmpDir, "build-*")
	if err != nil {
		return err
	}

	args := compileArgs(t)
	responseFile := filepath.Join(stagingDir, "args.rsp")
	err = buildcache.Invoke(ctx, buildcache.InvokeRequest{
		CompilerPath:     compilerBinary(),
		Args:             args,
		ResponseFilePath: responseFile,
		WorkDir:          t.SourceDir,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
	})
	if err != nil {
		buildcache.CleanupFailedBuild(stagingDir)
		return err
	}

	_, err = store.Install(t.Identity, stagingDir, buildcache.Entry{
		Compiler:           compilerBinary(),
		Flags:              args,
		UpstreamIdentities: t.UpstreamIdentities,
	})
	return err
}

// compileArgs assembles the compiler command line from a target's
// merged settings: import/string-import paths, versions/debug-versions,
// d-flags/l-flags, sources and link inputs, libraries, then $DFLAGS
// appended last.
func compileArgs(t *planner.Target) []string {
	var args []string
	for _, p := range t.Settings.ImportPaths {
		args = append(args, "-I"+p)
	}
	for _, p := range t.Settings.StringImportPaths {
		args = append(args, "-J"+p)
	}
	for _, v := range t.Settings.Versions {
		args = append(args, "-version="+v)
	}
	for _, v := range t.Settings.DebugVersions {
		args = append(args, "-debug="+v)
	}
	args = append(args, t.Settings.DFlags...)
	for _, f := range t.Settings.LFlags {
		args = append(args, "-L"+f)
	}
	args = append(args, t.Settings.SourceFiles...)
	args = append(args, t.LinkInputs...)
	args = append(args, libArgs(t.Settings.Libs)...)
	args = append(args, config.DFlags()...)
	return args
}

// libArgs renders the platform-filtered libs map as "-L-l<name>"
// linker inputs, after every object and archive so the linker resolves
// them last. Suffix order is sorted so the command line is
// deterministic regardless of map iteration.
func libArgs(libs map[string]string) []string {
	if len(libs) == 0 {
		return nil
	}
	suffixes := make([]string, 0, len(libs))
	for suffix := range libs {
		suffixes = append(suffixes, suffix)
	}
	sort.Strings(suffixes)
	args := make([]string, 0, len(libs))
	for _, suffix := range suffixes {
		args = append(args, "-L-l"+libs[suffix])
	}
	return args
}

// targetLabel names a target for progress output:
// "name" for a package's main target, "name:subname" for a subpackage's.
func targetLabel(t *planner.Target) string {
	if t.SubName == "" {
		return t.Name
	}
	return recipe.Identity(t.Name, t.SubName)
}

func compilerBinary() string {
	if compilerFlag != "" {
		return compilerFlag
	}
	if override := config.CompilerOverride(); override != "" {
		return override
	}
	return "dmd"
}

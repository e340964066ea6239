// Command dub is a package manager and meta build tool: it resolves a
// consistent set of dependency versions, fetches them through the
// supplier layer, plans a build, and invokes the compiler, caching
// artifacts by build identity.
//
// This command tree is the CLI surface: cobra dispatch and global
// flags, wired against the core packages that do the real work.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dub-go/dub/internal/log"
)

var (
	quietFlag    bool
	vquietFlag   bool
	verboseFlag  bool
	vverboseFlag bool
	colorFlag    string

	rootFlag           string
	registryFlag       []string
	skipRegistryFlag   string
	compilerFlag       string
	archFlag           string
	configFlag         string
	buildTypeFlag      string
	buildModeFlag      string
	forceFlag          bool
	nonInteractiveFlag bool
	yesFlag            bool
	cacheFlag          string
	nodepsFlag         bool
	tempBuildFlag      bool
)

var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "dub",
	Short: "A package manager and build tool for D-family projects",
	Long: `dub resolves a project's dependency graph against one or more
package suppliers, assembles a build plan from the resolved packages'
recipes, and invokes the compiler, caching artifacts by build identity.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVar(&vquietFlag, "vquiet", false, "Show nothing at all, not even errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&vverboseFlag, "vverbose", false, "Show very verbose (debug) output")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Colorize output: never|auto|always")

	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "Root project directory")
	rootCmd.PersistentFlags().StringArrayVar(&registryFlag, "registry", nil, "Additional registry URL (repeatable)")
	rootCmd.PersistentFlags().StringVar(&skipRegistryFlag, "skip-registry", "none", "Skip registries: none|standard|configured|all")
	rootCmd.PersistentFlags().StringVar(&compilerFlag, "compiler", "", "Compiler binary to use")
	rootCmd.PersistentFlags().StringVar(&archFlag, "arch", "", "Target architecture")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Build configuration name")
	rootCmd.PersistentFlags().StringVar(&buildTypeFlag, "build", "debug", "Build type")
	rootCmd.PersistentFlags().StringVar(&buildModeFlag, "build-mode", "separate", "Build mode: separate|allAtOnce|singleFile")
	rootCmd.PersistentFlags().BoolVar(&forceFlag, "force", false, "Force a rebuild even if the cache has a matching identity")
	rootCmd.PersistentFlags().BoolVar(&nonInteractiveFlag, "non-interactive", false, "Never prompt; default unanswered prompts to no")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Answer yes to every prompt")
	rootCmd.PersistentFlags().StringVar(&cacheFlag, "cache", "user", "Cache location: local|user|system")
	rootCmd.PersistentFlags().BoolVar(&nodepsFlag, "nodeps", false, "Skip dependency resolution; use the existing selections file verbatim")
	rootCmd.PersistentFlags().BoolVar(&tempBuildFlag, "temp-build", false, "Discard build artifacts after the invocation completes")

	rootCmd.PersistentPreRun = initLogger

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(addLocalCmd)
	rootCmd.AddCommand(removeLocalCmd)
	rootCmd.AddCommand(addPathCmd)
	rootCmd.AddCommand(removePathCmd)
	rootCmd.AddCommand(addOverrideCmd)
	rootCmd.AddCommand(removeOverrideCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(listOverridesCmd)
	rootCmd.AddCommand(dustmiteCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived %s, canceling operation...\n", sig)
		globalCancel()

		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		exitWithCode(ExitCancelled)
	}()

	rootCmd.SetContext(globalCtx)
	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitCancelled)
		}
		printError(err)
		exitWithCode(exitCodeFor(err))
	}
}

// initLogger wires the CLI's verbosity flags into the ambient logger.
// Verbosity is flag-only; no environment variable changes it.
func initLogger(cmd *cobra.Command, args []string) {
	level := slog.LevelWarn
	switch {
	case vquietFlag:
		level = slog.LevelError + 4 // above Error: nothing logs
	case vverboseFlag:
		level = slog.LevelDebug
	case verboseFlag:
		level = slog.LevelInfo
	case quietFlag:
		level = slog.LevelError
	}
	handler := log.NewCLIHandler(level)
	log.SetDefault(log.New(handler))
}

/*
NuxtHub - deploy full-stack Nuxt applications from the command line
*/
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nuxthub/cli/internal/failfast"
	"nuxthub/shared"
)

var (
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	magenta = color.New(color.FgHiMagenta).SprintFunc()
)

var (
	verbose        bool
	nonInteractive bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nuxthub",
	Short: "Deploy and manage NuxtHub projects.",
	Long: fmt.Sprintf(`%s %s

%s

%s
%s  Content-addressed uploads, only changed assets are sent
%s  Database migrations applied on every deploy
%s  Live logs of your deployed project

Run '%s' to see available commands.
`,
		bold("⚡ NuxtHub"), yellow(shared.Version),
		magenta("Build full-stack applications on the edge."),
		bold("Features:"),
		green("✓"),
		green("✓"),
		green("✓"),
		cyan("nuxthub --help"),
	),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("\n%s %s\n\n", green("✨ Welcome to"), bold("NuxtHub CLI"))
		fmt.Println(bold("Quick Start:"))
		fmt.Printf("  %s - Authenticate with NuxtHub\n", cyan("nuxthub login"))
		fmt.Printf("  %s - Link this directory to a project\n", cyan("nuxthub link"))
		fmt.Printf("  %s - Build and deploy your project\n\n", cyan("nuxthub deploy"))
	},
}

func setupLogging() error {
	name := settingsLogLevel()
	if verbose {
		name = "debug"
	}
	level, err := shared.ParseLevel(name)
	if err != nil {
		return err
	}
	shared.SetLevel(level)
	return nil
}

// Execute runs the root command
func Execute() {
	failfast.Failfast(rootCmd.Execute(), failfast.Error, "")
}

func init() {
	rootCmd.Version = shared.Version
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
	rootCmd.PersistentFlags().BoolVarP(&nonInteractive, "yes", "y", false, "Answer yes to every confirmation")

	rootCmd.SetHelpTemplate(fmt.Sprintf(`%s
%s
{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`,
		cyan("✨ NuxtHub CLI"),
		yellow("Usage: {{.UseLine}}"),
	))

	rootCmd.SetUsageTemplate(`{{.UseLine}}

  {{.Short}}

{{if .HasAvailableFlags}}Options:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}

{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if .IsAvailableCommand}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}{{end}}

Run '{{.CommandPath}} [command] --help' for more information about a command.
`)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"skillsync/internal/app"
	"skillsync/internal/logger"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		if hint := app.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, color.YellowString("hint:"), hint)
		}
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

type serviceFactory func() (*app.Service, error)

func newRootCmd() *cobra.Command {
	var configPath string
	var projectRoot string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath, ProjectRoot: projectRoot})
	}

	cmd := &cobra.Command{
		Use:           "skillsync",
		Short:         "Browse, install and update agent skills from Git repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetOutput(cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&projectRoot, "project", "", "project root for project scope (default: detected from cwd)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newListCmd(newSvc, &jsonOutput),
		newRefreshCmd(newSvc, &jsonOutput),
		newSearchCmd(newSvc, &jsonOutput),
		newSourcesCmd(newSvc, &jsonOutput),
		newInstallCmd(newSvc, &jsonOutput),
		newUninstallCmd(newSvc, &jsonOutput),
		newUpdateCmd(newSvc, &jsonOutput),
		newRestoreCmd(newSvc, &jsonOutput),
		newCheckCmd(newSvc, &jsonOutput),
		newSyncCmd(newSvc, &jsonOutput),
		newRevealCmd(newSvc, &jsonOutput),
		newEditCmd(newSvc, &jsonOutput),
		newTokenCmd(newSvc, &jsonOutput),
		newLangCmd(newSvc, &jsonOutput),
		newAgentCmd(newSvc, &jsonOutput),
		newScopeCmd(newSvc, &jsonOutput),
		newAICategoriesCmd(newSvc, &jsonOutput),
		newDoctorCmd(newSvc, &jsonOutput),
		newVersionCmd(&jsonOutput),
	)
	return cmd
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}

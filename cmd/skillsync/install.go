package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"skillsync/internal/installer"
)

func progressPrinter(jsonOutput bool) installer.Progress {
	if jsonOutput {
		return nil
	}
	return func(cur, total int) {
		fmt.Fprintf(os.Stderr, "\rdownloading %d/%d", cur, total)
		if cur == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func resultMessage(verb string, res installer.Result) string {
	msg := fmt.Sprintf("%s %s", verb, res.ID)
	if res.Revision != "" {
		msg += "@" + res.Revision
	}
	msg += " -> " + res.Path
	if res.LinkPath != "" {
		msg += fmt.Sprintf(" (%s at %s)", res.Mode, res.LinkPath)
	}
	for _, w := range res.Warnings {
		msg += "\n" + markModified("warning: ") + w
	}
	return msg
}

func newInstallCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "install <id>...",
		Aliases: []string{"i", "add"},
		Short:   "Install skills into the selected agent",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			var results []installer.Result
			for _, id := range args {
				res, err := svc.Install(context.Background(), id, progressPrinter(*jsonOutput))
				if err != nil {
					return err
				}
				results = append(results, res)
				if !*jsonOutput {
					fmt.Println(resultMessage("installed", res))
				}
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			return nil
		},
	}
}

func newUninstallCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <id>...",
		Aliases: []string{"un", "rm"},
		Short:   "Remove skills from the selected agent",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			var results []installer.UninstallResult
			for _, id := range args {
				res, err := svc.Uninstall(context.Background(), id)
				if err != nil {
					return err
				}
				results = append(results, res)
				if *jsonOutput {
					continue
				}
				if res.Warning != "" {
					fmt.Println(markModified("warning: ") + res.Warning)
					continue
				}
				fmt.Println("removed:", strings.Join(res.Removed, ", "))
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			return nil
		},
	}
}

func newUpdateCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "update <id>...",
		Aliases: []string{"up", "upgrade"},
		Short:   "Reinstall skills at their latest revision",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			var results []installer.Result
			for _, id := range args {
				res, err := svc.Update(context.Background(), id, progressPrinter(*jsonOutput))
				if err != nil {
					return err
				}
				results = append(results, res)
				if !*jsonOutput {
					fmt.Println(resultMessage("updated", res))
				}
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			return nil
		},
	}
}

func newRestoreCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Discard local edits and restore the official files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.RestoreOfficial(context.Background(), args[0], progressPrinter(*jsonOutput))
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, resultMessage("restored", res))
		},
	}
}

func newCheckCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "check",
		Aliases: []string{"outdated"},
		Short:   "Show installed skills with a newer revision upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			updates, err := svc.CheckUpdates(context.Background())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, updates, "")
			}
			ids := make([]string, 0, len(updates))
			for id, info := range updates {
				if info.HasUpdate {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				fmt.Println("everything is up to date")
				return nil
			}
			sort.Strings(ids)
			for _, id := range ids {
				info := updates[id]
				fmt.Printf("- %s %s -> %s\n", id, info.InstalledRevision, markUpdate(info.LatestRevision))
			}
			return nil
		},
	}
}

func newSyncCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var strict bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Update every outdated skill that has no local edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report, runErr := svc.SyncAll(context.Background(), dryRun)
			if *jsonOutput {
				if err := print(true, report, ""); err != nil {
					return err
				}
			} else {
				for _, id := range report.Pending {
					fmt.Println("would update", id)
				}
				for _, id := range report.Upgraded {
					fmt.Println("updated", id)
				}
				for _, f := range report.Failed {
					fmt.Printf("%s %s: %s\n", markModified("failed"), f.ID, f.Error)
				}
				fmt.Printf("checked %d, updated %d, failed %d\n", report.Checked, len(report.Upgraded), len(report.Failed))
			}
			if runErr != nil && len(report.Failed) == 0 {
				return runErr
			}
			if strict && len(report.Failed) > 0 {
				return &exitError{code: 2, msg: fmt.Sprintf("sync failed for %d skill(s)", len(report.Failed))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would be updated")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with code 2 when any update fails")
	return cmd
}

func newRevealCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <id>",
		Short: "Print the directory holding an installed skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			dir, err := svc.Reveal(args[0])
			if err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"path": dir}, dir)
		},
	}
}

func newEditCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Open an installed skill's SKILL.md in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			file, err := svc.EditPath(args[0])
			if err != nil {
				return err
			}
			editor := os.Getenv("EDITOR")
			if *jsonOutput || editor == "" {
				return print(*jsonOutput, map[string]string{"path": file}, file)
			}
			c := exec.Command(editor, file)
			c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
			return c.Run()
		},
	}
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"skillsync/internal/adapter"
)

func newTokenCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var clearToken bool
	cmd := &cobra.Command{
		Use:   "token [token]",
		Short: "Configure the API access token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearToken && len(args) == 0 {
				return fmt.Errorf("CFG_TOKEN: token argument or --clear is required")
			}
			svc, err := newSvc()
			if err != nil {
				return err
			}
			token := ""
			if !clearToken {
				token = args[0]
			}
			if err := svc.ConfigureAccessToken(token); err != nil {
				return err
			}
			msg := "token saved"
			if token == "" {
				msg = "token cleared"
			}
			return print(*jsonOutput, map[string]bool{"configured": token != ""}, msg)
		},
	}
	cmd.Flags().BoolVar(&clearToken, "clear", false, "remove the stored token")
	return cmd
}

func newLangCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "lang [tag]",
		Aliases: []string{"language"},
		Short:   "Show or set the display language (BCP-47)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := svc.SetLanguage(args[0]); err != nil {
					return err
				}
			}
			lang := svc.Config.UI.Language
			return print(*jsonOutput, map[string]string{"language": lang}, "language: "+lang)
		},
	}
}

func newAgentCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "agent [id]",
		Short: "Show or select the agent skills are installed for",
		Long:  "Known agents: " + strings.Join(adapter.IDs(), ", "),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := svc.SetAgentType(args[0]); err != nil {
					return err
				}
			}
			agent := svc.Config.UI.Agent
			if *jsonOutput {
				return print(true, map[string]any{"agent": agent, "detected": adapter.DetectAvailable(svc.Home)}, "")
			}
			fmt.Println("agent:", agent)
			for _, d := range adapter.DetectAvailable(svc.Home) {
				fmt.Printf("- detected %s at %s\n", d.Name, d.Path)
			}
			return nil
		},
	}
}

func newScopeCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "scope [global|project]",
		Short: "Show or set the installation scope",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := svc.SetScope(args[0]); err != nil {
					return err
				}
			}
			payload := map[string]string{"scope": string(svc.Scope()), "projectRoot": svc.ProjectRoot}
			msg := "scope: " + string(svc.Scope())
			if svc.ProjectRoot != "" {
				msg += " (project " + svc.ProjectRoot + ")"
			}
			return print(*jsonOutput, payload, msg)
		},
	}
}

func newAICategoriesCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "ai-categories [on|off]",
		Short: "Show or toggle AI-suggested categories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				show, err := parseToggle(args[0])
				if err != nil {
					return err
				}
				if err := svc.SetShowAICategories(show); err != nil {
					return err
				}
			}
			show := svc.Config.UI.ShowAICategories
			return print(*jsonOutput, map[string]bool{"showAiCategories": show}, fmt.Sprintf("ai categories: %t", show))
		},
	}
}

func parseToggle(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("CFG_TOGGLE: expected on or off, got %q", v)
	}
	return b, nil
}

func newDoctorCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag", "checkup"},
		Short:   "Run diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if fix {
				repaired, err := svc.RepairLinks(context.Background())
				if err != nil {
					return err
				}
				if !*jsonOutput && len(repaired) > 0 {
					fmt.Printf("repaired: %s\n", strings.Join(repaired, ", "))
				}
			}
			report := svc.DoctorRun(context.Background())
			if *jsonOutput {
				return print(true, report, "")
			}
			if report.Healthy && len(report.Findings) == 0 {
				fmt.Println(markInstalled("healthy"))
				return nil
			}
			if report.Healthy {
				fmt.Println(markInstalled("healthy"), "with notes:")
			} else {
				fmt.Println(markModified("issues found:"))
			}
			for _, f := range report.Findings {
				fmt.Printf("- [%s] %s: %s\n", f.Level, f.Code, f.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "re-create missing agent links for installed skills")
	return cmd
}

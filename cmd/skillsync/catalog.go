package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"skillsync/internal/app"
	"skillsync/internal/skill"
)

var (
	markInstalled = color.New(color.FgGreen).SprintFunc()
	markUpdate    = color.New(color.FgCyan).SprintFunc()
	markModified  = color.New(color.FgYellow).SprintFunc()
	markDegraded  = color.New(color.FgYellow, color.Bold).SprintFunc()
)

func degradedBanner(rateLimited bool) string {
	msg := "showing cached or partial results; some sources could not be reached"
	if rateLimited {
		msg += " (rate limited)"
	}
	return markDegraded("! " + msg)
}

func viewLine(v app.SkillView) string {
	var marks []string
	if v.IsInstalled {
		marks = append(marks, markInstalled("installed@"+v.InstalledRevision))
	}
	if v.HasUpdate {
		marks = append(marks, markUpdate("update:"+v.LatestRevision))
	}
	if v.IsLocallyModified {
		marks = append(marks, markModified("modified"))
	}
	category := v.Category
	if v.AICategory != "" {
		category = v.AICategory
	}
	desc := v.Description
	if v.TranslatedDescription != "" {
		desc = v.TranslatedDescription
	}
	line := fmt.Sprintf("- %s [%s] %s", v.ID, category, desc)
	if len(marks) > 0 {
		line += " " + strings.Join(marks, " ")
	}
	return line
}

func newListCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var installedOnly bool
	var category string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog skills with their installation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			st, err := svc.State(context.Background(), false)
			if err != nil {
				return err
			}
			views := st.Skills[:0:0]
			for _, v := range st.Skills {
				if installedOnly && !v.IsInstalled {
					continue
				}
				if category != "" && v.Category != category && v.AICategory != category {
					continue
				}
				views = append(views, v)
			}
			st.Skills = views
			if *jsonOutput {
				return print(true, st, "")
			}
			if st.Degraded {
				fmt.Println(degradedBanner(st.RateLimited))
			}
			fmt.Printf("agent=%s scope=%s\n", st.Agent, st.Scope)
			if !st.TargetAvailable {
				fmt.Println(markModified("target unavailable; installation state not shown"))
			}
			if len(views) == 0 {
				fmt.Println("no skills")
				return nil
			}
			for _, v := range views {
				fmt.Println(viewLine(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only installed skills")
	cmd.Flags().StringVar(&category, "category", "", "filter by category ("+strings.Join(skill.Categories(), "|")+")")
	return cmd
}

func newRefreshCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "refresh",
		Aliases: []string{"update-index"},
		Short:   "Rebuild the skill catalog from every source",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res := svc.RequestFullRefresh(context.Background())
			if *jsonOutput {
				payload := map[string]any{
					"skills":      len(res.Skills),
					"degraded":    res.Degraded,
					"rateLimited": res.RateLimited,
					"fromCache":   res.FromCache,
					"updatedAt":   res.UpdatedAt,
				}
				if res.Err != nil {
					payload["error"] = res.Err.Error()
				}
				return print(true, payload, "")
			}
			if res.Degraded {
				fmt.Println(degradedBanner(res.RateLimited))
				if res.Err != nil {
					fmt.Println(res.Err)
				}
			}
			fmt.Printf("catalog has %d skill(s)\n", len(res.Skills))
			return nil
		},
	}
}

func newSearchCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "search <query>",
		Aliases: []string{"find"},
		Short:   "Fuzzy search the catalog",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			items := svc.Search(context.Background(), args[0])
			if *jsonOutput {
				return print(true, items, "")
			}
			if len(items) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, item := range items {
				fmt.Printf("- %s: %s\n", item.ID, item.Description)
			}
			return nil
		},
	}
}

func newSourcesCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "sources",
		Aliases: []string{"source", "src"},
		Short:   "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			sources := svc.Sources()
			if *jsonOutput {
				return print(true, sources, "")
			}
			fmt.Println("sources file:", svc.SourcesPath)
			for _, s := range sources {
				fmt.Printf("- %s (%s/%s@%s) paths=%s\n", s.ID, s.Owner, s.Repo, s.Branch, strings.Join(s.Roots(), ","))
			}
			return nil
		},
	}
}

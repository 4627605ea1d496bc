package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"content_import/internal/domain"
	"content_import/internal/driver"
)

func newDriversCmd(withApp appRunner) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List registered import drivers and their options",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if lang == "" {
				lang = a.cfg.DefaultLanguage
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("invalid language %q: %w", lang, err)
			}

			writeDrivers(cmd.OutOrStdout(), a.registry.List(), tag)
			return nil
		}),
	}
	cmd.Flags().StringVar(&lang, "language", "", "language of descriptions (default: configured language)")
	return cmd
}

func writeDrivers(out io.Writer, drivers map[string]driver.Driver, lang language.Tag) {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION\tOPTIONS")
	for _, name := range names {
		d := drivers[name]
		var opts []string
		for _, f := range d.Schema().Fields {
			var attrs []string
			if f.Rule != driver.RuleNone {
				attrs = append(attrs, string(f.Rule))
			}
			if f.Required {
				attrs = append(attrs, "required")
			}

			opt := f.Name + "=" + driver.Translate(lang, f.Label)
			if len(attrs) > 0 {
				opt += " (" + strings.Join(attrs, ", ") + ")"
			}
			opts = append(opts, opt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, d.Description(lang), strings.Join(opts, "; "))
	}
	tw.Flush()
}

func newImportersCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importers",
		Short: "Manage importers",
	}
	cmd.AddCommand(
		newImportersListCmd(withApp),
		newImportersAddCmd(withApp),
		newImportersEnableCmd(withApp),
	)
	return cmd
}

func newImportersListCmd(withApp appRunner) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List importers",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			filter, err := languageFilter(lang, a.cfg.DefaultLanguage)
			if err != nil {
				return err
			}

			importers, err := a.importers.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list importers: %w", err)
			}

			writeImporters(cmd.OutOrStdout(), importers, time.Now())
			return nil
		}),
	}
	cmd.Flags().StringVar(&lang, "language", "", `language to list, "*" for all (default: configured language)`)
	return cmd
}

func writeImporters(out io.Writer, importers []domain.Importer, now time.Time) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDRIVER\tLANGUAGE\tMODEL\tENABLED\tDUE\tERRORS\tPAUSED TILL\tDESCRIPTION")
	for _, imp := range importers {
		paused := "-"
		if imp.PausedTill != nil {
			paused = imp.PausedTill.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\t%d\t%s\t%s\n",
			imp.ID, imp.Driver, imp.ContentLanguage, imp.ContentModel,
			imp.Enabled, imp.Due(now), imp.Errors, paused, imp.Description,
		)
	}
	tw.Flush()
}

func newImportersAddCmd(withApp appRunner) *cobra.Command {
	var imp domain.Importer

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an enabled importer",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()

			d, err := a.registry.Get(imp.Driver)
			if err != nil {
				return err
			}
			if err := d.Schema().Validate(imp.DriverOpts); err != nil {
				return err
			}

			lang := imp.ContentLanguage
			if lang == "" {
				lang = a.cfg.DefaultLanguage
			}
			if imp.ContentLanguage, err = normalizeLanguage(lang); err != nil {
				return err
			}

			if _, err := driver.NewMapper(a.stores, a.logger).Model(ctx, imp.ContentModel); err != nil {
				return err
			}

			imp.Enabled = true
			if err := a.importers.Create(ctx, &imp); err != nil {
				return fmt.Errorf("create importer: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "importer %d created\n", imp.ID)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&imp.Driver, "driver", "rss", "driver name")
	f.StringToStringVar(&imp.DriverOpts, "opt", nil, "driver option key=value, repeatable")
	f.StringVar(&imp.ContentModel, "model", "article", "target content model")
	f.StringVar(&imp.ContentAuthor, "author", "", "author of imported content")
	f.Int64Var(&imp.ContentSection, "section", 0, "default section id")
	f.StringVar(&imp.ContentStatus, "status", "published", "status of imported content")
	f.StringVar(&imp.ContentLanguage, "language", "", "content language (default: configured language)")
	f.StringSliceVar(&imp.AddTags, "tag", nil, "tag added to every imported entity, repeatable")
	f.StringVar(&imp.Description, "description", "", "importer description")
	f.StringVar(&imp.Owner, "owner", "", "importer owner")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("section")

	return cmd
}

func newImportersEnableCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Re-enable an importer and reset its error state",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid importer id %q", args[0])
			}
			if err := a.importers.Enable(cmd.Context(), id); err != nil {
				return fmt.Errorf("enable importer %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "importer %d enabled\n", id)
			return nil
		}),
	}
}

func newSectionsCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Manage content sections",
	}

	var listLang string
	list := &cobra.Command{
		Use:   "list",
		Short: "List sections",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			filter, err := languageFilter(listLang, a.cfg.DefaultLanguage)
			if err != nil {
				return err
			}
			sections, err := a.sections.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list sections: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLANGUAGE\tTITLE")
			for _, s := range sections {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Language, s.Title)
			}
			return tw.Flush()
		}),
	}
	list.Flags().StringVar(&listLang, "language", "", `language to list, "*" for all (default: configured language)`)

	var addLang string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a section",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			lang := addLang
			if lang == "" {
				lang = a.cfg.DefaultLanguage
			}
			lang, err := normalizeLanguage(lang)
			if err != nil {
				return err
			}

			section := domain.Section{Title: args[0], Language: lang}
			if err := a.sections.Create(cmd.Context(), &section); err != nil {
				return fmt.Errorf("create section: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "section %d created\n", section.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&addLang, "language", "", "section language (default: configured language)")

	cmd.AddCommand(list, add)
	return cmd
}

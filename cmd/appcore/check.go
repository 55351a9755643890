package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/appcore/internal/config"
	"github.com/vango-dev/appcore/internal/errors"
	"github.com/vango-dev/appcore/pkg/assets"
	"github.com/vango-dev/appcore/pkg/page"
	"github.com/vango-dev/appcore/pkg/view"
)

func checkCmd(load loadFunc) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the project configuration and templates",
		Long: `Validate the project configuration and parse every template.

Unknown page directives are reported as warnings; configuration and
template parse errors make the command fail.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			problems := checkProject(cfg)
			out := cmd.OutOrStdout()
			failed := 0
			for _, p := range problems {
				if asJSON {
					fmt.Fprintln(out, p.FormatJSON())
				} else {
					fmt.Fprint(out, p.Format())
				}
				if p.Code != "E151" {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d problem(s) found", failed)
			}
			if !asJSON {
				fmt.Fprintf(out, "✓ %s is valid (%s)\n", cfg.Name, cfg.Path())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print problems as JSON lines")

	return cmd
}

// checkProject validates cfg and every .html file under the template
// directory.
func checkProject(cfg *config.Config) []*errors.Error {
	var problems []*errors.Error
	if err := cfg.Validate(); err != nil {
		problems = append(problems, errors.FromError(err, "E122"))
	}

	root := cfg.TemplatesPath()
	if _, err := os.Stat(root); err != nil {
		if !cfg.Templates.S3.Enabled() {
			problems = append(problems, errors.New("E152").WithDetail(root+" does not exist"))
		}
		return problems
	}

	engine := view.NewHTMLEngine(
		view.WithCacheSize(0),
		view.WithFuncs(assets.NewResolver(nil, cfg.Static.Prefix).FuncMap()),
	)
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, errors.New("E150").WithLocation(path, 1, 0).Wrap(err))
			return nil
		}
		source := string(data)

		first, _, multiline := strings.Cut(source, "\n")
		if d, ok := page.ParseDirectives(first); multiline && ok && len(d.Unknown) > 0 {
			problems = append(problems, errors.New("E151").
				WithLocation(path, 1, 0).
				WithDetail("Unknown directive(s): "+strings.Join(d.Unknown, ", ")).
				WithSuggestion("Use +name or -name, e.g. <!-- -navbar -->"))
		}

		if err := engine.Check(source); err != nil {
			problems = append(problems, errors.New("E150").
				WithLocationFromTemplateError(path, err).
				Wrap(err))
		}
		return nil
	})
	return problems
}

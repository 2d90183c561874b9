package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-tangent/internal/config"
	"github.com/l3aro/go-tangent/internal/scanner"
	"github.com/l3aro/go-tangent/pkg/cache"
	"github.com/l3aro/go-tangent/pkg/parser"
	"github.com/l3aro/go-tangent/pkg/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir> [function...]",
	Short: "Run the forward data-flow analyses on functions",
	Long: `Runs reaching definitions, defined variables and active variables over
functions in a Python file and prints the in/out/gen/kill facts of every
statement, the facts at exit and the gradient names of active variables.

Without function names every function in the file is analyzed. Given a
directory, every function of every Python file below it is analyzed; files
and directories listed in a .tangentignore are skipped. A function that
fails is reported and the rest are still analyzed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		opts, err := analysisOptions(cmd, s)
		if err != nil {
			return err
		}

		units, failures, err := s.collectUnits(cmd, args)
		if err != nil {
			return err
		}
		opts.Logger = s.logger.With("path", args[0])

		noCache, _ := cmd.Flags().GetBool("no-cache")
		var reports *cache.Cache
		if !noCache {
			reports = s.openCache()
		}

		var results []*report.Function
		for _, u := range units {
			key := cache.KeyFor(u.src, u.label, opts)
			if reports != nil {
				if r, ok := reports.Get(key); ok {
					s.logger.Debug("report cache hit", "function", u.label)
					results = append(results, r)
					continue
				}
			}

			r, err := report.Analyze(u.fn.Def, opts)
			if err != nil {
				s.logger.Error("analysis failed", "function", u.label, "error", err)
				failures = append(failures, u.label)
				continue
			}
			r.Name = u.label
			results = append(results, r)
			if reports != nil {
				reports.Put(key, r)
			}
		}

		if reports != nil {
			s.saveCache(reports)
		}

		if err := writeReports(cmd, s, results); err != nil {
			return err
		}

		if len(failures) > 0 {
			return fmt.Errorf("%d of %d functions failed: %s",
				len(failures), len(failures)+len(results), strings.Join(failures, ", "))
		}
		return nil
	},
}

// unit is one function to analyze. label names it in reports and failures.
type unit struct {
	label string
	src   []byte
	fn    parser.Function
}

// collectUnits resolves the analyze arguments into functions. Functions that
// cannot be found and files that do not parse are returned as failures.
func (s *session) collectUnits(cmd *cobra.Command, args []string) ([]unit, []string, error) {
	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}

	if !info.IsDir() {
		src, mod, err := s.readModule(cmd, root)
		if err != nil {
			return nil, nil, err
		}
		if len(args) == 1 {
			var units []unit
			for _, fn := range parser.Functions(mod) {
				units = append(units, unit{label: fn.Name, src: src, fn: fn})
			}
			return units, nil, nil
		}
		var units []unit
		var failures []string
		for _, name := range args[1:] {
			def, err := findFunction(mod, root, name)
			if err != nil {
				s.logger.Error("skipping function", "function", name, "error", err)
				failures = append(failures, name)
				continue
			}
			units = append(units, unit{label: name, src: src, fn: parser.Function{Name: name, Def: def}})
		}
		return units, failures, nil
	}

	if len(args) > 1 {
		return nil, nil, fmt.Errorf("function names cannot be given with a directory: %s", root)
	}
	files, err := scanner.Scan(root, scanner.DefaultOptions())
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("scanned directory", "path", root, "files", len(files))

	var units []unit
	var failures []string
	for _, f := range files {
		src, mod, err := s.readModule(cmd, f.FullPath)
		if err != nil {
			s.logger.Error("skipping file", "path", f.Path, "error", err)
			failures = append(failures, f.Path)
			continue
		}
		for _, fn := range parser.Functions(mod) {
			units = append(units, unit{label: f.Path + ":" + fn.Name, src: src, fn: fn})
		}
	}
	return units, failures, nil
}

// analysisOptions starts from the configured options and applies the
// analysis flags.
func analysisOptions(cmd *cobra.Command, s *session) (report.Options, error) {
	opts := s.cfg.ReportOptions()
	opts.Logger = s.logger

	if cmd.Flags().Changed("analysis") {
		opts.Analyses, _ = cmd.Flags().GetStringSlice("analysis")
	}
	if cmd.Flags().Changed("wrt") {
		v, _ := cmd.Flags().GetString("wrt")
		wrt, err := config.ParseWrt(v)
		if err != nil {
			return report.Options{}, fmt.Errorf("--wrt: %w", err)
		}
		opts.Wrt = wrt
	}
	opts.Tangent, _ = cmd.Flags().GetBool("tangent")
	return opts, nil
}

func (s *session) openCache() *cache.Cache {
	c := cache.New(cache.Options{MaxEntries: s.cfg.CacheSize})
	path := s.cfg.CachePath()
	if err := cache.LoadFromFile(c, path); err != nil {
		s.logger.Warn("ignoring report cache", "path", path, "error", err)
		c.Clear()
	}
	return c
}

func (s *session) saveCache(c *cache.Cache) {
	path := s.cfg.CachePath()
	if err := cache.PersistToFile(c, path); err != nil {
		s.logger.Warn("could not save report cache", "path", path, "error", err)
		return
	}
	st := c.Stats()
	s.logger.Debug("saved report cache", "path", path, "entries", st.Length, "hits", st.Hits, "misses", st.Misses)
}

func writeReports(cmd *cobra.Command, s *session, results []*report.Function) error {
	out := cmd.OutOrStdout()
	if s.format != report.FormatText {
		if results == nil {
			results = []*report.Function{}
		}
		return report.Encode(out, s.format, results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		report.WriteText(out, r)
	}
	return nil
}

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().StringSlice("analysis", nil, "Analyses to run: definitions, defined, active (default from config)")
	analyzeCmd.Flags().Bool("no-cache", false, "Ignore and do not update the report cache")
	RootCmd.AddCommand(analyzeCmd)
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("wrt", "", "Comma-separated positional parameter indices for the active analysis (default all)")
	cmd.Flags().Bool("tangent", false, "Name forward-mode tangents instead of adjoints")
}

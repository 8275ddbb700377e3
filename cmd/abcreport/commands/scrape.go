package commands

import (
	"fmt"

	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/app"
	"github.com/koizuka/abcreport/config"
	"github.com/spf13/cobra"
)

type scrapeOptions struct {
	start, end   string
	mode         string
	backend      string
	out          string
	formats      []string
	headless     bool
	splitAddress bool
	sort         bool
}

// apply copies the flags given on the command line over cfg.
func (o *scrapeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Scrape.Mode = o.mode
	}
	if flags.Changed("backend") {
		cfg.Browser.Backend = o.backend
	}
	if flags.Changed("out") {
		cfg.Output.Dir = o.out
	}
	if flags.Changed("format") {
		cfg.Output.Formats = o.formats
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if flags.Changed("split-address") {
		cfg.Output.SplitAddress = o.splitAddress
	}
	if flags.Changed("sort") {
		cfg.Output.SortByReportDate = o.sort
	}
}

func newScrapeCommand(root *rootOptions) *cobra.Command {
	o := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape [--start DATE] [--end DATE]",
		Short: "Scrapes every day from start to end and writes the collected rows.",
		Example: `  abcreport scrape --start "May 30, 2024" --end "June 2, 2024"
  abcreport scrape --start 2024-05-30 --end 2024-06-02 --mode download --format csv,xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).fillDates(&o.start, &o.end); err != nil {
				return err
			}
			cfg := root.cfg
			o.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			notifier := &app.WriterNotifier{W: cmd.OutOrStdout()}
			factory := app.DefaultSessionFactory(scraper.NewZapLogger(root.logger.Named("session")))
			c := app.NewController(cfg, root.logger, notifier, factory)

			res, err := c.Run(cmd.Context(), app.Request{Start: o.start, End: o.end})
			if err != nil {
				return err
			}
			if res.Err != nil {
				if len(res.Files) > 0 {
					return fmt.Errorf("run %v stopped early, partial results saved: %w", res.RunID, res.Err)
				}
				return res.Err
			}
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

func (o *scrapeOptions) bind(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&o.start, "start", "", `first day, e.g. "May 30, 2024" or 2024-05-30`)
	flags.StringVar(&o.end, "end", "", "last day, inclusive")
	flags.StringVar(&o.mode, "mode", def.Scrape.Mode, "how a day is loaded: datepicker, query or download")
	flags.StringVar(&o.backend, "backend", def.Browser.Backend, "chrome or http (query mode only)")
	flags.StringVarP(&o.out, "out", "o", def.Output.Dir, "output directory")
	flags.StringSliceVarP(&o.formats, "format", "f", def.Output.Formats, "output formats: csv, json, xlsx")
	flags.BoolVar(&o.headless, "headless", def.Browser.Headless, "run Chrome without a window")
	flags.BoolVar(&o.splitAddress, "split-address", false, "split the owner and premises address into columns")
	flags.BoolVar(&o.sort, "sort", false, "sort rows by Report Date")
}

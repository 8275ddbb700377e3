package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	scraper "github.com/koizuka/abcreport"
	"github.com/koizuka/abcreport/output"
	"github.com/koizuka/abcreport/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMergeCommand(root *rootOptions) *cobra.Command {
	var dest, charset string
	var sort bool
	cmd := &cobra.Command{
		Use:   "merge --out FILE INPUT.csv...",
		Short: "Joins per-day CSV files sharing one header into a single file.",
		Long: `merge joins CSV files that share one header row, e.g. the per-day exports of a
download run, and writes them as one file. The format follows the extension of --out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, arg := range args {
				matches, err := filepath.Glob(arg)
				if err != nil {
					return err
				}
				if matches == nil {
					matches = []string{arg}
				}
				files = append(files, matches...)
			}

			formats, err := output.ParseFormats(strings.TrimPrefix(filepath.Ext(dest), "."))
			if err != nil {
				return fmt.Errorf("--out %v: %w", dest, err)
			}
			enc, err := scraper.CharsetEncoding(charset)
			if err != nil {
				return err
			}
			sortColumn := ""
			if sort {
				sortColumn = report.ReportDateHeader
			}

			n, err := output.ConcatFile(dest, formats[0], files, enc, sortColumn)
			if err != nil {
				return err
			}
			root.logger.Info("merged", zap.Int("files", len(files)), zap.Int("rows", n), zap.String("out", dest))
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d rows to %v\n", n, dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "out", "o", "", "output file (.csv, .json or .xlsx)")
	cmd.Flags().StringVar(&charset, "charset", "", "charset of the input files, empty for UTF-8")
	cmd.Flags().BoolVar(&sort, "sort", false, "sort rows by Report Date")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

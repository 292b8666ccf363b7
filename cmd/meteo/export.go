package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/meteo-core/internal/export"
	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/query"
)

// exportEpoch is the default start of an export.
const exportEpoch = "1970-01-01 00:00:00"

type exportOptions struct {
	dir     string
	metrics string
	start   string
	end     string
}

func newExportCmd(configPath func() string) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored series to CSV files",
		Long: `Write one <metric>.csv file per metric into --dir, each with the
header "date,value". Dates are rendered in local time when
export.local_time is set, otherwise in UTC.

Examples:

  meteo export
  meteo export --dir /var/www/meteo --metrics presenceCount,internalTemperature
  meteo export --start "2026-03-01 00:00:00" --end "2026-03-02 00:00:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), configPath())
			if err != nil {
				return err
			}
			defer a.close()

			start, end, err := opts.window(time.Now())
			if err != nil {
				return err
			}
			dir := opts.dir
			if dir == "" {
				dir = a.cfg.Export.Directory
			}

			loc := time.UTC
			if a.cfg.Export.LocalTime {
				loc = time.Local
			}
			exp := export.New(a.store, loc)
			exp.SetLogger(a.log)

			paths, err := exp.WriteDir(cmd.Context(), dir, query.ParseNames(opts.metrics), start, end)
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "destination directory (default export.directory)")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "comma-separated metrics to export (default all)")
	cmd.Flags().StringVar(&opts.start, "start", exportEpoch, "range start, YYYY-MM-DD HH:MM:SS UTC")
	cmd.Flags().StringVar(&opts.end, "end", "", "range end, YYYY-MM-DD HH:MM:SS UTC (default now)")
	return cmd
}

// window parses the requested range. An empty end means now.
func (o exportOptions) window(now time.Time) (time.Time, time.Time, error) {
	start, err := metric.ParseTime(o.start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
	}
	end := now.UTC()
	if o.end != "" {
		if end, err = metric.ParseTime(o.end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s", metric.FormatTime(end), metric.FormatTime(start))
	}
	return start, end, nil
}

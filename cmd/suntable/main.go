package main

import (
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-dashboard/internal/moment"
)

type options struct {
	name     string
	lat      float64
	lon      float64
	year     int
	from     string
	days     int
	timezone string
	output   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "suntable",
		Short: "Generate a sunrise/sunset table",
		Long:  "Compute daily sunrise and sunset times for a location and write them as a table the dashboard can load via SUNRISE_TABLE_PATH.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "", "location name as used by the weather API (required)")
	flags.Float64Var(&opts.lat, "lat", 0, "latitude in degrees")
	flags.Float64Var(&opts.lon, "lon", 0, "longitude in degrees")
	flags.IntVar(&opts.year, "year", time.Now().Year(), "calendar year to generate (ignored when --from is set)")
	flags.StringVar(&opts.from, "from", "", "first date, YYYY-MM-DD")
	flags.IntVar(&opts.days, "days", 0, "number of days (defaults to the whole year)")
	flags.StringVar(&opts.timezone, "timezone", "Asia/Taipei", "IANA time zone of the table")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (defaults to stdout)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func run(stdout io.Writer, opts options) error {
	tz, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	start := time.Date(opts.year, time.January, 1, 0, 0, 0, 0, tz)
	days := opts.days
	if opts.from != "" {
		start, err = time.ParseInLocation("2006-01-02", opts.from, tz)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if days <= 0 {
		days = int(start.AddDate(1, 0, 0).Sub(start).Round(24*time.Hour).Hours() / 24)
	}

	table, err := moment.NewTable(moment.Generate(opts.name, opts.lat, opts.lon, start, days, tz))
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return table.Encode(out)
}

// Command pivotexport renders a rows file through a report configuration and
// writes the resulting grid as a workbook.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/locvowork/pivotgrid/internal/logger"
	"github.com/locvowork/pivotgrid/pkg/pivot"
	"github.com/locvowork/pivotgrid/pkg/pivotexcel"
)

type options struct {
	dataPath     string
	configPath   string
	templatePath string
	outPath      string
	periodField  string
	rowGroups    string
	appName      string
}

func main() {
	var opts options
	flag.StringVar(&opts.dataPath, "data", "", "JSON array of rows (required)")
	flag.StringVar(&opts.configPath, "config", "", "report configuration (.rep)")
	flag.StringVar(&opts.templatePath, "template", "", "YAML export template")
	flag.StringVar(&opts.outPath, "out", "", "output workbook, defaults to Export_<app>_<date>.xlsx")
	flag.StringVar(&opts.periodField, "period", pivot.DefaultPeriodField, "column pivoted into per-period measures")
	flag.StringVar(&opts.rowGroups, "groups", "", "comma separated hierarchy overriding the configuration")
	flag.StringVar(&opts.appName, "app", pivotexcel.DefaultAppName, "application name used in the default file name")
	flag.Parse()

	ctx := context.Background()
	logger.InitLogging("")

	if opts.dataPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(ctx, opts); err != nil {
		logger.ErrorLog(ctx, "export failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	rows, err := readRows(opts.dataPath)
	if err != nil {
		return err
	}
	cfg, err := readConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.rowGroups != "" {
		cfg = cfg.WithRowGroups(splitList(opts.rowGroups))
	}

	var tmpl *pivotexcel.ExportTemplate
	if opts.templatePath != "" {
		if tmpl, err = pivotexcel.LoadTemplate(opts.templatePath); err != nil {
			return err
		}
	}

	view := pivot.Compute(pivot.Input{Rows: rows, Config: cfg, PeriodField: opts.periodField})

	out := opts.outPath
	if out == "" {
		out = pivotexcel.FileName(opts.appName, time.Now())
	}
	if err := pivotexcel.NewExporter(tmpl).SaveAs(out, view); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.InfoLog(ctx, "wrote %s: %d rows, %d periods", out, len(view.ExportNodes()), len(view.Periods))
	return nil
}

func readRows(path string) ([]*pivot.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var rows []*pivot.Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func readConfig(path string) (pivot.GridConfig, error) {
	var cfg pivot.GridConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

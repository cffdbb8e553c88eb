// Command confeitaria-export writes an orders or expenses report to a file.
//
//	confeitaria-export -kind orders -format pdf -start 2024-01-01 -end 2024-01-31
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"confeitaria/internal/backend"
	"confeitaria/internal/cli"
	"confeitaria/internal/config"
	"confeitaria/internal/export"
	"confeitaria/internal/forms"
	"confeitaria/internal/log"
	"confeitaria/internal/services"
	"confeitaria/internal/summary"
)

func main() {
	kind := flag.String("kind", "orders", "report to export: orders or expenses")
	format := flag.String("format", "csv", "output format: csv, pdf or xlsx")
	start := flag.String("start", "", "first day included (YYYY-MM-DD)")
	end := flag.String("end", "", "last day included (YYYY-MM-DD)")
	out := flag.String("out", "", "output file; defaults to the report's usual name, - for stdout")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentReports)

	if err := run(logger, cfg, *kind, *format, *start, *end, *out); err != nil {
		logger.Error("Export failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config, kindName, formatName, start, end, out string) error {
	var k export.Kind
	switch export.Kind(kindName) {
	case export.OrdersReport, export.ExpensesReport:
		k = export.Kind(kindName)
	default:
		return fmt.Errorf("unknown report kind %q", kindName)
	}
	f, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	p, err := forms.Period(forms.Value(start), forms.Value(end))
	if err != nil {
		return err
	}
	scope, err := summary.ParseCanceledScope(cfg.CanceledCountScope)
	if err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// Reports never announce anything.
	backendCfg.AMQPURL = ""

	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateStore(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	svc, err := services.New(ctx, res.Store, services.Options{CanceledScope: scope})
	if err != nil {
		return err
	}

	if out == "" {
		out = export.Filename(k, f)
	}
	var w io.Writer = os.Stdout
	if out != "-" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer file.Close()
		w = file
	}

	if k == export.OrdersReport {
		err = svc.ExportOrders(w, p, f)
	} else {
		err = svc.ExportExpenses(w, p, f)
	}
	if err != nil {
		return err
	}
	logger.Info("Report exported", log.FieldFormat, string(f), log.FieldPeriod, p.String(), "kind", string(k), "file", out)
	return nil
}

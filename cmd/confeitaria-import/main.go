// Command confeitaria-import loads the order export of the old app into the
// configured record store.
//
//	confeitaria-import -file encomendas.json [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"confeitaria/internal/backend"
	"confeitaria/internal/cli"
	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/legacy"
	"confeitaria/internal/log"
)

func main() {
	file := flag.String("file", "encomendas.json", "legacy JSON export to import")
	dryRun := flag.Bool("dry-run", false, "validate without writing")
	category := flag.String("category", string(core.Sweet), "category of products created from order lines")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentImport)

	cat, err := forms.Category(forms.Value(*category))
	if err != nil {
		logger.Error("Invalid category", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// Imported orders reach the mirror through the worker's reconcile.
	backendCfg.AMQPURL = ""

	if err := run(context.Background(), backendCfg, *file, legacy.Options{DryRun: *dryRun, Category: cat}); err != nil {
		logger.Error("Import failed", log.FieldError, err, "file", *file)
		os.Exit(1)
	}
}

func run(ctx context.Context, backendCfg backend.Config, path string, opts legacy.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := legacy.Decode(f)
	if err != nil {
		return err
	}

	res, err := backend.NewFactory(nil).CreateStore(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	rep, err := legacy.NewImporter(res.Store, opts).Import(ctx, records)
	if err != nil {
		return err
	}
	for _, s := range rep.Skipped {
		fmt.Fprintf(os.Stderr, "skipped order %d (%s): %s\n", s.Index, s.Client, s.Reason)
	}
	fmt.Printf("%d products created, %d orders imported, %d skipped\n",
		rep.ProductsCreated, rep.OrdersImported, len(rep.Skipped))
	return nil
}

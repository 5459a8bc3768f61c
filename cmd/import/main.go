package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/store177/shop-backend/config"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/db"
	"github.com/store177/shop-backend/internal/importer"
	"github.com/store177/shop-backend/pkg/logger"
	"github.com/store177/shop-backend/pkg/redis"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "import",
		Usage:     "load a legacy XLSX price list into the catalog",
		ArgsUsage: "<file.xlsx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sheet", Usage: "sheet name, defaults to the first sheet"},
			&cli.BoolFlag{Name: "dry-run", Usage: "parse and report without writing"},
			&cli.BoolFlag{Name: "skip-existing", Value: true, Usage: "skip products already in the catalog"},
			&cli.BoolFlag{Name: "inactive", Usage: "import products hidden from the storefront"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "import failed:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: import [flags] <file.xlsx>", 2)
	}
	path := c.Args().First()

	level := "info"
	if c.Bool("verbose") {
		level = "debug"
	}
	logger.Initialize(logger.Config{Level: level, Format: "console", EnableColor: true})

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	products, rowErrs, err := importer.ReadXLSX(file, c.String("sheet"))
	if err != nil {
		return err
	}

	variants := 0
	for _, p := range products {
		variants += len(p.Rows)
	}
	fmt.Printf("Products: %d, rows: %d, unreadable rows: %d\n", len(products), variants, len(rowErrs))
	for _, e := range rowErrs {
		fmt.Println("  skipped", e.Error())
	}

	if c.Bool("dry-run") {
		for _, p := range products {
			groups, vs, dupes := importer.BuildOptions(p)
			fmt.Printf("  %s %s: %d groups, %d variants\n", p.Brand, p.Title, len(groups), len(vs))
			for _, e := range dupes {
				fmt.Println("    skipped", e.Error())
			}
		}
		return nil
	}

	if !c.Bool("yes") {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := db.Initialize(&cfg.Database); err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	// the running server serves a cached storefront; writes must invalidate it
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, cached catalog will expire on its own", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer redis.Close()
	}
	svc := service.NewProductService(repository.NewProductRepository(db.GetDB()),
		redis.NewCache(redis.GetClient(), cfg.Redis.CatalogTTL), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := importer.Import(ctx, svc, products, importer.Options{
		SkipExisting: c.Bool("skip-existing"),
		Inactive:     c.Bool("inactive"),
	})
	if err != nil {
		return err
	}

	fmt.Println("Import completed!")
	fmt.Printf("Created: %d products, %d variants; skipped existing: %d\n", res.Created, res.Variants, res.Skipped)
	for _, e := range res.Errors {
		fmt.Println("  rejected", e.Error())
	}
	return nil
}

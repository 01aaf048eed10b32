package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"promo-sales-go/internal/common"
	"promo-sales-go/internal/config"
	"promo-sales-go/internal/database"
	"promo-sales-go/internal/promocode"

	"go.uber.org/zap"
)

// collectCodes merges the -codes list with the lines of -codes-file,
// normalized and deduplicated in input order.
func collectCodes(list, file string) ([]string, error) {
	raw := strings.Split(list, ",")

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("unable to open %s: %w", file, err)
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				zap.L().Warn("Failed to close codes file", zap.Error(err))
			}
		}(f)

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", file, err)
		}
	}

	seen := make(map[string]struct{})
	var codes []string
	for _, r := range raw {
		code := promocode.Normalize(r)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func seedPromoCodes(ctx context.Context, dbService *database.Service, codes []string) {
	if len(codes) == 0 {
		zap.L().Info("No promo codes to seed")
		return
	}

	added, err := dbService.SeedPromoCodes(ctx, codes)
	if err != nil {
		zap.L().Fatal("Failed to seed promo codes", zap.Error(err))
	}

	zap.L().Info("Promo codes seeded",
		zap.Int("requested", len(codes)),
		zap.Int("added", added),
		zap.Int("already_present", len(codes)-added))
}

func printCatalog(productsFile string) {
	products, err := common.LoadCatalog(productsFile)
	if err != nil {
		zap.L().Fatal("Failed to load product catalog", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("PRODUCT CATALOG (%s)", productsFile), common.DefaultWidth)
	list := products.Products()
	for i, p := range list {
		fmt.Printf("%s %-10s → %s\n", common.BoxPrefix(i == len(list)-1), p.Code, p.Name)
	}
	common.PrintFooter(fmt.Sprintf("%d products", len(list)), common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	codesFlag := flag.String("codes", "", "Comma separated promo codes to create as unregistered")
	codesFileFlag := flag.String("codes-file", "", "File with one promo code per line")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	codes, err := collectCodes(*codesFlag, *codesFileFlag)
	if err != nil {
		zap.L().Fatal("Failed to read promo codes", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	seedPromoCodes(ctx, dbService, codes)
	printCatalog(cfg.Ingest.ProductsFile)

	zap.L().Info("Initialization complete")
}

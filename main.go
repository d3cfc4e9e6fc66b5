package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"llamarural/api"
	"llamarural/chat"
	"llamarural/config"
	"llamarural/i18n"
	"llamarural/mapview"
	"llamarural/models"
	"llamarural/services"
	"llamarural/storage"
	"llamarural/utils"
)

const usage = `usage: llamarural <command> [flags]

commands:
  serve      run the HTTP dashboard (default)
  search     search around a point and print the results
  stats      print statistics over the whole dataset
  batch      search around every point of a CSV/XLSX file
  chat       talk to the assistant in the terminal
  snapshot   render the coverage map around a point to PNG
`

// app holds what every command shares.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	dataset  *services.Dataset
	cache    storage.ResultCache
	coverage *services.CoverageService
}

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, cfg, logger, args)
	case "search":
		err = runSearch(ctx, cfg, logger, args)
	case "stats":
		err = runStats(ctx, cfg, logger, args)
	case "batch":
		err = runBatch(ctx, cfg, logger, args)
	case "chat":
		err = runChat(ctx, cfg, logger, args)
	case "snapshot":
		err = runSnapshot(ctx, cfg, logger, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("%s: %v", cmd, err)
		os.Exit(1)
	}
}

// newApp loads the dataset and opens the result cache. A dataset that fails
// to load is kept as unavailable so callers report it per operation.
func newApp(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	reader := &storage.CSVReader{Delimiter: cfg.DatasetDelimiter, Encoding: cfg.DatasetEncoding}
	ds, _ := services.LoadDataset(cfg.DatasetPath, reader, logger)

	cache, err := storage.OpenResultCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		dataset:  ds,
		cache:    cache,
		coverage: services.NewCoverageService(ds, cache, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("[cache] Close: %v", err)
	}
}

func (a *app) assistant() *chat.Assistant {
	if a.cfg.ChatAPIKey == "" {
		a.logger.Warn("[chat] CHAT_API_KEY is not set; requests will likely be rejected")
	}
	client := chat.NewClient(a.cfg.ChatBaseURL, a.cfg.ChatAPIKey, a.cfg.ChatTimeout, a.logger)
	return chat.NewAssistant(client, a.cfg.ChatSmallModel, a.cfg.ChatLargeModel, a.logger)
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.HTTPAddr, "listen address")
	_ = fs.Parse(args)
	cfg.HTTPAddr = *addr

	logger.Info("=== LlamaRural dashboard starting ===")
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := services.NewBatchService(a.dataset, cfg.MaxConcurrency, cfg.DefaultRadiusKm, logger)
	return api.NewServer(cfg, a.coverage, batch, a.assistant(), logger).Run(ctx)
}

// pointFlags registers the flags shared by search and snapshot.
func pointFlags(fs *flag.FlagSet, cfg *config.Config) (lat, lon, radius *float64, operator, lang *string) {
	lat = fs.Float64("lat", mapview.DefaultLatitude, "query latitude")
	lon = fs.Float64("lon", mapview.DefaultLongitude, "query longitude")
	radius = fs.Float64("radius", cfg.DefaultRadiusKm, "search radius in km")
	operator = fs.String("operator", "", "exact operator name to filter by")
	lang = fs.String("lang", cfg.DefaultLang, "output language (es, en)")
	return
}

func runSearch(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	lat, lon, radius, operator, langFlag := pointFlags(fs, cfg)
	export := fs.String("export", "", "also write the results to this .csv or .xlsx file")
	_ = fs.Parse(args)
	lang := i18n.Parse(*langFlag, i18n.ES)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.coverage.Search(ctx, models.SearchQuery{
		Latitude: *lat, Longitude: *lon, RadiusKm: *radius, Operator: *operator,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println(i18n.T(lang, i18n.NoneFound, *radius))
		return nil
	}

	fmt.Println(i18n.T(lang, i18n.Found, len(results)))
	insights := services.NewInsightService(logger)
	insights.Print(os.Stdout, i18n.T(lang, i18n.Subtitle), insights.Generate(results))

	if *export != "" {
		w, err := storage.NewResultExporter(*export)
		if err != nil {
			return err
		}
		if err := w.WriteResults(models.NewCachedResultSet(results)); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		logger.Info("Results exported to %s", *export)
	}
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	langFlag := fs.String("lang", cfg.DefaultLang, "output language (es, en)")
	_ = fs.Parse(args)
	lang := i18n.Parse(*langFlag, i18n.ES)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.coverage.GlobalSummary()
	if err != nil {
		return err
	}
	services.NewInsightService(logger).Print(os.Stdout, i18n.T(lang, i18n.Title),
		&models.InsightReport{Summary: summary})
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	in := fs.String("in", "", "input .csv or .xlsx with id, lat, lon[, radius, operator] columns")
	sheet := fs.String("sheet", "", "sheet name for .xlsx input (default: first sheet)")
	out := fs.String("out", "batch_results.xlsx", "output .xlsx or .csv")
	_ = fs.Parse(args)
	if *in == "" {
		return errors.New("-in is required")
	}

	reader := &storage.CSVReader{Delimiter: cfg.DatasetDelimiter, Encoding: cfg.DatasetEncoding}
	ds, err := services.LoadDataset(cfg.DatasetPath, reader, logger)
	if err != nil {
		return err
	}

	points, err := storage.ReadQueryPoints(*in, *sheet, cfg.DatasetDelimiter)
	if err != nil {
		return err
	}

	rows := services.NewBatchService(ds, cfg.MaxConcurrency, cfg.DefaultRadiusKm, logger).Run(ctx, points)

	if strings.EqualFold(filepath.Ext(*out), ".csv") {
		err = storage.WriteBatchCSV(*out, rows)
	} else {
		err = storage.WriteBatchXLSX(*out, rows, "Results")
	}
	if err != nil {
		return err
	}
	logger.Info("Batch results saved to %s", *out)
	return nil
}

func runChat(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	langFlag := fs.String("lang", cfg.DefaultLang, "language of error messages (es, en)")
	_ = fs.Parse(args)
	lang := i18n.Parse(*langFlag, i18n.ES)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	assistant := a.assistant().WithFallback(i18n.T(lang, i18n.ChatError))
	conv := chat.NewConversation("")

	fmt.Println("🦙 LlamaRural chat. Empty line or Ctrl+D to quit, /reset to start over.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			return nil
		case "/reset":
			conv.Reset()
			continue
		}

		reply := assistant.Reply(ctx, conv, text, func() (string, bool) {
			return a.coverage.CachedContext(ctx)
		})
		fmt.Printf("\n%s\n\n\033[2mModel: %s\033[0m\n", reply.Text, reply.Model)
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func runSnapshot(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	lat, lon, radius, operator, langFlag := pointFlags(fs, cfg)
	out := fs.String("out", "coverage_map.png", "output PNG path")
	_ = fs.Parse(args)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	q := models.SearchQuery{Latitude: *lat, Longitude: *lon, RadiusKm: *radius, Operator: *operator}
	results, err := a.coverage.Search(ctx, q)
	if err != nil {
		return err
	}

	view := mapview.View{
		Lang:      i18n.Parse(*langFlag, i18n.ES),
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		RadiusKm:  q.RadiusKm,
		Results:   models.NewCachedResultSet(results),
	}
	return mapview.NewSnapshotter(cfg.ChromeBin, cfg.MaxRetries, logger).Snapshot(ctx, view, *out)
}

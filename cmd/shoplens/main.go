package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/shoplens/configs"
	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/helpers"
	"github.com/spektr-org/shoplens/server"
	"github.com/spektr-org/shoplens/storage"
)

// ============================================================================
// SHOPLENS CLI — transaction analytics for e-commerce datasets
// ============================================================================

const version = "0.3.0"

// cliFlags holds every parsed flag. Defaults come from configs.AppLoad.
type cliFlags struct {
	file      string
	cache     string
	pg        string
	pgTable   string
	importCSV bool

	from, to         string
	category         string
	product          string
	payment          string
	shipping         string
	minPrice         string
	maxPrice         string
	period           string
	topN             int
	topMetric        string
	requireData      bool
	thresholds       string
	thresholdProfile string

	format   string
	outFile  string
	serve    bool
	port     string
	logLevel string
	version  bool
}

func main() {
	cfg := configs.AppLoad()

	// ── Flags ─────────────────────────────────────────────────────────────
	var f cliFlags
	flag.StringVar(&f.file, "file", cfg.DataPath, "Path to transaction CSV")
	flag.StringVar(&f.cache, "cache", cfg.CachePath, "Dataset cache file (read first, written after a CSV parse)")
	flag.StringVar(&f.pg, "pg", cfg.Database.DSN, "PostgreSQL DSN used as dataset source and sink")
	flag.StringVar(&f.pgTable, "pg-table", cfg.Database.Table, "PostgreSQL table name")
	flag.BoolVar(&f.importCSV, "import", false, "Parse --file and replace the PostgreSQL table with it")

	flag.StringVar(&f.from, "from", "", "First date to include (YYYY-MM-DD)")
	flag.StringVar(&f.to, "to", "", "Last date to include (YYYY-MM-DD)")
	flag.StringVar(&f.category, "category", "", "Category to keep (\"All\" keeps every category)")
	flag.StringVar(&f.product, "product", "", "Product name to keep")
	flag.StringVar(&f.payment, "payment", "", "Payment method to keep")
	flag.StringVar(&f.shipping, "shipping", "", "Shipping method to keep")
	flag.StringVar(&f.minPrice, "min-price", "", "Lowest total_price to include")
	flag.StringVar(&f.maxPrice, "max-price", "", "Highest total_price to include")
	flag.StringVar(&f.period, "period", cfg.Analysis.Period, "Bucket period: day, week, month, quarter, year")
	flag.IntVar(&f.topN, "top-n", cfg.Analysis.TopN, "Number of top products and top spenders")
	flag.StringVar(&f.topMetric, "top-metric", cfg.Analysis.TopMetric, "Top products metric: quantity, profit, total_price, orders")
	flag.BoolVar(&f.requireData, "require-data", false, "Fail when no record matches the filters")
	flag.StringVar(&f.thresholds, "thresholds", cfg.Analysis.ThresholdsFile, "YAML file of detector threshold profiles")
	flag.StringVar(&f.thresholdProfile, "profile", cfg.Analysis.ThresholdProfile, "Threshold profile name (default: the file's default)")

	flag.StringVar(&f.format, "format", "json", "Output format: json, pretty, text, csv, series, records")
	flag.StringVar(&f.outFile, "out", "", "Write output to file instead of stdout")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP server instead of printing a report")
	flag.StringVar(&f.port, "port", cfg.Server.Port, "HTTP port for --serve")
	flag.StringVar(&f.logLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&f.version, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Shoplens — transaction analytics for e-commerce datasets

Usage:
  shoplens --file ecommerce_data.csv --format text
  shoplens --file data.csv --category Electronics --period month --format csv --out report.csv
  shoplens --file data.csv --pg "$DATABASE_URL" --import
  shoplens --pg "$DATABASE_URL" --serve --port 8080

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  SHOPLENS_DATA, SHOPLENS_CACHE, DATABASE_URL, SHOPLENS_TABLE, PORT,
  SHOPLENS_CURRENCY, SHOPLENS_PERIOD, SHOPLENS_TOP_N, SHOPLENS_TOP_METRIC,
  SHOPLENS_THRESHOLDS, SHOPLENS_THRESHOLD_PROFILE, SHOPLENS_MAX_SESSIONS,
  SHOPLENS_SESSION_TTL, LOG_LEVEL
  (a .env file in the working directory is loaded first)

Formats:
  json      Full report as JSON (default)
  pretty    Pretty-printed JSON
  text      Human-readable summary
  csv       Every report table as CSV (ready for Sheets/Excel)
  series    Chart series (buckets, distributions) as CSV
  records   The filtered transactions as CSV

Dataset source, first that succeeds:
  --cache file, then the --pg table, then --file (which refills the cache)
`)
	}

	flag.Parse()

	if f.version {
		fmt.Printf("shoplens %s\n", version)
		os.Exit(0)
	}

	log := newLogger(f.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ───────────────────────────────────────────────────────────
	var db *storage.Postgres
	if f.pg != "" {
		var err error
		db, err = storage.Open(ctx, f.pg, f.pgTable, log)
		if err != nil {
			fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			fatalf("Failed to prepare table: %v", err)
		}
	}

	// ── Read data ─────────────────────────────────────────────────────────
	store, err := loadDataset(ctx, f, db, log)
	if err != nil {
		fatalf("Failed to load dataset: %v", err)
	}
	from, to := store.DateRange()
	log.WithFields(logrus.Fields{
		"records": store.Len(),
		"from":    from.Format(engine.DateLayout),
		"to":      to.Format(engine.DateLayout),
	}).Info("📊 dataset loaded")

	// ── Analysis settings ─────────────────────────────────────────────────
	period, err := engine.ParsePeriod(f.period)
	if err != nil {
		fatalf("%v", err)
	}
	metric, err := engine.ParseMetric(f.topMetric)
	if err != nil {
		fatalf("%v", err)
	}
	detector := engine.DefaultDetectorConfig()
	if f.thresholds != "" {
		tf, err := configs.LoadThresholds(f.thresholds)
		if err != nil {
			fatalf("%v", err)
		}
		if detector, err = tf.Detector(f.thresholdProfile); err != nil {
			fatalf("%v", err)
		}
		log.WithField("profile", f.thresholdProfile).Info("🎚️ detector thresholds loaded")
	}

	// ── Serve mode ────────────────────────────────────────────────────────
	if f.serve {
		gin.SetMode(cfg.Server.Mode)
		opts := []server.Option{
			server.WithLogger(log),
			server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
			server.WithSessionLimits(cfg.Server.MaxSessions, cfg.Server.SessionTTL),
			server.WithCurrency(cfg.Analysis.Currency),
			server.WithDefaults(period, f.topN, metric),
			server.WithEngineOptions(engine.WithDetector(detector)),
		}
		if db != nil {
			opts = append(opts, server.WithSink(db))
		}
		if f.cache != "" {
			opts = append(opts, server.WithCache(f.cache))
		}
		if err := server.New(store, opts...).Run(ctx, ":"+f.port); err != nil {
			fatalf("Server failed: %v", err)
		}
		return
	}

	// ── Report mode ───────────────────────────────────────────────────────
	spec, err := f.filterSpec()
	if err != nil {
		fatalf("%v", err)
	}

	writer := os.Stdout
	if f.outFile != "" {
		out, err := os.Create(f.outFile)
		if err != nil {
			fatalf("Failed to create output file: %v", err)
		}
		defer out.Close()
		writer = out
	}

	if f.format == "records" {
		view, err := engine.ApplyFilters(store, spec)
		if err != nil {
			fatalf("%v", err)
		}
		if err := helpers.WriteCSV(writer, view); err != nil {
			fatalf("Failed to write records: %v", err)
		}
		logWritten(log, f.outFile)
		return
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithPeriod(period),
		engine.WithTopN(f.topN),
		engine.WithTopMetric(metric),
		engine.WithDetector(detector),
	}
	if f.requireData {
		opts = append(opts, engine.WithRequireData())
	}
	report, err := engine.Analyze(store, spec, opts...)
	if err != nil {
		fatalf("Analysis failed: %v", err)
	}

	// ── Render output ─────────────────────────────────────────────────────
	if err := render(writer, report, f.format, cfg.Analysis.Currency); err != nil {
		fatalf("%v", err)
	}
	logWritten(log, f.outFile)
}

// ============================================================================
// DATASET LOADING
// ============================================================================

// loadDataset reads the cache, then PostgreSQL, then the CSV file.
// A CSV parse refills the cache and, with --import, the table.
func loadDataset(ctx context.Context, f cliFlags, db *storage.Postgres, log logrus.FieldLogger) (*engine.Store, error) {
	if f.cache != "" && !f.importCSV {
		store, err := helpers.LoadCache(f.cache)
		switch {
		case err == nil:
			log.WithField("path", f.cache).Info("📂 loaded cached dataset")
			return store, nil
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", f.cache).Debug("no cached dataset")
		default:
			log.WithError(err).Warn("⚠️ cache unreadable, falling back")
		}
	}

	if db != nil && !f.importCSV {
		store, err := db.LoadStore(ctx)
		if err != nil {
			return nil, err
		}
		if store.Len() > 0 {
			saveCache(f.cache, store, log)
			return store, nil
		}
		log.Info("database table is empty, reading CSV")
	}

	file, err := os.Open(f.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.file, err)
	}
	defer file.Close()

	store, err := helpers.ParseCSVStore(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.file, err)
	}
	if db != nil {
		if err := db.ReplaceAll(ctx, store); err != nil {
			return nil, err
		}
	}
	saveCache(f.cache, store, log)
	return store, nil
}

func saveCache(path string, store *engine.Store, log logrus.FieldLogger) {
	if path == "" {
		return
	}
	if err := helpers.SaveCache(path, store); err != nil {
		log.WithError(err).Warn("⚠️ dataset cache not written")
		return
	}
	log.WithField("path", path).Debug("dataset cached")
}

// ============================================================================
// FILTERS
// ============================================================================

// filterSpec converts the filter flags into a validated FilterSpec.
func (f cliFlags) filterSpec() (engine.FilterSpec, error) {
	spec := engine.FilterSpec{
		Category:       f.category,
		Product:        f.product,
		PaymentMethod:  f.payment,
		ShippingMethod: f.shipping,
	}

	var err error
	if f.from != "" {
		if spec.DateFrom, err = engine.ParseDate(f.from); err != nil {
			return spec, fmt.Errorf("--from: expected YYYY-MM-DD, got %q", f.from)
		}
	}
	if f.to != "" {
		if spec.DateTo, err = engine.ParseDate(f.to); err != nil {
			return spec, fmt.Errorf("--to: expected YYYY-MM-DD, got %q", f.to)
		}
	}
	if spec.PriceMin, err = optionalAmount("--min-price", f.minPrice); err != nil {
		return spec, err
	}
	if spec.PriceMax, err = optionalAmount("--max-price", f.maxPrice); err != nil {
		return spec, err
	}
	return spec, spec.Validate()
}

func optionalAmount(name, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := helpers.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &v, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func logWritten(log logrus.FieldLogger, path string) {
	if path != "" {
		log.WithField("path", path).Info("📄 output written")
	}
}

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

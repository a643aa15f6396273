package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/config"
	"pairsbot-go/internal/engine"
	"pairsbot-go/internal/exchange"
	"pairsbot-go/internal/execution"
	"pairsbot-go/internal/journal"
	"pairsbot-go/internal/ledger"
	"pairsbot-go/internal/markethours"
	"pairsbot-go/internal/metrics"
	"pairsbot-go/internal/paper"
	"pairsbot-go/internal/strategy"
	"pairsbot-go/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		util.NewLogger("info", "").Fatal().Err(err).Str("path", *cfgPath).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", cfg.App.Name).Logger()

	var srv interface{ Shutdown(context.Context) error }
	if cfg.App.MetricsAddr != "" {
		srv = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	creds, err := config.LoadCredentials(cfg.Broker)
	if err != nil {
		log.Fatal().Err(err).Msg("load credentials")
	}
	session := exchange.NewSession(creds, cfg.Broker)
	if err := session.Authenticate(); err != nil {
		log.Fatal().Err(err).Msg("authenticate")
	}
	log.Info().Str("auth_url", creds.AuthURL).Msg("authenticated")

	var feed engine.PriceFeed = exchange.NewHistoryFeed(session, log)
	var submitter execution.Submitter
	var (
		broker  *paper.Broker
		blotter *paper.Blotter
	)
	switch cfg.Trading.Mode {
	case config.ModePaper:
		blotter = paper.NewBlotter(64)
		recorders := []paper.FillRecorder{blotter}
		if cfg.Paper.FillsPath != "" {
			fills, err := paper.OpenFillsFile(cfg.Paper.FillsPath)
			if err != nil {
				log.Fatal().Err(err).Str("path", cfg.Paper.FillsPath).Msg("open fills file")
			}
			defer fills.Close()
			recorders = append(recorders, fills)
		}
		broker = paper.NewBroker(feed, paper.NewAccount(cfg.Paper.StartingCash), log, recorders...)
		feed, submitter = broker, broker
		log.Info().Float64("starting_cash", cfg.Paper.StartingCash).Msg("paper mode")
	default:
		account, err := creds.ResolveAccount(cfg.Trading.AccountNumber)
		if err != nil {
			log.Fatal().Err(err).Msg("resolve account")
		}
		submitter = execution.NewLimeSubmitter(session, account)
		log.Info().Str("account", account).Msg("live mode")
	}

	rec, err := journal.Open(cfg.Journal)
	if err != nil {
		log.Fatal().Err(err).Msg("open journal")
	}
	defer rec.Close()

	exec := execution.NewExecutor(submitter, log,
		execution.WithOrderTimeout(cfg.Trading.OrderTimeout()),
		execution.WithCompensation(cfg.Trading.CompensateFailedLeg),
	)
	strat := strategy.Build(cfg.Trading.Method, strategy.Params{
		EntryThreshold: cfg.Trading.EntryThreshold,
		ExitThreshold:  cfg.Trading.ExitThreshold,
	})
	book := ledger.New()
	trader := engine.NewTrader(engine.Settings{
		PositionSize: cfg.Trading.PositionSize,
		Window:       cfg.Trading.LookbackWindow(),
		Period:       cfg.Trading.Period,
		FetchTimeout: cfg.Trading.FetchTimeout(),
	}, feed, strat, exec, book, rec, log)

	opts := []engine.SchedulerOption{engine.WithConcurrency(cfg.Trading.MaxConcurrency)}
	if cfg.Trading.MarketHoursOnly {
		cal := markethours.New(cfg.Trading.MarketCalendar, log)
		if !cal.BusinessDay(time.Now()) {
			log.Info().Str("calendar", cfg.Trading.MarketCalendar).Msg("not a trading day, cycles wait for the next session")
		}
		opts = append(opts, engine.WithGate(cal))
	}
	sched := engine.NewScheduler(trader, cfg.Trading.SignalPairs(), cfg.Trading.PollInterval(), log, opts...)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("method", strat.Name()).Str("mode", cfg.Trading.Mode).Int("pairs", len(sched.Pairs())).Msg("pairs bot started")
	if err := sched.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler stopped")
	}

	reportPositions(log, book, broker, blotter)
	reportJournal(log, rec)
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// reportPositions logs whatever is still open; positions are not closed on shutdown.
func reportPositions(log zerolog.Logger, book *ledger.Ledger, broker *paper.Broker, blotter *paper.Blotter) {
	for key, state := range book.Snapshot() {
		if state.Open() {
			log.Warn().Str("pair", key).Str("state", string(state)).Msg("position left open")
		}
	}
	if broker == nil {
		return
	}
	snap := broker.Snapshot()
	log.Info().
		Float64("cash", snap.Cash).
		Float64("equity", snap.Equity).
		Float64("realized_pnl", snap.RealizedPnL).
		Int("symbols", len(snap.Positions)).
		Int("fills", blotter.Len()).
		Msg("paper account")
	for _, fill := range blotter.Last(5) {
		log.Info().Str("sym", fill.Symbol).Str("side", string(fill.Side)).Int("qty", fill.Qty).Float64("px", fill.Price).Time("ts", fill.Ts).Msg("recent paper fill")
	}
}

// reportJournal logs how many transitions a queryable journal holds.
func reportJournal(log zerolog.Logger, rec journal.Recorder) {
	q, ok := rec.(interface{ Entries() ([]journal.Entry, error) })
	if !ok {
		return
	}
	entries, err := q.Entries()
	if err != nil {
		log.Warn().Err(err).Msg("read journal")
		return
	}
	log.Info().Int("entries", len(entries)).Msg("trade journal")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/handlers/business"
	"profitpool/internal/models"
	"profitpool/internal/repository"
	dbconfig "profitpool/pkg/config"
)

// jobTimeout bounds one scheduled recompute.
const jobTimeout = 10 * time.Minute

// trailingRange is the window the nightly job recomputes: the last
// trailingDays days before today, plus today.
func trailingRange(today models.Date, trailingDays int) models.DateRange {
	return models.DateRange{Start: today.AddDays(-trailingDays), End: today}
}

// RefreshAllocations recomputes the trailing window and stores the resulting
// balances. Late gross totals and charges inside the window are picked up
// even when nobody triggered a recompute for them.
func RefreshAllocations(ctx context.Context, fm *business.FundManager, trailingDays int) error {
	r := trailingRange(fm.Today(), trailingDays)
	logger.WithField("range", r.String()).Info("> scheduled recompute started")

	res, err := fm.Recompute(ctx, r.Start, r.End, "scheduled")
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if err := fm.RefreshBalances(ctx); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"range":       r.String(),
		"allocations": len(res.Allocations),
		"skipped":     len(res.Skipped),
	}).Info("> scheduled recompute finished")
	return nil
}

func setupLogFile(dir string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("cannot create log directory, logging to stdout")
		return
	}
	file, err := os.OpenFile(filepath.Join(dir, "allocation_refresh.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Warn("cannot open log file, logging to stdout")
		return
	}
	logger.SetOutput(file)
}

func main() {
	settings, err := dbconfig.Load()
	if err != nil {
		logger.Fatal("> failed to load settings: ", err)
	}
	dbconfig.InitLogger(settings.LogLevel, false)
	setupLogFile(settings.LogDir)

	db, err := dbconfig.InitDB(settings.DB)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("> database connection initialized")

	store := repository.New(db)
	log := logger.NewEntry(logger.StandardLogger())
	engine := allocation.NewEngine(store, settings.Allocation.Rates(), log)
	fm := business.NewFundManager(store, business.InlineRecomputer{Engine: engine}, log)
	if _, err := fm.EnsureOwner(context.Background(), settings.Allocation.OwnerID, settings.Allocation.OwnerName); err != nil {
		logger.Fatal("> failed to ensure owner: ", err)
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger.StandardLogger()))),
	)
	_, err = c.AddFunc(settings.Allocation.RecomputeCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := RefreshAllocations(ctx, fm, settings.Allocation.TrailingDays); err != nil {
			logger.Errorf("> scheduled recompute failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatal("> failed to add cron job: ", err)
	}

	c.Start()
	logger.Infof("> allocation refresh scheduled: %s", settings.Allocation.RecomputeCron)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	<-c.Stop().Done()
}

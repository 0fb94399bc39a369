package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/desastrosos/precipwatch/internal/api/http"
	"github.com/desastrosos/precipwatch/internal/collect"
	"github.com/desastrosos/precipwatch/internal/config"
	"github.com/desastrosos/precipwatch/internal/logger"
	"github.com/desastrosos/precipwatch/internal/provider"
	"github.com/desastrosos/precipwatch/internal/scheduler"
	"github.com/desastrosos/precipwatch/internal/store"
)

const appName = "precipwatch"

type runMode int

const (
	modeSingle runMode = iota + 1
	modeDay
	modeHours
	modeForever
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := logger.New(appName)
	defer l.Stop()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	weatherClient := provider.NewWeatherAPIClient(
		httpClient, cfg.WeatherAPIKey, cfg.Location, cfg.WeatherAPIBaseURL, l)
	accuClient := provider.NewAccuWeatherClient(
		httpClient, cfg.AccuWeatherAPIKey, cfg.AccuWeatherLocationKey, cfg.AccuWeatherBaseURL, l)

	collector := collect.New(weatherClient, accuClient, store.New(l), collect.Config{
		OutputFile:   cfg.OutputFile,
		ForecastDays: cfg.ForecastDays,
		HistoryDays:  cfg.HistoryDays,
		HistoryPause: 100 * time.Millisecond,
	}, l)

	mode, hours, err := chooseMode(os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("invalid run mode: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case modeSingle:
		if err := collector.RunOnce(ctx); err != nil {
			l.Error(err)
			os.Exit(1)
		}
	case modeDay:
		runRecurring(ctx, cfg, collector, l, 24*time.Hour)
	case modeHours:
		runRecurring(ctx, cfg, collector, l, time.Duration(hours)*time.Hour)
	case modeForever:
		runRecurring(ctx, cfg, collector, l, 0)
	}
}

// runRecurring keeps collection cycles going for total (0 means until a
// termination signal), with the status HTTP server up alongside.
func runRecurring(ctx context.Context, cfg *config.AppConfig, collector *collect.Collector, l *logger.Logger, total time.Duration) {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	httpapi.RegisterRoutes(app, collector)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			l.Error(fmt.Errorf("status server stopped: %w", err))
		}
	}()

	runner := scheduler.New(collector, cfg.FetchInterval, l)

	var err error
	if total > 0 {
		err = runner.RunFor(ctx, total)
	} else {
		err = runner.RunForever(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		l.Error(fmt.Errorf("error during shutdown: %w", err))
	}
}

// chooseMode picks the run mode from the command line, or interactively when
// no argument is given.
func chooseMode(args []string, in io.Reader, out io.Writer) (runMode, int, error) {
	if len(args) > 0 {
		return parseMode(args[0], args[1:], nil)
	}

	fmt.Fprintln(out, "Precipitation collector")
	fmt.Fprintln(out, "  1) Run a single collection cycle")
	fmt.Fprintln(out, "  2) Collect hourly for 24 hours")
	fmt.Fprintln(out, "  3) Collect hourly for a custom number of hours")
	fmt.Fprintln(out, "  4) Collect hourly until interrupted")
	fmt.Fprint(out, "Choose an option [1-4]: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return 0, 0, errors.New("no option selected")
	}
	return parseMode(strings.TrimSpace(scanner.Text()), nil, func() (string, error) {
		fmt.Fprint(out, "How many hours? ")
		if !scanner.Scan() {
			return "", errors.New("no hour count given")
		}
		return strings.TrimSpace(scanner.Text()), nil
	})
}

func parseMode(choice string, rest []string, askHours func() (string, error)) (runMode, int, error) {
	switch choice {
	case "1":
		return modeSingle, 0, nil
	case "2":
		return modeDay, 0, nil
	case "3":
		var hoursStr string
		switch {
		case len(rest) > 0:
			hoursStr = rest[0]
		case askHours != nil:
			var err error
			if hoursStr, err = askHours(); err != nil {
				return 0, 0, err
			}
		default:
			return 0, 0, errors.New("option 3 needs an hour count, e.g. \"3 6\"")
		}
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			return 0, 0, fmt.Errorf("invalid hour count %q", hoursStr)
		}
		return modeHours, hours, nil
	case "4":
		return modeForever, 0, nil
	}
	return 0, 0, fmt.Errorf("unknown option %q", choice)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/star/orbtrack/internal/metrics"
	"github.com/star/orbtrack/internal/passes"
	"github.com/star/orbtrack/internal/propagation"
	"github.com/star/orbtrack/internal/tle"
	"github.com/star/orbtrack/internal/transform"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := loadConfig()

	if cfg.GetString("tle_file") == "" {
		logger.Error("ORBTRACK_TLE_FILE is required")
		os.Exit(1)
	}

	f, err := os.Open(cfg.GetString("tle_file"))
	if err != nil {
		logger.Error("opening element file", "error", err)
		os.Exit(1)
	}
	bodies, err := tle.Parse(f, logger)
	f.Close()
	if err != nil {
		logger.Error("parsing element file", "error", err)
		os.Exit(1)
	}
	if len(bodies) == 0 {
		logger.Error("element file holds no usable entries", "file", cfg.GetString("tle_file"))
		os.Exit(1)
	}
	bodies = filterBodies(bodies, cfg.GetIntSlice("norad"))
	if len(bodies) == 0 {
		logger.Error("no element sets left after NORAD filtering")
		os.Exit(1)
	}
	metrics.SetDatasetBodies(len(bodies))

	store := tle.NewStore()
	store.Set(datasetFrom(cfg.GetString("tle_file"), bodies))
	ds := store.Get()
	logger.Info("loaded element sets",
		"count", len(ds.Bodies),
		"epoch_min", ds.EpochRange.Min.Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
		"age_seconds", store.AgeSeconds(),
	)

	model, err := propagation.ParseModel(cfg.GetString("model"))
	if err != nil {
		logger.Error("invalid model", "model", cfg.GetString("model"), "error", err)
		os.Exit(1)
	}

	start := time.Now().UTC()
	if v := cfg.GetString("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			logger.Error("invalid start time, want RFC3339", "start", v, "error", err)
			os.Exit(1)
		}
	}
	end := start.Add(time.Duration(cfg.GetFloat64("hours") * float64(time.Hour)))

	obs := transform.NewObserver(
		cfg.GetFloat64("lat"),
		cfg.GetFloat64("lon"),
		cfg.GetFloat64("alt_m"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cfg.GetString("metrics_addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		go func() {
			logger.Info("metrics listener up", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener", "error", err)
			}
		}()
	}

	req := passes.Request{
		Observer: obs,
		Bodies:   bodies,
		Model:    model,
		Start:    start,
		End:      end,
		Config: passes.Config{
			HorizonDeg:       cfg.GetFloat64("horizon_deg"),
			TwilightDeg:      cfg.GetFloat64("twilight_deg"),
			VisibleOnly:      cfg.GetBool("visible_only"),
			GeometricHorizon: cfg.GetBool("geometric_horizon"),
			Backdate:         cfg.GetBool("backdate"),
			Interval:         time.Duration(cfg.GetInt("interval_sec")) * time.Second,
		},
	}

	logger.Info("predicting passes",
		"bodies", len(bodies),
		"model", model.String(),
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
	)

	results := passes.Predict(ctx, req)
	printResults(results)
}

func loadConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ORBTRACK")
	v.AutomaticEnv()

	v.SetDefault("tle_file", "")
	v.SetDefault("norad", []int{})
	v.SetDefault("model", "model")
	v.SetDefault("start", "")
	v.SetDefault("hours", 24.0)
	v.SetDefault("lat", 0.0)
	v.SetDefault("lon", 0.0)
	v.SetDefault("alt_m", 0.0)
	v.SetDefault("horizon_deg", 0.0)
	v.SetDefault("twilight_deg", -6.0)
	v.SetDefault("visible_only", false)
	v.SetDefault("geometric_horizon", false)
	v.SetDefault("backdate", false)
	v.SetDefault("interval_sec", 60)
	v.SetDefault("metrics_addr", "")

	return v
}

func filterBodies(bodies []*tle.ElementSet, ids []int) []*tle.ElementSet {
	if len(ids) == 0 {
		return bodies
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*tle.ElementSet
	for _, b := range bodies {
		if want[b.NORADID] {
			out = append(out, b)
		}
	}
	return out
}

func datasetFrom(source string, bodies []*tle.ElementSet) *tle.Dataset {
	ds := &tle.Dataset{
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Bodies:   bodies,
	}
	ds.EpochRange.Min = bodies[0].Epoch()
	ds.EpochRange.Max = bodies[0].Epoch()
	for _, b := range bodies[1:] {
		if b.Epoch().Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = b.Epoch()
		}
		if b.Epoch().After(ds.EpochRange.Max) {
			ds.EpochRange.Max = b.Epoch()
		}
	}
	return ds
}

func printResults(results []passes.BodyPasses) {
	total := 0
	for _, body := range results {
		name := body.Name
		if name == "" {
			name = fmt.Sprintf("NORAD %d", body.NORADID)
		}
		if body.Error != "" {
			fmt.Printf("%s: ERROR %s\n", name, body.Error)
			continue
		}
		fmt.Printf("%s: %d passes\n", name, len(body.Passes))
		total += len(body.Passes)

		for _, p := range body.Passes {
			rise, set := p.Rise(), p.Set()
			fmt.Printf("  %s  rise az %5.1f  |  max el %4.1f at %s  |  set %s az %5.1f  (%s)\n",
				rise.Time.Format("2006-01-02 15:04:05"),
				rise.AzimuthDeg,
				p.MaxElevation(),
				p.Culmination.Format("15:04:05"),
				set.Time.Format("15:04:05"),
				set.AzimuthDeg,
				set.Time.Sub(rise.Time).Round(time.Second),
			)
			for _, e := range p.Events {
				switch e.Kind {
				case passes.EventRise, passes.EventMax, passes.EventSet:
					continue
				case passes.EventAppulse:
					fmt.Printf("    %s  appulse %.2f deg from %s\n",
						e.Time.Format("15:04:05"), e.SeparationDeg, e.Body)
				default:
					fmt.Printf("    %s  %s (el %.1f)\n",
						e.Time.Format("15:04:05"), e.Kind, e.ElevationDeg)
				}
			}
		}
	}
	fmt.Printf("\ntotal passes: %d\n", total)
}

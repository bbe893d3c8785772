package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/periscope-sim/periscope/pkg/config"
	"github.com/periscope-sim/periscope/pkg/ingress"
	"github.com/periscope-sim/periscope/pkg/region"
	"github.com/periscope-sim/periscope/pkg/scene"
	"github.com/periscope-sim/periscope/pkg/version"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/zerolog/log"
)

func serveCommand(configs []string) error {
	config, err := config.Process(configs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load periscope configuration")
	}

	if config.Sentry.DSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         config.Sentry.DSN,
			Environment: config.Sentry.Environment,
			Release:     version.Version,
		})
		if err != nil {
			return fmt.Errorf("could not initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if config.Stats.Enabled {
		// Configuration must be set before statsview.New.
		viewer.SetConfiguration(viewer.WithAddr(config.Stats.Addr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
		log.Info().Msgf("runtime stats on http://%s/debug/statsview", config.Stats.Addr)
	}

	tuning, err := config.Movement.Tuning()
	if err != nil {
		return err
	}

	master, err := config.Region.MasterID()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	regionConfig := config.Region
	world := scene.NewRegion(
		regionConfig.Size,
		regionConfig.TerrainHeight,
		regionConfig.WaterHeight,
	)

	sim := region.New(ctx, world, region.Options{
		Size:          float32(regionConfig.Size),
		Tuning:        tuning,
		QueueCapacity: config.Server.EventQueue,
		Master:        master,
	})

	wsIngress := ingress.NewWSIngress(sim)
	go wsIngress.Watch(ctx, world.Animations.Subscribe(), world.Objects.Subscribe())

	sim.Start()

	log.Info().
		Int("size", regionConfig.Size).
		Str("tick", tuning.TickPeriod.String()).
		Str("master", master.String()).
		Msg("region started")

	errc := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws/", wsIngress)
		mux.Handle("/api/", statusHandler(sim, wsIngress))

		errc <- http.ListenAndServe(
			fmt.Sprintf("0.0.0.0:%d", config.Server.Ingress.Web.Port),
			mux,
		)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	var result error
	select {
	case err := <-errc:
		log.Error().Err(err).Msg("failed to serve")
		result = err
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	case <-sim.Scheduler.Done():
		result = sim.Scheduler.Err()
		if result == nil {
			result = fmt.Errorf("scheduler stopped unexpectedly")
		}
	}

	sim.Shutdown()
	return result
}

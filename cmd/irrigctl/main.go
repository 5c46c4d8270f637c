package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/irrigctl/internal/config"
	"github.com/danmuck/irrigctl/internal/environment"
	"github.com/danmuck/irrigctl/internal/observability"
	"github.com/danmuck/irrigctl/internal/taskmaster"
	"github.com/danmuck/irrigctl/internal/valve"
)

func main() {
	configPath := flag.String("config", "irrigctl.toml", "path to controller config")
	flag.Parse()

	observability.InitLogger("irrigctl")

	cfg, err := config.LoadControllerConfig(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Msg("controller config is unusable")
		}
		log.Warn().Str("path", *configPath).Msg("no config file, using defaults")
		cfg = config.DefaultControllerConfig()
	}

	// Registering the taskmaster pulls in the calendar, logbook, and valve
	// services through its kit before its own construction finishes.
	env, ed := environment.Bootstrap()
	environment.Register(ed, taskmaster.Start(cfg))
	env.FinishBootstrap()
	log.Info().Str("name", cfg.Name).Strs("services", env.Services()).Msg("bootstrap complete")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	th := environment.Exclusive[*taskmaster.Taskmaster](env)
	th.Value().Stop()
	th.Release()

	vh := environment.Exclusive[*valve.Valves](env)
	vh.Value().ReleaseLines()
	vh.Release()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"podcastapi/internal/app/podcastapi"
	"podcastapi/internal/configs"
)

var opts struct {
	Conf   string `short:"c" long:"conf" env:"PODCASTAPI_CONF" default:"podcastapi.yml" description:"config file (yml)"`
	Listen string `short:"l" long:"listen" env:"PODCASTAPI_LISTEN" description:"listen address, overrides config"`
	DB     string `short:"d" long:"db" env:"PODCASTAPI_DB" description:"database dsn, overrides config"`
	Dbg    bool   `long:"dbg" env:"DEBUG" description:"show debug info"`
}

func checkFileExists(filepath string) bool {
	if _, err := os.Stat(filepath); errors.Is(err, os.ErrNotExist) {
		return false
	}

	return true
}

func setupLog(dbg bool) {
	if dbg {
		log.Setup(log.Debug, log.CallerFile, log.CallerFunc, log.Msec, log.LevelBraces)
		return
	}
	log.Setup(log.Msec, log.LevelBraces)
}

func main() {
	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		p.WriteHelp(os.Stderr)
		os.Exit(2)
	}
	setupLog(opts.Dbg)

	configFile := opts.Conf
	if !checkFileExists(configFile) {
		configFile = "configs/podcastapi.yml"

		if !checkFileExists(configFile) {
			log.Fatalf("[ERROR] config file not found")
		}
	}

	conf, err := configs.Load(configFile)
	if err != nil {
		log.Fatalf("[ERROR] can't load config %s, %v", configFile, err)
	}
	if opts.Listen != "" {
		conf.Server.Listen = opts.Listen
	}
	if opts.DB != "" {
		conf.Database.DSN = opts.DB
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := podcastapi.NewApplication(ctx, conf)
	if err != nil {
		log.Fatalf("[ERROR] can't create app, %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("[WARN] close app, %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("[ERROR] server failed, %v", err)
	}
}

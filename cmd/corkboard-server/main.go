// Copyright (c) 2020 Ofte LLC,
// subject to the terms and conditions defined in the file LICENSE

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	corkboard "github.com/corkboard-io/corkboard/api/http"
	"github.com/corkboard-io/corkboard/internal"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/geo"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/service"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/fraugster/cli"
	"github.com/micro/go-micro/v2/broker"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		err    error
		dbConn db.DB
	)
	fmt.Println(internal.VersionVerbose())

	util.InitConfig()
	settings, err := util.LoadSettings()
	if err != nil {
		log.WithError(err).Error("Invalid configuration, exiting")
		os.Exit(1)
	}
	util.InitLogging(settings)
	ctx := cli.Context()

	err = util.Retry(10, 250*time.Millisecond, func() error {
		dbConn, err = db.GetConnection(settings)
		if err != nil {
			log.WithError(err).WithField("service", settings.AppName).Warning("Error connecting to db, retrying")
		}
		return err
	})
	if err != nil {
		log.WithError(err).WithField("service", settings.AppName).Warning("Unable to connect to db, exiting")
		os.Exit(1)
	}
	if err = model.Migrate(dbConn); err != nil {
		log.WithError(err).Error("Migrating database, exiting")
		os.Exit(1)
	}

	options := []func(*corkboard.Handler) error{
		corkboard.OptionDB(dbConn),
		corkboard.OptionSettings(settings),
		corkboard.OptionIPAddress(settings.HTTPAddress),
		corkboard.OptionHTTPPort(settings.HTTPPort),
		corkboard.OptionTLS(settings.TLSCertificateFile, settings.TLSPrivateKeyFile),
		corkboard.OptionParams(service.ParamAuditTopicPrefix, settings.AppName),
	}

	if settings.GeoIPDatabase != "" {
		geoResolver, err := geo.NewGeoLiteResolver(settings.GeoIPDatabase, geo.DefaultCacheSize)
		if err != nil {
			log.WithError(err).Error("Opening geoip database, exiting")
			os.Exit(1)
		}
		options = append(options, corkboard.OptionGeoResolver(geoResolver))
	}

	if settings.BrokerAddress != "" {
		messageBroker := broker.NewBroker(broker.Addrs(settings.BrokerAddress))
		err = util.Retry(10, 250*time.Millisecond, func() error {
			if err := messageBroker.Init(); err != nil {
				return err
			}
			return messageBroker.Connect()
		})
		if err != nil {
			log.WithError(err).Warning("Unable to connect to message broker, audit events stay local")
		} else {
			options = append(options, corkboard.OptionMessageBroker(messageBroker))
		}
	}

	httpService, err := corkboard.NewAPIHandler(ctx, options...)
	if err != nil {
		panic(err)
	}
	httpService.Init()
	go func() {
		err := httpService.Start()
		if err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err = httpService.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warning("Shutting down http handler")
	}
	_ = httpService.Stop()
}

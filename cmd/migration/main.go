// Copyright (c) 2020 Ofte LLC,
// subject to the terms and conditions defined in the file LICENSE

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/corkboard-io/corkboard/internal"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/util"
	log "github.com/sirupsen/logrus"
)

// Migrates the corkboard database tables and indexes.
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

	err = util.Retry(10, 250*time.Millisecond, func() error {
		dbConn, err = db.GetConnection(settings)
		if err != nil {
			log.WithError(err).WithField("service", "migration").Warning("Error connecting to db, retrying")
		}
		return err
	})
	if err != nil {
		log.WithError(err).WithField("service", "migration").Warning("Unable to connect to db, exiting")
		os.Exit(1)
	}
	defer func() {
		_ = db.CloseConnection(dbConn)
	}()

	err = model.Migrate(dbConn)
	if err != nil {
		panic(err)
	}

	fmt.Println("Migrate succeeded")
}

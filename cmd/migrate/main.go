package main

import (
	"flag"

	logger "github.com/sirupsen/logrus"

	"profitpool/pkg/config"
)

func main() {
	down := flag.Bool("down", false, "roll back the last migration")
	dir := flag.String("dir", "migrations", "directory holding the *.sql migrations")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load settings: ", err)
	}
	config.InitLogger(settings.LogLevel, false)

	// schema is owned by the migrations here
	settings.DB.AutoMigrate = false
	db, err := config.InitDB(settings.DB)
	if err != nil {
		logger.Fatal(err)
	}

	if *down {
		err = config.RollbackMigration(db, *dir)
	} else {
		err = config.ExecuteMigrations(db, *dir)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

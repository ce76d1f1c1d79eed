package main

import (
	"fmt"
	"time"

	"tradejournal/cmd/journal"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	config := journal.GetConfig()
	journal.SetupLogger(config)
	defer handlePanic(config.AppName)

	if err := journal.Connect(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	if err := journal.Serve(); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func handlePanic(appName string) {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", appName))
		//nolint
		time.Sleep(time.Second * 5)
	}
}

package main

import (
	"net/http"
	"time"

	"github.com/ndiayeb/passation-service/internal/db"
	"github.com/ndiayeb/passation-service/internal/handlers"
	"github.com/ndiayeb/passation-service/internal/notifier"
	"github.com/ndiayeb/passation-service/internal/repository"
	"github.com/ndiayeb/passation-service/internal/router"
	"github.com/ndiayeb/passation-service/internal/router/config"
	"github.com/ndiayeb/passation-service/internal/services"
	"github.com/ndiayeb/passation-service/internal/seuils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.WithError(err).Fatal("cannot load config")
	}

	runDBMigration(logger, cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		logger.WithError(err).Fatal("error initializing database")
	}
	defer dbPool.Close()

	bareme := seuils.NewBaremeDefaut()
	if cfg.SeuilCotation > 0 && cfg.SeuilCompetition > 0 && cfg.SeuilAppelOffres > 0 {
		bareme = seuils.NewBareme(cfg.SeuilCotation, cfg.SeuilCompetition, cfg.SeuilAppelOffres)
	}

	var email notifier.EmailSender
	if cfg.SMTPHost != "" {
		email = notifier.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}

	marcheRepo := repository.NewPostgresMarcheRepository(dbPool)
	soumissionnaireRepo := repository.NewPostgresSoumissionnaireRepository(dbPool)
	annuaireRepo := repository.NewPostgresAnnuaireRepository(dbPool)

	notificationService := services.NewNotificationService(annuaireRepo, email, logger, 10*time.Second)
	marcheService := services.NewMarcheService(marcheRepo, soumissionnaireRepo, notificationService, bareme, logger)
	soumissionnaireService := services.NewSoumissionnaireService(soumissionnaireRepo, marcheRepo, logger)

	marcheHandler := handlers.NewMarcheHandler(marcheService, logger, 5*time.Second)
	soumissionnaireHandler := handlers.NewSoumissionnaireHandler(soumissionnaireService, logger, 5*time.Second)

	routes := router.InitRoutes(marcheHandler, soumissionnaireHandler)

	logger.Infof("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		logger.WithError(err).Fatal("server failed")
	}
}

func runDBMigration(logger *logrus.Logger, migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.WithError(err).Fatal("cannot create a new migrate instance")
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		logger.WithError(err).Fatal("failed to run migrate up")
	}
	logger.Info("db migrated successfully")
}

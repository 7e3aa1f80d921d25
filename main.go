package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/internal/database"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/server"
	"github.com/mailgrove/mailgrove/services/events"
	"github.com/mailgrove/mailgrove/services/storage"
	"github.com/mailgrove/mailgrove/services/threading"
)

func main() {
	app := &cli.App{
		Name:  "mailgrove",
		Usage: "conversation threading engine",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(c *cli.Context) error {
					cfg, db, err := setup()
					if err != nil {
						return err
					}
					if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
						return err
					}
					log.Println("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the application server",
				Action: func(c *cli.Context) error {
					cfg, db, err := setup()
					if err != nil {
						return err
					}

					log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
					log.Println("Mailgrove starting up...")

					srv, err := server.NewServer(cfg, db)
					if err != nil {
						return err
					}
					if err := srv.Run(); err != nil {
						return err
					}

					log.Println("Shutdown complete")
					return nil
				},
			},
			{
				Name:  "rebuild",
				Usage: "Rebuild one user's conversations from stored emails",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "user id whose conversations to rebuild",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					cfg, db, err := setup()
					if err != nil {
						return err
					}

					appLogger := logger.NewAppLogger(cfg.Logger)
					appLogger.InitLogger()

					attachmentStorage := storage.NewS3StorageService(cfg.S3StorageConfig)
					repos := repository.InitRepositories(db, attachmentStorage)

					threadingService := threading.NewThreadingService(appLogger, repos, events.NewNoopPublisher(), cfg.ThreadingConfig)
					refiled, err := threadingService.Rebuild(context.Background(), c.String("user"))
					if err != nil {
						return err
					}
					log.Printf("Rebuild complete, refiled %d emails", refiled)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, nil, err
	}

	return cfg, db, nil
}

package main

import (
	"context"
	"database/sql"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/docuflow/docuflow/pkg/cmd"
	"github.com/docuflow/docuflow/pkg/engine"
	"github.com/docuflow/docuflow/pkg/log"
	"github.com/docuflow/docuflow/pkg/otelhelper"
	"github.com/docuflow/docuflow/pkg/persistence/postgresql"
	"github.com/docuflow/docuflow/pkg/secrets"
)

const defaultPort = 8080

const defaultWorkers = 8

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "docuflow-api",
		Usage:                 "Manage and execute document workflow templates",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Storage URL (file://path or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "variables-url",
				Usage:   "Optional redis URL serving workflow variables (redis://...)",
				Sources: cli.EnvVars("VARIABLES_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.IntFlag{
				Name:    "max-workers",
				Usage:   "Maximum concurrent workflow executions",
				Value:   defaultWorkers,
				Sources: cli.EnvVars("MAX_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "encryption-key",
				Usage:   "Base64 32-byte key for encrypted variables",
				Sources: cli.EnvVars("ENCRYPTION_KEY"),
			},
			&cli.StringFlag{
				Name:    "smtp-addr",
				Usage:   "SMTP host:port for email nodes",
				Sources: cli.EnvVars("SMTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "From address for email nodes",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Docuflow API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var db *sql.DB
			if pg, ok := store.(*postgresql.Persistence); ok {
				db = pg.DB()
			}

			if redisURL := command.String("variables-url"); redisURL != "" {
				withRedis, err := cmd.WithRedisVariables(store, redisURL, logger)
				if err != nil {
					return err
				}

				store = withRedis
			}

			reg := cmd.NewRegistry(logger, db, cmd.MailerConfig{
				Addr:     command.String("smtp-addr"),
				From:     command.String("smtp-from"),
				Username: command.String("smtp-username"),
				Password: command.String("smtp-password"),
			})

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			opts := []engine.Option{
				engine.WithMaxWorkers(command.Int("max-workers")),
			}

			var box *secrets.Box

			if key := command.String("encryption-key"); key != "" {
				var err error

				box, err = secrets.NewBox(key)
				if err != nil {
					return err
				}

				opts = append(opts, engine.WithSecretBox(box))
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "docuflow-api")
				if err != nil {
					return err
				}

				opts = append(opts, engine.WithTracer(tracer))
			}

			eng := engine.NewEngine(store, reg, eventBus, opts...)

			api := NewAPI(logger, store, reg, eng, box)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

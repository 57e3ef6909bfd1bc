package main

import (
	"context"
	"fmt"
	"ithakabot/internal/app"
	"ithakabot/internal/cache"
	"ithakabot/internal/config"
	"ithakabot/internal/llm"
	"ithakabot/internal/logging"
	"ithakabot/internal/notify"
	"ithakabot/internal/repository"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	dbPath         string
	conversationID string
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Fill in an Ithaka application from the terminal",
	Long: `Start an interactive session with the application wizard.

Progress is stored in a local SQLite file, so running again with the same
--conversation resumes where you left off. Type 'guardar' to pause,
'volver' to go back and 'cancelar' to stop. Ctrl+D exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("db") {
			cfg.SQLitePath = dbPath
		}
		cfg.Log.Level = logLevel

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		generator, err := llm.New(ctx, cfg.AI, nil)
		if err != nil {
			return err
		}

		a := app.New(app.Deps{
			Config:       cfg,
			Logger:       logger,
			Sessions:     store,
			Applications: store,
			Locker:       cache.NewLocalLocker(),
			Notifier:     notify.NewLogNotifier(logger.Named("notify")),
			Generator:    generator,
		})

		if conversationID == "" {
			conversationID = "cli-" + uuid.New().String()[:8]
		}
		r := newREPL(a.Chat, conversationID, cmd.OutOrStdout())
		return r.Run(ctx, generator != nil)
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", "ithaka.db", "SQLite database file")
	rootCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation to resume (default: a new one)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"ithakabot/internal/config"
	"ithakabot/internal/repository"
	"log"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the MongoDB indexes the intake service relies on",
	Long: `Create the MongoDB indexes the intake service relies on.

Safe to run repeatedly. Uses MONGO_URI and MONGO_DATABASE, or the file named
by INTAKE_CONFIG.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("connect to MongoDB: %w", err)
		}
		defer client.Disconnect(context.Background())

		if err := repository.EnsureIndexes(ctx, client.Database(cfg.Mongo.Database)); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexes ready in %s\n", cfg.Mongo.Database)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/cmd/buildCFG"
	"campusconnect/internal/repo"
	"campusconnect/internal/seed"
)

// withRepository opens the configured Mongo database for one operator
// command.
func withRepository(ctx context.Context, opts *rootOptions, fn func(repo.Repository) error) error {
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load(opts.configPath, "", "CAMPUS"); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	mongoCfg := buildCFG.BuildMongoConfig(cfg, &log)
	if !mongoCfg.Enabled() {
		return errors.New("mongo.uri is required for operator commands")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoCfg.URI))
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()

	r, err := repo.NewRepository(ctx, client, mongoCfg.Database, &log)
	if err != nil {
		return err
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		return err
	}
	return fn(r)
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace events and students with demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepository(cmd.Context(), opts, func(r repo.Repository) error {
				log := zlog.Logger
				res, err := seed.Run(cmd.Context(), r, time.Now(), &log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events, %d students, %d admins\n", res.Events, res.Students, res.Admins)
				return nil
			})
		},
	}
}

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	var name string
	reset := &cobra.Command{
		Use:   "reset <adminId> <password>",
		Short: "Create an admin or reset its password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), opts, func(r repo.Repository) error {
				if err := seed.UpsertAdmin(cmd.Context(), r, seed.Account{ID: args[0], Name: name, Password: args[1]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready\n", args[0])
				return nil
			})
		},
	}
	reset.Flags().StringVar(&name, "name", "", "display name")
	cmd.AddCommand(reset)
	return cmd
}

func newStudentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Manage student accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <srn> <name> <password>",
		Short: "Create a student or reset its password",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), opts, func(r repo.Repository) error {
				if err := seed.UpsertStudent(cmd.Context(), r, seed.Account{ID: args[0], Name: args[1], Password: args[2]}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "student %s ready\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

package main

import (
	"appointment-agent/internal/bootstrap"
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sign in and retry until a slot on or before the target date is found",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}

			app := bootstrap.NewApp()
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancelStart := context.WithTimeout(cmd.Context(), app.StartTimeout())
			defer cancelStart()

			if err := app.Start(startCtx); err != nil {
				return err
			}

			signal := <-app.Wait()

			stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancel()

			if err := app.Stop(stopCtx); err != nil {
				return err
			}

			if signal.ExitCode != 0 {
				return fmt.Errorf("agent exited with code %d", signal.ExitCode)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	return cmd
}

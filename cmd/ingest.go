package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ingestConcurrency int

var ingestCmd = &cobra.Command{
	Use:   "ingest <image-file>...",
	Short: "Ingest equation images and print their equation IDs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(ingestConcurrency)

		for _, path := range args {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				eq, err := env.Pipeline.Ingest(ctx, data)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}

				fmt.Printf("%s\t%s\t%s\n", eq.ID, path, eq.Formula)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("ingest batch complete", zap.Int("images", len(args)))
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 4, "max images ingested in parallel")
	rootCmd.AddCommand(ingestCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"soundwave/config"
	"soundwave/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check the object storage connection",
	Long:  `Connect to the configured MinIO endpoint, ensure the bucket exists, and print object stats`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		store, err := storage.NewStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "MinIO connection failed: %v\n", err)
			os.Exit(1)
		}

		count, totalSize, err := store.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read bucket stats: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Bucket %q: %d objects, %d bytes total\n", cfg.MinioBucket, count, totalSize)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}

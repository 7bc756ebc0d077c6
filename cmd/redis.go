package cmd

import (
	"fmt"
	"os"

	"soundwave/cache"
	"soundwave/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := cache.ConnectRedis(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer cache.CloseRedis()

		if err := cache.TestRedis(); err != nil {
			fmt.Fprintf(os.Stderr, "Redis test failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Redis connection OK")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}

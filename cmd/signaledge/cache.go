package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheSource string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the price cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached price series",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, log, err := newApp()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer a.Close()

		if err := a.ClearCache(cmd.Context(), cacheSource); err != nil {
			return err
		}
		if cacheSource == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Price cache cleared")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %s prices cleared\n", cacheSource)
		}
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheSource, "source", "", "only clear entries from this source")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
)

var describeCmd = &cobra.Command{
	Use:   "describe <description>",
	Short: "Find catalog items similar to a free-text description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Detector.SearchByDescription(cmd.Context(), model.DescriptionSearch{
			Options: searchOptions(),
			Query:   strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		return printResult(os.Stdout, result)
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range <fromId> <toId>",
	Short: "Scan an id range for duplicates across the whole catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("fromId: %w", err)
		}
		to, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("toId: %w", err)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Detector.SearchByRange(cmd.Context(), model.RangeSearch{
			Options: searchOptions(),
			FromID:  from,
			ToID:    to,
		}, progressPrinter(os.Stderr))
		if err != nil {
			return err
		}
		return printResult(os.Stdout, result)
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category <name>",
	Short: "Cluster the items of one category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Detector.SearchByCategory(cmd.Context(), model.CategorySearch{
			Options:  searchOptions(),
			Category: args[0],
		})
		if err != nil {
			return err
		}
		return printResult(os.Stdout, result)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd, rangeCmd, categoryCmd)
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/llm"
)

const loadBatchSize = 500

var loadCmd = &cobra.Command{
	Use:   "load <items.jsonl>",
	Short: "Upsert catalog items from a JSON-lines file",
	Long: `load reads one catalog item per line ({"id":1,"code":"...","description":"...",
"brand":"...","category":"...","active":true,"embedding":[...]}) and upserts
them by id. With --embed, items without an embedding are embedded with the
configured provider first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := readItems(f)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if embed, _ := cmd.Flags().GetBool("embed"); embed {
			if a.Embedder == nil {
				return fmt.Errorf("--embed needs a configured embedding provider")
			}
			workers, _ := cmd.Flags().GetInt("workers")
			if err := embedMissing(cmd.Context(), a.Embedder, a.Config.LLM.EmbeddingModel, items, workers); err != nil {
				return err
			}
		}

		for start := 0; start < len(items); start += loadBatchSize {
			end := min(start+loadBatchSize, len(items))
			if err := a.Catalog.Upsert(cmd.Context(), items[start:end]); err != nil {
				return err
			}
		}

		color.Green("loaded %d item(s)", len(items))
		return nil
	},
}

func init() {
	loadCmd.Flags().Bool("embed", false, "embed items that have no embedding")
	loadCmd.Flags().Int("workers", 4, "concurrent embedding calls")
	rootCmd.AddCommand(loadCmd)
}

// readItems parses JSON lines; blank lines are skipped. Items without an
// explicit "active" field are active.
func readItems(r io.Reader) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		item := model.CatalogItem{Active: true}
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if item.ID < 1 {
			return nil, fmt.Errorf("line %d: id must be >= 1", line)
		}
		items = append(items, item)
	}
	return items, scanner.Err()
}

func embedMissing(ctx context.Context, embedder llm.EmbedderClient, modelName string, items []model.CatalogItem, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range items {
		if items[i].HasEmbedding() || items[i].Description == "" {
			continue
		}
		item := &items[i]
		g.Go(func() error {
			vec, err := embedder.Embed(ctx, item.Description)
			if err != nil {
				return fmt.Errorf("embed item %d: %w", item.ID, err)
			}
			item.Embedding = vec
			item.EmbeddingModel = modelName
			return nil
		})
	}
	return g.Wait()
}

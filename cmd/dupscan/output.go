package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
)

var (
	headerColor    = color.New(color.FgCyan, color.Bold)
	confirmedColor = color.New(color.FgGreen)
	possibleColor  = color.New(color.FgYellow)
	dimColor       = color.New(color.Faint)
)

func printResult(w io.Writer, result *model.Result) error {
	if viper.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	headerColor.Fprintf(w, "%d group(s), %d item(s)", result.Summary.GroupCount, result.Summary.DuplicateCount)
	dimColor.Fprintf(w, "  threshold=%.2f validation=%t %.1fs\n",
		result.Config.Threshold, result.Config.ValidationUsed, result.Config.ElapsedSeconds)

	for _, g := range result.Groups {
		fmt.Fprintln(w)
		statusColor := possibleColor
		if g.Status == model.StatusConfirmed {
			statusColor = confirmedColor
		}
		statusColor.Fprintf(w, "Group %d [%s]", g.ID, g.Status)
		if g.Confidence != nil {
			fmt.Fprintf(w, " confidence %.0f", *g.Confidence)
		}
		fmt.Fprintln(w)
		if g.Rationale != nil && *g.Rationale != "" {
			dimColor.Fprintf(w, "  %s\n", *g.Rationale)
		}
		for _, it := range g.Items {
			fmt.Fprintf(w, "  %6.3f  #%-8d %-12s %s\n", it.SimilarityToAnchor, it.ID, it.Code, it.Description)
		}
	}
	return nil
}

func progressPrinter(w io.Writer) func(model.ProgressEvent) {
	return func(p model.ProgressEvent) {
		fmt.Fprintf(w, "\rscanning %d/%d (%.0f%%)", p.Current, p.Total, p.Percentage)
		if p.Current == p.Total {
			fmt.Fprintln(w)
		}
	}
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trolleywise/backend/internal/infrastructure/store"
	"github.com/trolleywise/backend/internal/usecase"
)

var consolidateColumn string

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Interactively merge similar category strings",
	Long: `Reads the raw category strings from the resolution output and proposes
merges between similar ones. Each accepted or renamed merge is written to
the mapping file immediately, so a session can be quit and resumed at any
point.`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateColumn, "column", "category_4",
		"results column holding the category strings to consolidate")
	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	categories, err := store.LoadColumn(cfg.Files.Results, consolidateColumn)
	if err != nil {
		return err
	}

	persister := store.NewMappingStore(cfg.Files.Mappings, logger)
	consolidator := usecase.NewConsolidator(categories, persister,
		cfg.Matching.ConsolidationThreshold, logger)
	if err := consolidator.Restore(); err != nil {
		return err
	}

	prompt := color.New(color.FgCyan, color.Bold)
	pair := color.New(color.FgYellow)
	info := color.New(color.FgGreen)

	reader := bufio.NewScanner(os.Stdin)
	for {
		proposal, ok := consolidator.NextProposal()
		if !ok {
			info.Println("No similar pairs left. Consolidation finished.")
			break
		}

		fmt.Println()
		if proposal.Cluster != "" {
			pair.Printf("  %q\n", proposal.Category)
			fmt.Println("  looks like existing cluster")
			pair.Printf("  %q\n", proposal.Cluster)
		} else {
			pair.Printf("  %q\n  %q\n", proposal.Category, proposal.Other)
		}
		fmt.Printf("  similarity %.2f, suggested label %q\n", proposal.Similarity, proposal.Suggestion)
		prompt.Print("[a]ccept / [r]ename / [s]kip / [q]uit: ")

		if !reader.Scan() {
			break
		}

		switch strings.ToLower(strings.TrimSpace(reader.Text())) {
		case "a", "accept":
			if err := consolidator.Accept(proposal); err != nil {
				return err
			}
			info.Printf("merged under %q\n", proposal.Suggestion)
		case "r", "rename":
			prompt.Print("new label: ")
			if !reader.Scan() {
				return nil
			}
			label := strings.TrimSpace(reader.Text())
			if err := consolidator.Rename(proposal, label); err != nil {
				return err
			}
			info.Printf("merged under %q\n", label)
		case "s", "skip":
			consolidator.Skip(proposal)
		case "q", "quit":
			info.Println("Progress saved. Run consolidate again to resume.")
			return nil
		default:
			fmt.Println("unrecognised choice, skipping")
			consolidator.Skip(proposal)
		}
	}

	clusters := consolidator.Clusters()
	info.Printf("%d clusters over %d categories written to %s\n",
		len(clusters), len(consolidator.Mapping()), cfg.Files.Mappings)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotsetgreg/contextkit/pkg/config"
	"github.com/dotsetgreg/contextkit/pkg/memory"
)

func buildRootCommand() *cobra.Command {
	var showVersion bool
	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "Retrieval-augmented context assembly for LLM prompts",
		Long: strings.TrimSpace(`contextkit assembles bounded, budgeted context blocks for language model
prompts from a store of remembered facts, conversation summaries, excerpts
and entity relationships, with hybrid semantic search and MMR reranking.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("%s %s\n", appName, formatVersion())
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default <workspace>/config.json)")

	root.AddCommand(newContextCommand(&configPath))
	root.AddCommand(newSearchCommand(&configPath))
	root.AddCommand(newRememberCommand(&configPath))
	root.AddCommand(newReindexCommand(&configPath))
	root.AddCommand(newStatsCommand(&configPath))
	root.AddCommand(newReplCommand(&configPath))
	return root
}

func loadConfig(configPath string) (*config.Config, error) {
	path := configPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".contextkit", "config.json")
	}
	return config.LoadConfig(path)
}

// openEngine builds and initializes the engine from config. Callers must
// Close it.
func openEngine(ctx context.Context, configPath string) (*memory.Engine, *config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	engine, err := memory.NewEngine(memory.EngineOptions{
		Workspace: cfg.WorkspacePath(),
		Assembly:  cfg.MemorySettings(),
		Index:     cfg.IndexSettings(),
	})
	if err != nil {
		return nil, nil, err
	}
	engine.Initialize(ctx)
	return engine, cfg, nil
}

func newContextCommand(configPath *string) *cobra.Command {
	var agentID, query string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble the context block for an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cfg, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			if agentID == "" {
				agentID = cfg.AgentID
			}
			out := engine.Context(ctx, agentID, query)
			if out == "" {
				fmt.Println("(empty context)")
				return nil
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id (default from config)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Optional query for relevant-context expansion")
	return cmd
}

func newSearchCommand(configPath *string) *cobra.Command {
	var agentID, kind, entity, relation string
	var topK, days, depth int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries, conversations, summaries or the entity graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cfg, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			if agentID == "" {
				agentID = cfg.AgentID
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			opts := memory.SearchOptions{TopK: topK}
			search := engine.Search()

			switch kind {
			case "entries":
				for _, e := range search.SearchEntries(ctx, query, agentID, opts) {
					fmt.Printf("%s\t[%s]\t%s\n", e.ID, e.Type, e.Content)
				}
			case "conversations":
				for _, c := range search.SearchConversations(ctx, query, agentID, days, opts) {
					fmt.Printf("%s#%d\t%s: %s\n", c.ConversationID, c.ChunkIndex, c.Role, c.Content)
				}
			case "summaries":
				for _, s := range search.SearchSummaries(ctx, query, agentID, days, opts) {
					fmt.Printf("%s\t%s\t%s\n", s.ConversationAt, s.ConversationID, s.Summary)
				}
			case "graph":
				for _, g := range search.SearchGraph(ctx, entity, relation, depth) {
					fmt.Printf("%s\t(%s, depth %d)\n", g.Path, g.EntityType, g.Depth)
				}
			default:
				return fmt.Errorf("unknown search kind %q", kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id (default from config)")
	cmd.Flags().StringVar(&kind, "kind", "entries", "entries | conversations | summaries | graph")
	cmd.Flags().IntVar(&topK, "top", 5, "Max results")
	cmd.Flags().IntVar(&days, "days", 30, "Day window for conversation/summary fallback search")
	cmd.Flags().StringVar(&entity, "entity", "", "Entity name for graph search")
	cmd.Flags().StringVar(&relation, "relation", "", "Relation name for graph search")
	cmd.Flags().IntVar(&depth, "depth", 2, "Graph traversal depth (clamped to 1..4)")
	return cmd
}

func newRememberCommand(configPath *string) *cobra.Command {
	var agentID, entryType string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Store and index one memory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cfg, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			if agentID == "" {
				agentID = cfg.AgentID
			}
			entry, err := engine.Remember(ctx, memory.Entry{
				AgentID:    agentID,
				Type:       memory.EntryType(entryType),
				Content:    args[0],
				Confidence: confidence,
			})
			if err != nil {
				return err
			}
			fmt.Printf("remembered %s\n", entry.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id (default from config)")
	cmd.Flags().StringVar(&entryType, "type", string(memory.EntryFact), "fact | preference | decision | task")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.8, "Confidence in [0,1]")
	return cmd
}

func newReindexCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the semantic index from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, _, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			if err := engine.Reindex(ctx); err != nil {
				return err
			}
			fmt.Println("index rebuilt")
			return nil
		},
	}
}

func newStatsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, _, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer engine.Close()
			stats, err := engine.Store().Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("entries:       %d\n", stats.Entries)
			fmt.Printf("chunks:        %d\n", stats.Chunks)
			fmt.Printf("summaries:     %d\n", stats.Summaries)
			fmt.Printf("relationships: %d\n", stats.Relationships)
			fmt.Printf("user edits:    %d\n", stats.UserEdits)
			return nil
		},
	}
}

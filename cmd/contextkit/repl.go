package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// newReplCommand runs an interactive loop: each line becomes a query and the
// assembled query-aware context is printed, which is handy for tuning budgets
// and MMR settings against a live store.
func newReplCommand(configPath *string) *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively query the assembled context",
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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "query> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("init readline: %w", err)
			}
			defer rl.Close()

			fmt.Printf("contextkit repl, agent %q. Empty line shows the base context; /quit exits.\n", agentID)
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "/quit" || line == "/exit" {
					return nil
				}
				out := engine.Context(ctx, agentID, line)
				if out == "" {
					fmt.Println("(empty context)")
					continue
				}
				fmt.Println(out)
				fmt.Println()
			}
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id (default from config)")
	return cmd
}

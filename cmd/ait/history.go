package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ait/internal/config"
	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/render"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeRole(role string) string {
	switch role {
	case "user":
		return sColorBlue + role + sColorReset
	case "assistant":
		return sColorGreen + role + sColorReset
	default:
		return role
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

// tsvField flattens a value into a single TSV column.
func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func openDB() (*history.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := history.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return db, nil
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "List, show, search and delete stored chats",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historySearchCmd())
	cmd.AddCommand(historyDeleteCmd())
	return cmd
}

func historyListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored chats, newest first",
		Long: `Output is TSV: id, updatedAt, messages, model, title.
The first field is the full id, usable with 'ait history show'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := db.ListConversations(limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(os.Stderr, "No chats stored.")
				return nil
			}

			color := term.IsTerminal(int(os.Stdout.Fd()))
			for _, s := range items {
				updated := s.UpdatedAt
				if color {
					updated = sColorDim + updated + sColorReset
				}
				fmt.Printf("%s\t%s\t%d\t%s\t%s\n", s.ID, updated, s.MessageCount, s.Model, tsvField(s.Title))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Max chats (0 = no limit)")
	return cmd
}

func historyShowCmd() *cobra.Command {
	var hit int
	var query string
	var system bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored chat",
		Long:  `Print a stored chat. The id may be any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := db.Resolve(args[0])
			if err != nil {
				return err
			}

			opts := render.Options{HitSeq: hit, Query: query, ShowSystem: system}
			if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
				if w, _, err := term.GetSize(fd); err == nil {
					opts.Width = w
				}
			} else {
				opts.Plain = true
			}

			out, _, err := render.Conversation(db, id, opts)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hit, "hit", -1, "Message seq to mark")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().BoolVar(&system, "system", false, "Include system prompt and context")
	return cmd
}

func historySearchCmd() *cobra.Command {
	var role, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across stored chats",
		Long: `Search stored chats using FTS5. Output is TSV for fzf integration:
  id, seq, updatedAt, role, title, snippet

Example:
  ait history search "$*" | fzf \
    --ansi --delimiter='\t' --with-nth=3.. \
    --preview 'ait history show {1} --hit {2} --query {q}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := db.Search(history.SearchOptions{
				Query: args[0],
				Role:  role,
				Since: since,
				Limit: limit,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				// first two fields (id, seq) stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s%s%s\t%s\t%s\t%s\n",
					r.ConversationID,
					r.Seq,
					sColorDim, r.UpdatedAt, sColorReset,
					colorizeRole(r.Role),
					tsvField(r.Title),
					colorizeSnippet(tsvField(r.Snippet)),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant/system)")
	cmd.Flags().StringVar(&since, "since", "", "Filter chats updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	return cmd
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := db.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := db.DeleteConversation(id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "deleted %s\n", id)
			return nil
		},
	}
}

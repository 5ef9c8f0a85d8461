package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-rag/internal/app"
	"portfolio-rag/internal/bootstrap"
)

var (
	askShowContext bool
	askFreeform    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			out := cmd.OutOrStdout()
			if askFreeform {
				opts := app.DefaultChatOptions()
				opts.IncludeHistory = false
				res := a.Chat.Respond(cmd.Context(), question, nil, opts)
				fmt.Fprintln(out, res.Message)
				if res.Error != "" {
					return fmt.Errorf("chat failed: %s", res.Error)
				}
				return nil
			}

			res := a.Chat.AskWithContext(cmd.Context(), question, nil)
			fmt.Fprintln(out, res.Message)
			if askShowContext && len(res.Context) > 0 {
				fmt.Fprintln(out)
				w := bufio.NewWriter(out)
				for i, item := range res.Context {
					fmt.Fprintf(w, "[%d] %s (%s, relevance %s)\n", i+1, item.Title, item.Type, item.Relevance)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			if res.Error != "" {
				return fmt.Errorf("ask failed: %s", res.Error)
			}
			return nil
		})
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash for auth.admin_password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := app.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askShowContext, "context", false, "Print the documents the answer was grounded on")
	askCmd.Flags().BoolVar(&askFreeform, "chat", false, "Use the conversational persona instead of strict context answering")
}

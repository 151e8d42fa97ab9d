package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/helpdesk/internal/knowledge"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

func (c *cli) newRetrieveCmd() *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "retrieve [query...]",
		Short: "Preview the knowledge documents a ticket would be drafted from",
		Long:  "Rank the documents of a category against query text without calling the text-generation provider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(category) == "" {
				return fmt.Errorf("--category is required")
			}
			store, err := knowledge.Load(c.cfg.KnowledgePath)
			if err != nil {
				return err
			}

			cat, ok := ticket.ParseCategory(category)
			res := knowledge.NewRetriever(store).Retrieve(cat, strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"category": cat,
					"matched":  ok,
					"result":   res,
				})
			}
			renderRetrieval(out, cat, ok, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "ticket category (Billing, Technical, Security, General)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the retrieval result as JSON")
	return cmd
}

func (c *cli) newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List knowledge categories and their documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := knowledge.Load(c.cfg.KnowledgePath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := newStyles(out)
			for _, cat := range store.Categories() {
				docs := store.Lookup(cat)
				fmt.Fprintf(out, "%s %s\n", s.title.Render(string(cat)), s.muted.Render(fmt.Sprintf("(%d)", len(docs))))
				for _, d := range docs {
					fmt.Fprintf(out, "  - %s\n", d.Title)
				}
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/helpdesk/internal/escalation/pgsink"
	"github.com/linnemanlabs/helpdesk/internal/escalation/sqlitesink"
	"github.com/linnemanlabs/helpdesk/internal/postgres"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

var errNoEscalationDB = errors.New("no escalation database configured (set --escalation-sqlite-path or --database-url)")

func (c *cli) newEscalationsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List recently escalated tickets",
		Long:  "List recently escalated tickets from the SQLite database, or PostgreSQL when no SQLite path is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := c.recentEscalations(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, recs)
			}
			s := newStyles(out)
			if len(recs) == 0 {
				fmt.Fprintln(out, s.muted.Render("no escalations"))
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					s.muted.Render(r.Timestamp.UTC().Format("2006-01-02 15:04:05")),
					r.TicketID,
					s.label.Render(r.Category),
					r.Subject,
				)
				fmt.Fprintf(out, "    attempts=%d feedback=%q\n", r.Attempts, r.ReviewerFeedback)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (c *cli) recentEscalations(ctx context.Context, limit int) ([]*ticket.EscalationRecord, error) {
	switch {
	case c.cfg.EscalationSQLitePath != "":
		s, err := sqlitesink.Open(c.cfg.EscalationSQLitePath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = s.Close() }()
		return s.Recent(ctx, limit)

	case c.cfg.DatabaseURL != "":
		L, err := c.logger()
		if err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, c.cfg.DatabaseURL, L)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return pgsink.New(pool).Recent(ctx, limit)
	}
	return nil, errNoEscalationDB
}

package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/helpdesk/internal/app"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

func (c *cli) newTriageCmd() *cobra.Command {
	var (
		subject     string
		description string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Process one ticket through classify, draft, review and escalation",
		Long:  "Process one ticket. Subject and description are prompted for when not given as flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if subject == "" {
				if subject, err = promptLine(out, in, "Enter ticket subject: "); err != nil {
					return err
				}
			}
			if description == "" {
				if description, err = promptLine(out, in, "Enter ticket description: "); err != nil {
					return err
				}
			}

			L, err := c.logger()
			if err != nil {
				return err
			}
			ctx := log.WithContext(cmd.Context(), L)

			p, err := app.Build(ctx, &c.cfg, app.Options{
				Logger:   L,
				Provider: c.opts.Provider,
				Notifier: c.opts.Notifier,
			})
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			rr, runErr := p.Service.Submit(ctx, ticket.Ticket{Subject: subject, Description: description})
			if rr != nil {
				if asJSON {
					if err := writeJSON(out, rr); err != nil {
						return err
					}
				} else {
					renderResult(out, rr, c.cfg.EscalationCSVPath)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "ticket subject")
	cmd.Flags().StringVarP(&description, "description", "d", "", "ticket description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run result as JSON")
	return cmd
}

// promptLine reads one line. EOF after partial input is accepted.
func promptLine(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

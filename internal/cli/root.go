// Package cli implements the helpdesk command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"

	hc "github.com/linnemanlabs/helpdesk/internal/cfg"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

const appName = "helpdesk"

// Options injects I/O and collaborators. Zero values select the process
// streams, a logger built from flags, Claude and Slack.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Logger   log.Logger
	Provider ticket.Provider
	Notifier ticket.Notifier
}

type cli struct {
	opts   Options
	flags  *flag.FlagSet
	cfg    hc.Config
	logCfg log.Config
}

// NewRootCmd builds the helpdesk command tree. Configuration flags are shared
// with the server and may also be set through HELPDESK_* variables.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	c := &cli{opts: opts, flags: flag.NewFlagSet(appName, flag.ContinueOnError)}
	c.cfg.RegisterFlags(c.flags)
	c.logCfg.RegisterFlags(c.flags)

	root := &cobra.Command{
		Use:           appName,
		Short:         "Support ticket triage with review and escalation",
		Long:          "Classify a support ticket, draft a reply from the knowledge base, have it reviewed and escalate to a human when review keeps failing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd.Flags())
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().AddGoFlagSet(c.flags)

	root.AddCommand(
		c.newTriageCmd(),
		c.newRetrieveCmd(),
		c.newCatalogCmd(),
		c.newEscalationsCmd(),
	)
	return root
}

// loadConfig copies explicitly set flags back into the go FlagSet so env
// values never override the command line, then fills the rest from env.
func (c *cli) loadConfig(fs *pflag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		if c.flags.Lookup(f.Name) == nil {
			return
		}
		if err := c.flags.Set(f.Name, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}

	cfg.FillFromEnv(c.flags, "HELPDESK_", func(format string, args ...any) {
		fmt.Fprintf(c.opts.Err, format+"\n", args...)
	})
	return nil
}

func (c *cli) logger() (log.Logger, error) {
	if c.opts.Logger != nil {
		return c.opts.Logger, nil
	}
	if err := c.logCfg.Validate(); err != nil {
		return nil, fmt.Errorf("log config: %w", err)
	}
	lg, err := log.New(c.logCfg.ToOptions(appName))
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	return lg.With("component", "cli"), nil
}

// Package app assembles the ticket pipeline from configuration. Both the
// HTTP server and the CLI build their Service here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/helpdesk/internal/cfg"
	"github.com/linnemanlabs/helpdesk/internal/escalation"
	"github.com/linnemanlabs/helpdesk/internal/escalation/csvlog"
	"github.com/linnemanlabs/helpdesk/internal/escalation/kafkasink"
	"github.com/linnemanlabs/helpdesk/internal/escalation/pgsink"
	"github.com/linnemanlabs/helpdesk/internal/escalation/sqlitesink"
	"github.com/linnemanlabs/helpdesk/internal/knowledge"
	"github.com/linnemanlabs/helpdesk/internal/llm/claude"
	"github.com/linnemanlabs/helpdesk/internal/notify/slack"
	"github.com/linnemanlabs/helpdesk/internal/postgres"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// Options carries what the binaries inject beyond Config.
type Options struct {
	Logger log.Logger
	// Registerer receives the pipeline metrics. nil disables them.
	Registerer prometheus.Registerer
	// Provider overrides the Claude client.
	Provider ticket.Provider
	// Notifier overrides the Slack notifier.
	Notifier ticket.Notifier
}

// Pipeline is a fully wired ticket pipeline and the resources it owns.
type Pipeline struct {
	Service   *ticket.Service
	Engine    *ticket.Engine
	Knowledge *knowledge.Store
	Retriever *knowledge.Retriever
	Sinks     *escalation.Fanout
	Metrics   *ticket.Metrics

	closers []func() error
}

// Build loads the knowledge catalog, opens every configured escalation sink
// and wires the engine and service. The caller must Close the pipeline.
func Build(ctx context.Context, c *cfg.Config, opts Options) (*Pipeline, error) {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}

	p := &Pipeline{}
	if err := p.build(ctx, c, opts, L); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) build(ctx context.Context, c *cfg.Config, opts Options, L log.Logger) error {
	var err error
	p.Knowledge, err = knowledge.Load(c.KnowledgePath)
	if err != nil {
		return fmt.Errorf("load knowledge catalog: %w", err)
	}
	p.Retriever = knowledge.NewRetriever(p.Knowledge)
	L.Info(ctx, "knowledge catalog loaded",
		"path", c.KnowledgePath,
		"documents", p.Knowledge.Len(),
		"categories", p.Knowledge.Categories(),
	)

	p.Sinks, err = p.openSinks(ctx, c, L)
	if err != nil {
		return err
	}
	L.Info(ctx, "escalation sinks ready", "sinks", p.Sinks.Names())

	provider := opts.Provider
	if provider == nil {
		// the engine reports a failed call as-is; the SDK must not retry behind it
		provider = claude.New(c.ClaudeAPIKey, c.ClaudeModel,
			option.WithRequestTimeout(c.LLMTimeout()),
			option.WithMaxRetries(0),
		)
	}

	hooks := ticket.EngineHooks{}
	if opts.Registerer != nil {
		p.Metrics = ticket.NewMetrics(opts.Registerer)
		hooks = p.Metrics.Hooks()
	}

	p.Engine = ticket.NewEngine(provider, p.Retriever, p.Sinks, L, hooks, ticket.EngineOptions{
		CallTimeout:     c.LLMTimeout(),
		MaxTokens:       c.LLMMaxTokens,
		EscalationTries: c.EscalationTries,
	})

	notifier := opts.Notifier
	if notifier == nil {
		notifier = slack.New(c.SlackWebhookURL, L)
	}
	p.Service = ticket.NewService(p.Engine, L, p.Metrics, notifier)
	return nil
}

func (p *Pipeline) openSinks(ctx context.Context, c *cfg.Config, L log.Logger) (*escalation.Fanout, error) {
	sinks := []escalation.Named{{Name: "csv", Sink: csvlog.New(c.EscalationCSVPath)}}

	if c.EscalationSQLitePath != "" {
		s, err := sqlitesink.Open(c.EscalationSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite escalation sink: %w", err)
		}
		p.closers = append(p.closers, s.Close)
		sinks = append(sinks, escalation.Named{Name: "sqlite", Sink: s})
	}

	if c.DatabaseURL != "" {
		if err := postgres.Migrate(c.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate escalation schema: %w", err)
		}
		pool, err := postgres.NewPool(ctx, c.DatabaseURL, L)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		p.closers = append(p.closers, func() error { pool.Close(); return nil })
		sinks = append(sinks, escalation.Named{Name: "postgres", Sink: pgsink.New(pool)})
	}

	if brokers := c.KafkaBrokerList(); len(brokers) > 0 {
		s := kafkasink.New(brokers, c.KafkaTopic)
		p.closers = append(p.closers, s.Close)
		sinks = append(sinks, escalation.Named{Name: "kafka", Sink: s})
	}

	return escalation.NewFanout(sinks...), nil
}

// Close releases sink resources in reverse order of opening.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

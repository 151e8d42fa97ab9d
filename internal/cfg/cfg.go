package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAPIKey is wrapped by Validate when no text-generation credential
// was supplied. It is fatal before any ticket is processed.
var ErrMissingAPIKey = errors.New("CLAUDE_API_KEY is required")

// Config holds helpdesk settings. Fields are bound to flags by RegisterFlags
// and overridden from HELPDESK_* environment variables by the binaries.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	LLMTimeoutSeconds     int
	LLMMaxTokens          int
	KnowledgePath         string
	EscalationCSVPath     string
	EscalationSQLitePath  string
	EscalationTries       int
	DatabaseURL           string
	KafkaBrokers          string
	KafkaTopic            string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude text-generation provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 60, "timeout for each text-generation call (1..600)")
	fs.IntVar(&c.LLMMaxTokens, "llm-max-tokens", 1024, "maximum tokens per generated response (1..8192)")
	fs.StringVar(&c.KnowledgePath, "knowledge-path", "", "YAML knowledge catalog (empty = built-in catalog)")
	fs.StringVar(&c.EscalationCSVPath, "escalation-csv-path", "escalation_log.csv", "CSV file escalated tickets are appended to")
	fs.StringVar(&c.EscalationSQLitePath, "escalation-sqlite-path", "", "SQLite database escalations are also recorded in (empty = disabled)")
	fs.IntVar(&c.EscalationTries, "escalation-tries", 3, "attempts to persist an escalation record before alerting (2..10)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL URL escalations are also recorded in (empty = disabled)")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers for escalation events (empty = disabled)")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", "helpdesk.escalations", "Kafka topic for escalation events")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for escalation notices")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if strings.TrimSpace(c.ClaudeAPIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}
	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..600)", c.LLMTimeoutSeconds))
	}
	if c.LLMMaxTokens <= 0 || c.LLMMaxTokens > 8192 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_TOKENS %d (must be 1..8192)", c.LLMMaxTokens))
	}

	// the CSV log is the primary hand-off record and cannot be turned off
	if strings.TrimSpace(c.EscalationCSVPath) == "" {
		errs = append(errs, errors.New("ESCALATION_CSV_PATH is required"))
	}
	if c.EscalationTries < 2 || c.EscalationTries > 10 {
		errs = append(errs, fmt.Errorf("invalid ESCALATION_TRIES %d (must be 2..10)", c.EscalationTries))
	}

	if c.KafkaBrokers != "" && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LLMTimeout returns the per-call text-generation timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// KafkaBrokerList splits KafkaBrokers on commas, dropping blanks.
func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

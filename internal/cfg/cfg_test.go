package cfg

import (
	"errors"
	"flag"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		LLMTimeoutSeconds:     60,
		LLMMaxTokens:          1024,
		EscalationCSVPath:     "escalation_log.csv",
		EscalationTries:       3,
		KafkaTopic:            "helpdesk.escalations",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.LLMTimeoutSeconds != 60 || c.LLMMaxTokens != 1024 {
		t.Errorf("LLM timeout/max tokens = %d/%d, want 60/1024", c.LLMTimeoutSeconds, c.LLMMaxTokens)
	}
	if c.EscalationCSVPath != "escalation_log.csv" {
		t.Errorf("EscalationCSVPath = %q", c.EscalationCSVPath)
	}
	if c.EscalationTries != 3 {
		t.Errorf("EscalationTries = %d, want 3", c.EscalationTries)
	}
	if c.KafkaTopic != "helpdesk.escalations" {
		t.Errorf("KafkaTopic = %q", c.KafkaTopic)
	}

	// defaults are valid once the credential is supplied
	c.ClaudeAPIKey = "k"
	if err := c.Validate(); err != nil {
		t.Errorf("defaults + key should validate: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-llm-timeout-seconds", "15",
		"-knowledge-path", "/etc/helpdesk/catalog.yaml",
		"-escalation-sqlite-path", "/var/lib/helpdesk/escalations.db",
		"-kafka-brokers", "k1:9092,k2:9092",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.ClaudeModel != "claude-opus-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-opus-4-20250514")
	}
	if c.LLMTimeout() != 15*time.Second {
		t.Errorf("LLMTimeout() = %v, want 15s", c.LLMTimeout())
	}
	if c.KnowledgePath != "/etc/helpdesk/catalog.yaml" {
		t.Errorf("KnowledgePath = %q", c.KnowledgePath)
	}
	if c.EscalationSQLitePath != "/var/lib/helpdesk/escalations.db" {
		t.Errorf("EscalationSQLitePath = %q", c.EscalationSQLitePath)
	}
	if got := c.KafkaBrokerList(); !reflect.DeepEqual(got, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokerList() = %v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	with := func(mut func(*Config)) Config {
		c := validBase()
		mut(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
				c.LLMTimeoutSeconds, c.LLMMaxTokens, c.EscalationTries = 1, 1, 2
			}),
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.LLMTimeoutSeconds, c.LLMMaxTokens, c.EscalationTries = 600, 8192, 10
			}),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       with(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:    "drain at upper bound",
			cfg:     with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 300, 300 }),
			wantErr: true, // budget must be greater than drain
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget negative",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = -1 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       with(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       with(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// String fields
		{
			name:      "blank claude api key",
			cfg:       with(func(c *Config) { c.ClaudeAPIKey = "   " }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "empty claude model",
			cfg:       with(func(c *Config) { c.ClaudeModel = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name:      "llm timeout above max",
			cfg:       with(func(c *Config) { c.LLMTimeoutSeconds = 601 }),
			wantErr:   true,
			errSubstr: []string{"LLM_TIMEOUT_SECONDS"},
		},
		{
			name:      "llm max tokens zero",
			cfg:       with(func(c *Config) { c.LLMMaxTokens = 0 }),
			wantErr:   true,
			errSubstr: []string{"LLM_MAX_TOKENS"},
		},
		{
			name:      "empty csv path",
			cfg:       with(func(c *Config) { c.EscalationCSVPath = "" }),
			wantErr:   true,
			errSubstr: []string{"ESCALATION_CSV_PATH"},
		},
		{
			name:      "single escalation try",
			cfg:       with(func(c *Config) { c.EscalationTries = 1 }),
			wantErr:   true,
			errSubstr: []string{"ESCALATION_TRIES"},
		},
		{
			name:      "kafka brokers without topic",
			cfg:       with(func(c *Config) { c.KafkaBrokers, c.KafkaTopic = "k:9092", "" }),
			wantErr:   true,
			errSubstr: []string{"KAFKA_TOPIC"},
		},
		{
			name:    "optional sinks unset",
			cfg:     with(func(c *Config) { c.KafkaTopic = "" }),
			wantErr: false,
		},
		// Error accumulation: all fields invalid
		{
			name:    "all fields invalid",
			cfg:     Config{},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CLAUDE_API_KEY", "CLAUDE_MODEL",
				"LLM_TIMEOUT_SECONDS", "LLM_MAX_TOKENS", "ESCALATION_CSV_PATH", "ESCALATION_TRIES",
			},
		},
		{
			name: "extreme negative values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func TestValidate_MissingAPIKeyIsTyped(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.ClaudeAPIKey = ""
	c.APIPort = 0 // another error joined alongside

	err := c.Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("errors.Is(err, ErrMissingAPIKey) = false; err = %v", err)
	}
}

func TestKafkaBrokerList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ", nil},
		{"k1:9092", []string{"k1:9092"}},
		{"k1:9092, k2:9092,", []string{"k1:9092", "k2:9092"}},
	}
	for _, tt := range tests {
		c := Config{KafkaBrokers: tt.in}
		if got := c.KafkaBrokerList(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("KafkaBrokerList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func FuzzValidate(f *testing.F) {
	seeds := []struct {
		drain, budget, port, timeout, tries int
		key, model, csvPath                 string
	}{
		{60, 90, 8080, 60, 3, "sk-test", "claude-sonnet", "escalation_log.csv"},
		{1, 2, 1, 1, 2, "k", "m", "x.csv"},
		{299, 300, 65535, 600, 10, "k", "m", "x.csv"},
		{0, 0, 0, 0, 0, "", "", ""},
		{-1, -1, -1, -1, -1, "", "", ""},
		{300, 300, 65535, 601, 11, "k", "m", "x.csv"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.timeout, s.tries, s.key, s.model, s.csvPath)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, timeout, tries int, key, model, csvPath string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			ClaudeAPIKey:          key,
			ClaudeModel:           model,
			LLMTimeoutSeconds:     timeout,
			LLMMaxTokens:          1024,
			EscalationCSVPath:     csvPath,
			EscalationTries:       tries,
		}
		err := c.Validate()

		allValid := drain >= 1 && drain <= 300 &&
			budget >= 1 && budget <= 300 &&
			budget > drain &&
			port >= 1 && port <= 65535 &&
			strings.TrimSpace(key) != "" &&
			model != "" &&
			timeout >= 1 && timeout <= 600 &&
			strings.TrimSpace(csvPath) != "" &&
			tries >= 2 && tries <= 10

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}

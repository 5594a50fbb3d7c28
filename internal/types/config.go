package types

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Header names carried on every request. Lookups are case-insensitive; these are
// the canonical lower-case forms. The Snowflake external-function gateway wraps
// the same names under SnowflakeHeaderPrefix.
const (
	OperationHdrName   = "x-skyflow-operation"
	ClusterIDHdrName   = "x-skyflow-cluster-id"
	VaultIDHdrName     = "x-skyflow-vault-id"
	TableHdrName       = "x-skyflow-table"
	EnvironmentHdrName = "x-skyflow-environment"
	ColumnNameHdrName  = "x-skyflow-column-name"

	SnowflakeHeaderPrefix = "sf-custom-"
)

// Operation selects which vault call a request maps to.
type Operation string

const (
	OpTokenize       Operation = "tokenize"
	OpTokenizeCustom Operation = "tokenize_custom"
	OpDetokenize     Operation = "detokenize"
	OpQuery          Operation = "query"
)

// ParseOperation validates the operation header value.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpTokenize, OpTokenizeCustom, OpDetokenize, OpQuery:
		return Operation(s), nil
	case "":
		return "", Err(ErrConfig, nil, "missing required header %s", OperationHdrName)
	default:
		return "", Err(ErrConfig, nil, "unknown operation %q", s)
	}
}

// Environment picks which Skyflow cluster domain a client talks to.
type Environment string

const (
	EnvProd    Environment = "PROD"
	EnvSandbox Environment = "SANDBOX"
)

// ParseEnvironment accepts the two recognized values. An empty value defaults
// to PROD; anything else is a configuration error.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvProd, EnvSandbox:
		return Environment(s), nil
	case "":
		return EnvProd, nil
	default:
		return "", Err(ErrConfig, nil, "environment must be %s or %s, got %q", EnvProd, EnvSandbox, s)
	}
}

// Redaction is the detokenization redaction level. It is forwarded to the vault
// only when the caller set it; the vault's governance policy decides otherwise.
type Redaction string

const (
	RedactionDefault   Redaction = "DEFAULT"
	RedactionRedacted  Redaction = "REDACTED"
	RedactionMasked    Redaction = "MASKED"
	RedactionPlainText Redaction = "PLAIN_TEXT"
)

// ValidRedaction reports whether s is one of the four redaction levels.
func ValidRedaction(s string) bool {
	switch Redaction(s) {
	case RedactionDefault, RedactionRedacted, RedactionMasked, RedactionPlainText:
		return true
	}
	return false
}

const (
	DefaultBatchSize = 25
	DefaultPort      = 8080

	PortEnvKey       = "PORT"
	BatchSizeEnvKey  = "SKYFLOW_BATCH_SIZE"
	ConfigFileEnvKey = "SERVICE_CONFIG_FILE"
)

// BatchSizes holds the per-operation vault batch limits. Query is never
// batched and therefore has no entry.
type BatchSizes struct {
	Tokenize       int `yaml:"tokenize" json:"tokenize"`
	TokenizeCustom int `yaml:"tokenize_custom" json:"tokenize_custom"`
	Detokenize     int `yaml:"detokenize" json:"detokenize"`
}

// For returns the batch limit for op.
func (b BatchSizes) For(op Operation) int {
	switch op {
	case OpTokenize:
		return b.Tokenize
	case OpTokenizeCustom:
		return b.TokenizeCustom
	default:
		return b.Detokenize
	}
}

// ServiceConfig is the operator-facing service configuration, read from an
// optional YAML file and overridable through environment variables.
type ServiceConfig struct {
	Port       int        `yaml:"port" json:"port"`
	BatchSizes BatchSizes `yaml:"batch_sizes" json:"batch_sizes"`
}

func (c ServiceConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}
	if c.BatchSizes.Tokenize <= 0 || c.BatchSizes.TokenizeCustom <= 0 || c.BatchSizes.Detokenize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	return nil
}

// LoadServiceConfig builds the service configuration: defaults, then the YAML
// file named by SERVICE_CONFIG_FILE (if any), then env var overrides.
func LoadServiceConfig() (ServiceConfig, error) {
	cfg := ServiceConfig{
		Port: DefaultPort,
		BatchSizes: BatchSizes{
			Tokenize:       DefaultBatchSize,
			TokenizeCustom: DefaultBatchSize,
			Detokenize:     DefaultBatchSize,
		},
	}
	if path := os.Getenv(ConfigFileEnvKey); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("read service config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return ServiceConfig{}, fmt.Errorf("parse service config: %w", err)
		}
	}
	if v := os.Getenv(PortEnvKey); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("invalid %s: %w", PortEnvKey, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv(BatchSizeEnvKey); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("invalid %s: %w", BatchSizeEnvKey, err)
		}
		cfg.BatchSizes = BatchSizes{Tokenize: n, TokenizeCustom: n, Detokenize: n}
	}
	if err := cfg.Validate(); err != nil {
		return ServiceConfig{}, err
	}
	return cfg, nil
}

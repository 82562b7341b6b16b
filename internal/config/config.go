// Package config loads the service configuration: vocabulary allow-lists,
// approval policy, work-queue groups, the user directory and the wiring for
// storage, Temporal and HTTP.
//
// Values come from defaults, then an optional YAML file, then environment
// overrides, and are validated before use.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Vocabulary holds the allow-lists enumerated case fields are checked against.
type Vocabulary struct {
	CaseTypes  []string `yaml:"case_types" validate:"required,min=1,dive,required"`
	Priorities []string `yaml:"priorities" validate:"required,min=1,dive,required"`
	Typologies []string `yaml:"typologies" validate:"required,min=1,dive,required"`
}

func (v Vocabulary) AllowsCaseType(s string) bool { return slices.Contains(v.CaseTypes, s) }
func (v Vocabulary) AllowsPriority(s string) bool { return slices.Contains(v.Priorities, s) }
func (v Vocabulary) AllowsTypology(s string) bool { return slices.Contains(v.Typologies, s) }

// ApprovalPolicy decides which completed drafts need a second pair of eyes.
type ApprovalPolicy struct {
	RiskThreshold float64  `yaml:"risk_threshold" validate:"gte=0,lte=100"`
	Priorities    []string `yaml:"priorities" validate:"dive,required"`
}

// Groups names the candidate groups tasks are queued to.
type Groups struct {
	Analysts      string `yaml:"analysts" validate:"required"`
	Approvers     string `yaml:"approvers" validate:"required"`
	Investigators string `yaml:"investigators" validate:"required"`
}

type Storage struct {
	Path     string `yaml:"path" validate:"required_without=InMemory"`
	InMemory bool   `yaml:"in_memory"`
}

type Temporal struct {
	HostPort  string `yaml:"host_port" validate:"required,hostname_port"`
	Namespace string `yaml:"namespace" validate:"required"`
	TaskQueue string `yaml:"task_queue" validate:"required"`
}

type HTTP struct {
	Addr string `yaml:"addr" validate:"required"`
	// RateLimit is requests per second allowed per actor; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=0"`
}

type Config struct {
	Vocabulary Vocabulary     `yaml:"vocabulary"`
	Approval   ApprovalPolicy `yaml:"approval"`
	Groups     Groups         `yaml:"groups"`

	// Users maps every known user id to its roles. Roles used by the
	// service are "approver" and "admin".
	Users map[string][]string `yaml:"users" validate:"dive,keys,required,endkeys,dive,required"`

	OperationTimeout time.Duration `yaml:"operation_timeout" validate:"gt=0"`

	Storage      Storage  `yaml:"storage"`
	Temporal     Temporal `yaml:"temporal"`
	HTTP         HTTP     `yaml:"http"`
	OTelEndpoint string   `yaml:"otel_endpoint"`
}

const (
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

func Default() Config {
	return Config{
		Vocabulary: Vocabulary{
			CaseTypes: []string{
				"FRAUD_DETECTION", "MONEY_LAUNDERING", "SUSPICIOUS_ACTIVITY", "COMPLIANCE_VIOLATION",
				"AML", "FRAUD", "COMPLIANCE", "SANCTIONS", "KYC",
			},
			Priorities: []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
			Typologies: []string{"MONEY_LAUNDERING", "TERRORIST_FINANCING", "FRAUD", "SANCTIONS_VIOLATION"},
		},
		Approval: ApprovalPolicy{
			RiskThreshold: 80,
			Priorities:    []string{"HIGH", "CRITICAL"},
		},
		Groups: Groups{
			Analysts:      "analysts",
			Approvers:     "approvers",
			Investigators: "investigators",
		},
		Users:            map[string][]string{},
		OperationTimeout: 10 * time.Second,
		Storage:          Storage{Path: "./data/cases"},
		Temporal: Temporal{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "CASE_INVESTIGATION_TASK_QUEUE",
		},
		HTTP: HTTP{
			Addr:      ":8090",
			RateLimit: 20,
			RateBurst: 40,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CASES_HTTP_ADDR"); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("CASES_DATA_DIR"); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := lookup("CASES_IN_MEMORY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CASES_IN_MEMORY: %w", err)
		}
		c.Storage.InMemory = b
	}
	if v, ok := lookup("CASES_OPERATION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CASES_OPERATION_TIMEOUT: %w", err)
		}
		c.OperationTimeout = d
	}
	if v, ok := lookup("TEMPORAL_HOSTPORT"); ok && v != "" {
		c.Temporal.HostPort = v
	}
	if v, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT"); ok && v != "" {
		c.OTelEndpoint = v
	}
	return nil
}

var configValidate = validator.New()

func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, p := range c.Approval.Priorities {
		if !c.Vocabulary.AllowsPriority(p) {
			return fmt.Errorf("invalid config: approval priority %q is not in the priority vocabulary", p)
		}
	}
	return nil
}

// HasRole reports whether user is a known user holding role.
func (c Config) HasRole(user, role string) bool {
	roles, ok := c.Users[user]
	return ok && slices.Contains(roles, role)
}

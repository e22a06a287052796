// Package config contains the configuration of the subscriber host process,
// parsed from the environment and from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Prefix is the prefix of all the environment variables read.
const Prefix = "SUBSCRIBER"

// Checkpoint backends supported.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config is the configuration of the subscriber host, read from the environment.
type Config struct {
	Development bool `default:"false"`

	Store struct {
		URL      string
		Username string
		Password string
	}

	Checkpoint struct {
		Backend                 string `default:"memory"`
		SQLitePath              string `default:"checkpoints.db" envconfig:"SQLITE_PATH"`
		PostgresDSN             string `split_words:"true"`
		PostgresMigrationsTable string `default:"subscriber_schema_migrations" split_words:"true"`
		FirestoreProject        string `split_words:"true"`
		FirestoreCollection     string `split_words:"true"`
	}

	Poll struct {
		DefaultInterval   time.Duration `default:"1s" split_words:"true"`
		SliceSize         int           `default:"20" split_words:"true"`
		LongPollTimeout   time.Duration `default:"0s" split_words:"true"`
		BodyFetchAttempts int           `default:"3" split_words:"true"`
		BodyFetchDelay    time.Duration `default:"500ms" split_words:"true"`
	}

	// StatsInterval is how often the processing statistics are logged.
	StatsInterval time.Duration `default:"1m" split_words:"true"`

	// Subscriptions is a list of "stream" or "stream/subscriber" entries,
	// polled with the default interval.
	Subscriptions []string

	// File is the path to the optional YAML file with types, handlers
	// and subscriptions definitions.
	File string
}

// Parse parses the Config from the environment variables.
func Parse() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse from env, %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Store.URL == "" {
		return fmt.Errorf("config: %s_STORE_URL is required", Prefix)
	}

	switch cfg.Checkpoint.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.Checkpoint.PostgresDSN == "" {
			return fmt.Errorf("config: %s_CHECKPOINT_POSTGRES_DSN is required with the postgres backend", Prefix)
		}
	case BackendFirestore:
		if cfg.Checkpoint.FirestoreProject == "" {
			return fmt.Errorf("config: %s_CHECKPOINT_FIRESTORE_PROJECT is required with the firestore backend", Prefix)
		}
	default:
		return fmt.Errorf("config: unsupported checkpoint backend '%s'", cfg.Checkpoint.Backend)
	}

	return nil
}

// Subscription is a subscription declared in the configuration.
type Subscription struct {
	Stream     string        `yaml:"stream"`
	Subscriber string        `yaml:"subscriber"`
	Interval   time.Duration `yaml:"interval"`
}

// Type is an event type declared in the configuration.
type Type struct {
	Name    string   `yaml:"name"`
	Parents []string `yaml:"parents"`
}

// Handler is a built-in handler declared in the configuration.
type Handler struct {
	Name string `yaml:"name"`
	// Kind is the built-in handler kind; only "log" is supported.
	Kind        string   `yaml:"kind"`
	Types       []string `yaml:"types"`
	Subscribers []string `yaml:"subscribers"`
}

// File is the content of the YAML configuration file.
type File struct {
	Types         []Type         `yaml:"types"`
	Handlers      []Handler      `yaml:"handlers"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

// ParseFile parses the YAML configuration file content.
func ParseFile(data []byte) (*File, error) {
	var file File

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: failed to parse file, %w", err)
	}

	for i, h := range file.Handlers {
		if h.Name == "" {
			return nil, fmt.Errorf("config: handler #%d has no name", i)
		}

		if h.Kind != "log" {
			return nil, fmt.Errorf("config: handler '%s' has unsupported kind '%s'", h.Name, h.Kind)
		}

		if len(h.Types) == 0 {
			return nil, fmt.Errorf("config: handler '%s' handles no types", h.Name)
		}
	}

	return &file, nil
}

// LoadFile reads the configuration file, if any has been specified.
// An empty File is returned otherwise.
func (cfg *Config) LoadFile() (*File, error) {
	if cfg.File == "" {
		return new(File), nil
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read file, %w", err)
	}

	return ParseFile(data)
}

// AllSubscriptions returns the subscriptions declared in the environment
// followed by the ones in the file.
//
// Declaring the same subscription twice is an error.
func (cfg *Config) AllSubscriptions(file *File) ([]Subscription, error) {
	var result []Subscription

	for _, entry := range cfg.Subscriptions {
		stream, subscriber, _ := strings.Cut(strings.TrimSpace(entry), "/")
		result = append(result, Subscription{Stream: stream, Subscriber: subscriber})
	}

	if file != nil {
		result = append(result, file.Subscriptions...)
	}

	seen := make(map[Subscription]struct{}, len(result))

	for _, s := range result {
		if s.Stream == "" {
			return nil, fmt.Errorf("config: subscription with no stream name")
		}

		key := Subscription{Stream: s.Stream, Subscriber: s.Subscriber}
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("config: subscription to '%s' for subscriber '%s' declared twice", s.Stream, s.Subscriber)
		}

		seen[key] = struct{}{}
	}

	return result, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/campfirehq/roadsync/internal/command"
	"github.com/campfirehq/roadsync/internal/forum"
	"github.com/campfirehq/roadsync/internal/roadmap"
	_ "github.com/campfirehq/roadsync/internal/roadmap/jira"
	"github.com/campfirehq/roadsync/internal/settings"
)

// app is the fully wired application: provider, engine, and command handler
// for one community.
type app struct {
	Provider    roadmap.Provider
	Engine      *roadmap.Engine
	Handler     *command.Handler
	Store       roadmap.MappingStore
	CommunityID string

	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// loadConfig reads roadsync.yaml and layers ROADSYNC_* environment
// variables over it.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("roadsync")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("roadsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "jira")
	v.SetDefault("max_tags", roadmap.DefaultMaxTags)
	v.SetDefault("concurrency", 1)

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine when the environment
		// carries the provider credentials.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// buildApp wires the provider, forum, stores, engine, and handler from the
// loaded configuration.
func buildApp() (*app, error) {
	v, err := loadConfig()
	if err != nil {
		return nil, err
	}

	providerName := v.GetString("provider")
	providerCfg := roadmap.NewConfig(providerName,
		stringMap(v.GetStringMapString(providerName)), nil)

	provider, err := roadmap.New(providerName, providerCfg)
	if err != nil {
		return nil, err
	}

	community := communityID
	if community == "" {
		community = v.GetString("community_id")
	}
	if community == "" {
		community = "default"
	}

	a := &app{Provider: provider, CommunityID: community}

	var store roadmap.MappingStore
	if dbPath := v.GetString("db_path"); dbPath != "" {
		sqlStore, err := settings.Open(dbPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlStore.Close)
		store = sqlStore
	} else {
		// No database configured: run against an in-memory store, useful
		// for dry runs and validate/info.
		store = roadmap.NewMemoryMappingStore()
	}
	a.Store = store

	resolver := forum.StaticResolver(v.GetStringMapString("forums"))

	// The shipped forum backend mirrors into an in-process forum and logs
	// every operation; a live chat connector slots in behind forum.API.
	forumAPI := newLogForum(os.Stderr)

	engine := roadmap.NewEngine(provider, forumAPI, resolver, store, community)
	engine.MaxTags = v.GetInt("max_tags")
	engine.Concurrency = v.GetInt("concurrency")
	if verbose {
		engine.OnMessage = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	}
	engine.OnWarning = func(msg string) { fmt.Fprintln(os.Stderr, warnStyle.Render(msg)) }
	a.Engine = engine

	meta := command.NewMetadataCache(provider, command.DefaultMetadataTTL)
	a.Handler = command.NewHandler(provider, engine, store, meta, community)

	return a, nil
}

// stringMap defensively copies viper's map so later mutation of the viper
// instance cannot alias into provider config.
func stringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arunsworld/nursery"
	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/match"
)

// Provider searches one remote source: failures are logged
// and yield no hits, they never reach the caller
type Provider interface {
	Source() entity.Source
	Search(ctx context.Context, keyword string) []entity.Hit
}

// Func turns a plain function into a Provider
type Func struct {
	Name entity.Source
	Fn   func(ctx context.Context, keyword string) []entity.Hit
}

func (provider Func) Source() entity.Source {
	return provider.Name
}

func (provider Func) Search(ctx context.Context, keyword string) []entity.Hit {
	return provider.Fn(ctx, keyword)
}

// SearchAll queries every provider concurrently and, once all of them
// returned, concatenates their hits in providers order
func SearchAll(ctx context.Context, keyword string, providers ...Provider) ([]entity.Hit, error) {
	if len(providers) == 0 {
		return nil, entity.ErrNoSources
	}

	var (
		slots    = make([][]entity.Hit, len(providers))
		routines = make([]nursery.ConcurrentJob, len(providers))
	)
	for i, provider := range providers {
		routines[i] = func(context.Context, chan error) {
			slots[i] = provider.Search(ctx, keyword)
		}
	}
	if err := nursery.RunConcurrently(routines...); err != nil {
		return nil, err
	}

	hits := []entity.Hit{}
	for _, slot := range slots {
		hits = append(hits, slot...)
	}
	return hits, nil
}

// Sources lists the source of every provider
func Sources(providers ...Provider) []entity.Source {
	sources := make([]entity.Source, len(providers))
	for i, provider := range providers {
		sources[i] = provider.Source()
	}
	return sources
}

// FromConfig builds the enabled providers, in configuration order
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	matcher, err := match.ByName(cfg.Sources.Matcher)
	if err != nil {
		return nil, err
	}

	var (
		providers []Provider
		opts      = Options{
			UserAgent: cfg.Network.UserAgent,
			Timeout:   cfg.Network.SearchTimeout,
			Logger:    logger,
		}
	)
	for _, name := range cfg.Sources.Enabled {
		switch entity.Source(name) {
		case entity.SourceGetwater:
			opts.BaseURL = cfg.Sources.GetwaterURL
			providers = append(providers, NewGetwater(opts))
		case entity.SourceCwy:
			opts.BaseURL = cfg.Sources.CwyURL
			providers = append(providers, NewCwy(opts, matcher))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return providers, nil
}

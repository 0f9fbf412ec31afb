package parser

import (
	"context"
	"fmt"
	"log/slog"

	"Sentinela/internal/config"
	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
	"Sentinela/internal/scanner"
)

// SiteSource implements ports.ItemSource for one configured site via its scanner strategy.
type SiteSource struct {
	site     config.SiteConfig
	strategy scanner.Scanner
	logger   *slog.Logger
}

var _ ports.ItemSource = (*SiteSource)(nil)

// BuildSources resolves the scanner of every configured site, keeping config order.
func BuildSources(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) ([]ports.ItemSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	sources := make([]ports.ItemSource, 0, len(sites))
	for _, site := range sites {
		if site.Disabled {
			continue
		}
		strategy, err := reg.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		sources = append(sources, &SiteSource{site: site, strategy: strategy, logger: log})
	}
	return sources, nil
}

// Name returns the configured site name.
func (s *SiteSource) Name() string {
	return s.site.Name
}

// Fetch runs the site's scanner; errors are returned to the caller untouched.
func (s *SiteSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	s.debug("scan site", "site", s.site.Name, "scanner", s.site.Scanner, "url", s.site.URL)

	results, err := s.strategy.Scan(ctx, scanner.Request{
		SiteName: s.site.Name,
		URL:      s.site.URL,
		Options:  s.site.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", s.site.Name, err)
	}

	for i := range results {
		if results[i].Source == "" {
			results[i].Source = s.site.Name
		}
	}
	s.debug("site produced items", "site", s.site.Name, "count", len(results))
	return results, nil
}

func (s *SiteSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

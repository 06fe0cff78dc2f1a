package config

import (
	"context"
	"log/slog"
	"net/url"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: store.driver", "value", s.Store.Driver)
	logger.InfoContext(ctx, "Config: store.dsn", "value", MaskDSN(s.Store.DSN))

	logger.InfoContext(ctx, "Config: search.backend", "value", s.Search.Backend)
	logger.InfoContext(ctx, "Config: search.index", "value", s.Search.Index)
	switch s.Search.Backend {
	case SearchBackendBleve:
		path := s.Search.Path
		if path == "" {
			path = "(memory)"
		}
		logger.InfoContext(ctx, "Config: search.path", "value", path)
	case SearchBackendElasticsearch:
		logger.InfoContext(ctx, "Config: search.addresses", "value", s.Search.Addresses)
		if s.Search.Username != "" {
			logger.InfoContext(ctx, "Config: search.username", "value", s.Search.Username)
			logger.InfoContext(ctx, "Config: search.password", "value", "****")
		}
	}
}

// MaskDSN hides the password of a URL-style DSN. Other DSN forms are returned unchanged.
func MaskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "****")
	return u.String()
}

// SearchSettingsLogValue returns a slog.Value for SearchSettings with masked data
func SearchSettingsLogValue(s SearchSettings) slog.Value {
	password := ""
	if s.Password != "" {
		password = "****"
	}
	return slog.GroupValue(
		slog.String("backend", s.Backend),
		slog.String("index", s.Index),
		slog.String("path", s.Path),
		slog.Any("addresses", s.Addresses),
		slog.String("username", s.Username),
		slog.String("password", password),
		slog.Int("max_results", s.MaxResults),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Group("store",
			slog.String("driver", s.Store.Driver),
			slog.String("dsn", MaskDSN(s.Store.DSN)),
		),
		slog.Any("search", SearchSettingsLogValue(s.Search)),
	)
}

// Package bootstrap seeds the records the service needs on first start.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/config"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
)

// EnsureCompound creates the default compound for dev/e2e if missing.
func EnsureCompound(lc fx.Lifecycle, cfg config.Config, compounds repository.CompoundRepository, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureCompound(ctx, cfg, compounds, node, logger)
		},
	})
}

func ensureCompound(ctx context.Context, cfg config.Config, compounds repository.CompoundRepository, node *snowflake.Node, logger *zap.Logger) error {
	slug := strings.ToLower(strings.TrimSpace(cfg.DefaultCompoundSlug))
	if slug == "" {
		return fmt.Errorf("compound bootstrap missing slug")
	}

	if _, err := compounds.GetBySlug(ctx, slug); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup compound: %w", err)
	}

	now := time.Now().UTC()
	compound := domain.Compound{
		ID:           node.Generate().Int64(),
		Slug:         slug,
		Name:         cfg.DefaultCompoundName,
		AdminSubject: cfg.DefaultCompoundAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := compounds.Create(ctx, compound)
	if err != nil {
		return fmt.Errorf("bootstrap create compound: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap compound created",
			zap.String("slug", created.Slug),
			zap.Int64("compound_id", created.ID),
		)
	}
	return nil
}

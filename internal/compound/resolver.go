// Package compound resolves the tenancy boundary for each request.
package compound

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
)

// Context stores the resolved compound used throughout the request lifecycle.
type Context struct {
	Compound domain.Compound
}

// Resolver loads compound metadata from the repository.
type Resolver struct {
	repo repository.CompoundRepository
}

// NewResolver creates a compound resolver.
func NewResolver(repo repository.CompoundRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve accepts either a numeric compound ID or a slug.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Context, error) {
	cleaned := strings.ToLower(strings.TrimSpace(ref))
	if cleaned == "" {
		zap.L().Warn("compound resolver received empty reference")
		return nil, fmt.Errorf("resolve compound: empty reference")
	}

	var (
		compound domain.Compound
		err      error
	)
	if id, convErr := strconv.ParseInt(cleaned, 10, 64); convErr == nil {
		compound, err = r.repo.GetByID(ctx, id)
	} else {
		compound, err = r.repo.GetBySlug(ctx, cleaned)
	}
	if err != nil {
		zap.L().Error("failed to resolve compound", zap.String("ref", cleaned), zap.Error(err))
		return nil, fmt.Errorf("resolve compound: %w", err)
	}

	zap.L().Debug("compound resolved", zap.Int64("compound_id", compound.ID), zap.String("slug", compound.Slug))
	return &Context{Compound: compound}, nil
}

// Package identity resolves inconsistently formatted phone, email, and
// external identity inputs to candidate user records through an explicit,
// ordered strategy chain.
package identity

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/domain"
)

// Strategy tags the step of the chain that produced a result, so matches are
// auditable and each confidence level stays separate.
type Strategy string

const (
	StrategyNone         Strategy = ""
	StrategyIDMatch      Strategy = "IdMatch"
	StrategyExactPhone   Strategy = "ExactPhone"
	StrategySuffixPhone  Strategy = "SuffixPhone"
	StrategyExactEmail   Strategy = "ExactEmail"
	StrategyPartialEmail Strategy = "PartialEmail"
)

const suffixLength = 10

// Directory is the user lookup surface the resolver needs.
type Directory interface {
	FindByField(ctx context.Context, field string, value any) ([]domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// Query carries the identity hints supplied by the caller. Any subset may be
// set; empty hints skip their strategies.
type Query struct {
	Phone      string
	Email      string
	IdentityID string
}

// Resolver maps identity hints to user records.
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver creates a resolver over the given user directory.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.L()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve runs the strategy chain in strict precedence order and
// short-circuits at the first step yielding at least one match. A no-match
// outcome is an empty slice with StrategyNone, never an error; errors are
// reserved for directory failures.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]domain.User, Strategy, error) {
	type step struct {
		strategy Strategy
		run      func(context.Context) ([]domain.User, error)
	}

	steps := []step{
		{StrategyIDMatch, func(ctx context.Context) ([]domain.User, error) { return r.byIdentityID(ctx, q.IdentityID) }},
		{StrategyExactPhone, func(ctx context.Context) ([]domain.User, error) { return r.byPhoneVariants(ctx, q.Phone) }},
		{StrategySuffixPhone, func(ctx context.Context) ([]domain.User, error) { return r.byPhoneSuffix(ctx, q.Phone) }},
		{StrategyExactEmail, func(ctx context.Context) ([]domain.User, error) { return r.byExactEmail(ctx, q.Email) }},
		{StrategyPartialEmail, func(ctx context.Context) ([]domain.User, error) { return r.byPartialEmail(ctx, q.Email) }},
	}

	for _, s := range steps {
		users, err := s.run(ctx)
		if err != nil {
			return nil, StrategyNone, fmt.Errorf("resolve %s: %w", s.strategy, err)
		}
		r.logger.Debug("identity strategy evaluated",
			zap.String("strategy", string(s.strategy)),
			zap.Int("candidates", len(users)),
		)
		if len(users) > 0 {
			return users, s.strategy, nil
		}
	}

	return nil, StrategyNone, nil
}

func (r *Resolver) byIdentityID(ctx context.Context, identityID string) ([]domain.User, error) {
	id := strings.TrimSpace(identityID)
	if id == "" {
		return nil, nil
	}
	all, err := r.dir.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var matches []domain.User
	for _, user := range all {
		if user.ExternalAuthID != "" && user.ExternalAuthID == id {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (r *Resolver) byPhoneVariants(ctx context.Context, phone string) ([]domain.User, error) {
	variants := PhoneVariants(phone)
	if len(variants) == 0 {
		return nil, nil
	}
	seen := make(map[int64]struct{})
	var matches []domain.User
	for _, variant := range variants {
		users, err := r.dir.FindByField(ctx, "phone", variant)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			if _, ok := seen[user.ID]; ok {
				continue
			}
			seen[user.ID] = struct{}{}
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (r *Resolver) byPhoneSuffix(ctx context.Context, phone string) ([]domain.User, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, nil
	}
	suffix := SuffixDigits(phone, suffixLength)

	all, err := r.dir.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var matches []domain.User
	for _, user := range all {
		if user.Phone == "" {
			continue
		}
		userNormalized := NormalizePhone(user.Phone)
		if userNormalized == normalized || SuffixDigits(user.Phone, suffixLength) == suffix {
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func (r *Resolver) byExactEmail(ctx context.Context, email string) ([]domain.User, error) {
	cleaned := strings.ToLower(strings.TrimSpace(email))
	if cleaned == "" {
		return nil, nil
	}
	return r.dir.FindByField(ctx, "email", cleaned)
}

// byPartialEmail matches when either address contains the other's local part
// or the domains are equal. Deliberately broad; it is the lowest-confidence
// step of the chain and only runs when everything above it found nothing.
func (r *Resolver) byPartialEmail(ctx context.Context, email string) ([]domain.User, error) {
	cleaned := strings.ToLower(strings.TrimSpace(email))
	if cleaned == "" {
		return nil, nil
	}
	local, domainPart := splitEmail(cleaned)

	all, err := r.dir.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var matches []domain.User
	for _, user := range all {
		candidate := strings.ToLower(strings.TrimSpace(user.Email))
		if candidate == "" {
			continue
		}
		candidateLocal, candidateDomain := splitEmail(candidate)
		switch {
		case local != "" && strings.Contains(candidate, local):
			matches = append(matches, user)
		case candidateLocal != "" && strings.Contains(cleaned, candidateLocal):
			matches = append(matches, user)
		case domainPart != "" && domainPart == candidateDomain:
			matches = append(matches, user)
		}
	}
	return matches, nil
}

func splitEmail(email string) (local, domainPart string) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", ""
	}
	return email[:at], email[at+1:]
}

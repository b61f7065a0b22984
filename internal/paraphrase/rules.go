package paraphrase

import (
	"context"
	"errors"

	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// Rule-change actions recorded in telemetry.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionReset  = "reset"
)

// ListRules returns the user rules ordered by (category, original).
func (s *Service) ListRules(ctx context.Context) ([]phrases.Rule, error) {
	rules, err := s.catalog.List(ctx)
	if err != nil {
		s.alerts.FlagStoreFailure(monitoring.RequestIDFromContext(ctx), "list", err)
		return nil, err
	}
	return rules, nil
}

// AddRule validates and stores a new rule.
func (s *Service) AddRule(ctx context.Context, rule phrases.Rule) (phrases.Rule, error) {
	added, err := s.catalog.Add(ctx, rule)
	event := &monitoring.RuleChangeEvent{
		Action:   ActionAdd,
		RuleID:   added.ID,
		Original: rule.Original,
		Category: string(rule.Category),
	}
	s.recordChange(ctx, event, err)
	return added, err
}

// RemoveRule deletes a rule by ID.
func (s *Service) RemoveRule(ctx context.Context, id string) error {
	err := s.catalog.Remove(ctx, id)
	s.recordChange(ctx, &monitoring.RuleChangeEvent{Action: ActionRemove, RuleID: id}, err)
	return err
}

// ResetRules replaces every user rule.
func (s *Service) ResetRules(ctx context.Context, rules []phrases.Rule) error {
	err := s.catalog.Reset(ctx, rules)
	s.recordChange(ctx, &monitoring.RuleChangeEvent{Action: ActionReset, Count: len(rules)}, err)
	return err
}

func (s *Service) recordChange(ctx context.Context, event *monitoring.RuleChangeEvent, err error) {
	requestID := monitoring.RequestIDFromContext(ctx)
	if err == nil {
		s.metrics.RecordRuleChange()
	} else if isStoreFailure(err) {
		s.alerts.FlagStoreFailure(requestID, event.Action, err)
	}

	if !s.tracker.Enabled() {
		return
	}
	event.RequestID = requestID
	event.Timestamp = s.now().UTC()
	event.Success = err == nil
	if err != nil {
		event.Error = err.Error()
	}
	s.tracker.RecordRuleChange(event)
}

// isStoreFailure reports whether err came from the backend rather than from
// the caller's input.
func isStoreFailure(err error) bool {
	return !errors.Is(err, phrases.ErrValidation) &&
		!errors.Is(err, phrases.ErrDuplicateRule) &&
		!errors.Is(err, phrases.ErrNotFound)
}

package wbs

import (
	"fmt"
	"strings"
)

// Strategy names accepted from configuration and transports.
const (
	StrategyExplicitParent   = "explicit_parent"
	StrategyNamingConvention = "naming_convention"
)

// DefaultDelimiter splits titles such as "Design / Backend / Schema".
const DefaultDelimiter = "/"

// GroupingStrategy decides how a flat task list becomes a hierarchy.
// The set of strategies is closed: only this package provides implementations.
type GroupingStrategy interface {
	Name() string
	assemble(b *builder)
}

// ByExplicitParent groups tasks by their ParentID field.
type ByExplicitParent struct{}

// Name returns the strategy identifier.
func (ByExplicitParent) Name() string { return StrategyExplicitParent }

// ByNamingConvention infers hierarchy depth by splitting titles on Delimiter.
type ByNamingConvention struct {
	Delimiter string
}

// Name returns the strategy identifier.
func (ByNamingConvention) Name() string { return StrategyNamingConvention }

func (s ByNamingConvention) delimiter() string {
	if s.Delimiter == "" {
		return DefaultDelimiter
	}
	return s.Delimiter
}

// ParseStrategy maps a strategy name to its implementation.
func ParseStrategy(name, delimiter string) (GroupingStrategy, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", StrategyExplicitParent:
		return ByExplicitParent{}, nil
	case StrategyNamingConvention:
		return ByNamingConvention{Delimiter: delimiter}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

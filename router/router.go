/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package router

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/cases"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/storagemodels"
)

// Named access patterns.
const (
	// MessagesAndDocsForSession items share a range value per entity_type, so ts
	// ordering holds within each page only. Read a session with one unlimited page,
	// or sort across pages, when a global ts order matters.
	MessagesAndDocsForSession = "messagesAndDocsForSession"
	EventsForAssessment       = "eventsForAssessment"
	AssessmentsByState        = "assessmentsByState"
	AssessmentsByTitle        = "assessmentsByTitle"
	ItemsByType               = "itemsByType"
	DocumentsForAssessment    = "documentsForAssessment"
	ReviewsForAssessment      = "reviewsForAssessment"
)

var allOperators = []storagemodels.RangeOperator{
	storagemodels.RangeEquals,
	storagemodels.RangeBeginsWith,
	storagemodels.RangeBetween,
	storagemodels.RangeGreaterThan,
	storagemodels.RangeGreaterOrEqual,
	storagemodels.RangeLessThan,
	storagemodels.RangeLessOrEqual,
}

// Route binds an access pattern to exactly one index.
type Route struct {
	Name  string
	Index string

	// HashPrefix is prepended to the caller's hash value.
	HashPrefix string
	// Casefold folds the caller's hash value the way the registry folds titles.
	Casefold bool

	// RangePrefix is always applied as begins_with; a caller Prefix is appended to it.
	RangePrefix string
	// Operators lists the range conditions callers may add.
	Operators []storagemodels.RangeOperator

	Descending bool
}

// DefaultRoutes returns the access patterns served by the default schema.
func DefaultRoutes() []Route {
	return []Route{
		{
			Name:      MessagesAndDocsForSession,
			Index:     "gsi2-session-entity",
			Operators: []storagemodels.RangeOperator{storagemodels.RangeEquals, storagemodels.RangeBeginsWith},
		},
		{
			Name:      EventsForAssessment,
			Index:     "gsi3-assessment-events",
			Operators: []storagemodels.RangeOperator{storagemodels.RangeEquals, storagemodels.RangeBeginsWith},
		},
		{
			Name:       AssessmentsByState,
			Index:      "gsi4-state-updated",
			Operators:  allOperators,
			Descending: true,
		},
		{
			Name:      AssessmentsByTitle,
			Index:     "gsi5-title-search",
			Casefold:  true,
			Operators: allOperators,
		},
		{
			Name:      ItemsByType,
			Index:     "gsi6-entity-type",
			Operators: allOperators,
		},
		{
			Name:        DocumentsForAssessment,
			Index:       "gsi1-assessment-documents",
			HashPrefix:  "ASSESSMENT#",
			RangePrefix: "DOC#",
			Operators:   []storagemodels.RangeOperator{storagemodels.RangeBeginsWith},
		},
		{
			Name:        ReviewsForAssessment,
			Index:       "gsi3-assessment-events",
			RangePrefix: "assessment_review",
		},
	}
}

// Plan is a resolved query: one index, one hash value, at most one range condition.
type Plan struct {
	Operation string
	// Hash is the hash value after the route's transform; cursors bind to it.
	Hash   string
	Cursor string
	// RangeKey is the index's range attribute, set whether or not a condition is.
	RangeKey string
	TieBreak []string
	// KeyAttributes name the attributes of a continuation key: the table key followed
	// by the index key.
	KeyAttributes []string
	Params        storagemodels.QueryParams
}

// Router maps named operations to index queries. It never produces a scan.
type Router struct {
	mu       sync.RWMutex
	registry *registry.Registry
	routes   map[string]Route
}

// New creates a router with the given routes, or DefaultRoutes when none are given.
func New(reg *registry.Registry, routes ...Route) (*Router, error) {
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}
	r := &Router{
		registry: reg,
		routes:   make(map[string]Route, len(routes)),
	}
	for _, route := range routes {
		if err := r.Register(route); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an access pattern. Its index must exist in the schema.
func (r *Router) Register(route Route) error {
	if route.Name == "" {
		return fmt.Errorf("route has no name")
	}
	if _, err := r.registry.Index(route.Index); err != nil {
		return fmt.Errorf("route %s: %w", route.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[route.Name]; exists {
		return fmt.Errorf("route %s is already registered", route.Name)
	}
	r.routes[route.Name] = route
	return nil
}

// Route returns a registered access pattern.
func (r *Router) Route(name string) (Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[name]
	if !ok {
		return Route{}, errors.NewUnknownOperationError(name)
	}
	return route, nil
}

// Operations returns the registered operation names in sorted order.
func (r *Router) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan resolves an operation call into an index query.
func (r *Router) Plan(operation, hash string, opts ...Option) (*Plan, error) {
	route, err := r.Route(operation)
	if err != nil {
		return nil, err
	}
	idx, err := r.registry.Index(route.Index)
	if err != nil {
		return nil, err
	}

	o := NewOptions(opts...)
	if hash == "" {
		return nil, errInvalid("hash", operation+" needs a hash value")
	}
	if o.Limit < 0 {
		return nil, errInvalid("limit", "limit must not be negative")
	}

	if route.Casefold {
		hash = cases.Fold().String(hash)
	}
	hash = route.HashPrefix + hash

	cond, err := o.rangeCondition()
	if err != nil {
		return nil, err
	}
	if cond != nil {
		if !allowed(route.Operators, cond.Operator) {
			return nil, errInvalid("range", fmt.Sprintf("%s does not accept a %q range condition", operation, cond.Operator))
		}
		if len(cond.Values) != cond.Operator.Arity() {
			return nil, errInvalid("range", fmt.Sprintf("%q takes %d values", cond.Operator, cond.Operator.Arity()))
		}
	}
	if route.RangePrefix != "" {
		prefix := route.RangePrefix
		if cond != nil {
			prefix += cond.Values[0]
		}
		cond = &storagemodels.RangeCondition{Operator: storagemodels.RangeBeginsWith, Values: []string{prefix}}
	}

	if cond != nil && idx.RangeAttribute == "" {
		return nil, errInvalid("range", "index "+idx.Name+" has no range key")
	}

	descending := route.Descending
	if o.Descending != nil {
		descending = *o.Descending
	}

	table := r.registry.Definition()
	keyAttrs := []string{table.PartitionKeyAttribute, table.SortKeyAttribute, idx.HashAttribute}
	if idx.RangeAttribute != "" {
		keyAttrs = append(keyAttrs, idx.RangeAttribute)
	}

	plan := &Plan{
		Operation:     operation,
		Hash:          hash,
		Cursor:        o.Cursor,
		RangeKey:      idx.RangeAttribute,
		TieBreak:      idx.TieBreak,
		KeyAttributes: keyAttrs,
		Params: storagemodels.QueryParams{
			IndexName:     idx.Name,
			HashAttribute: idx.HashAttribute,
			HashValue:     hash,
			Limit:         o.Limit,
			Descending:    descending,
		},
	}
	if cond != nil {
		plan.Params.RangeAttribute = idx.RangeAttribute
		plan.Params.Range = cond
	}
	return plan, nil
}

func allowed(ops []storagemodels.RangeOperator, op storagemodels.RangeOperator) bool {
	for _, candidate := range ops {
		if candidate == op {
			return true
		}
	}
	return false
}

func errInvalid(field, message string) error {
	return errors.NewValidationError(field, message)
}

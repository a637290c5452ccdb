/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package router

import "github.com/suparena/trastore/storagemodels"

// Options are the caller-facing query options of a named access pattern. At most one
// range condition (Equals, Prefix, Between, After/Before or Range) may be set.
type Options struct {
	Limit  int32  // Page size; zero leaves it to the store
	Cursor string // Opaque continuation token from a previous page

	// Descending overrides the route's default order when set.
	Descending *bool

	Equals  string
	Prefix  string
	Between []string // inclusive [low, high]
	After   string   // exclusive; combined with Before it becomes an inclusive Between
	Before  string   // exclusive
	Range   *storagemodels.RangeCondition
}

// Option is a functional option for configuring a query
type Option func(*Options)

// NewOptions applies opts to zero Options.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLimit sets the page size
func WithLimit(n int32) Option {
	return func(o *Options) {
		o.Limit = n
	}
}

// WithCursor resumes a previous query
func WithCursor(cursor string) Option {
	return func(o *Options) {
		o.Cursor = cursor
	}
}

// WithDescending overrides the route's default order
func WithDescending(descending bool) Option {
	return func(o *Options) {
		o.Descending = &descending
	}
}

// WithEquals restricts the range key to one value
func WithEquals(v string) Option {
	return func(o *Options) {
		o.Equals = v
	}
}

// WithPrefix restricts the range key to values starting with prefix
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithBetween restricts the range key to [low, high]
func WithBetween(low, high string) Option {
	return func(o *Options) {
		o.Between = []string{low, high}
	}
}

// WithAfter restricts the range key to values greater than v
func WithAfter(v string) Option {
	return func(o *Options) {
		o.After = v
	}
}

// WithBefore restricts the range key to values less than v
func WithBefore(v string) Option {
	return func(o *Options) {
		o.Before = v
	}
}

// WithRange sets an explicit range condition
func WithRange(op storagemodels.RangeOperator, values ...string) Option {
	return func(o *Options) {
		o.Range = &storagemodels.RangeCondition{Operator: op, Values: values}
	}
}

// rangeCondition folds the range options into one condition. nil means no condition.
func (o Options) rangeCondition() (*storagemodels.RangeCondition, error) {
	var conds []*storagemodels.RangeCondition
	if o.Equals != "" {
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeEquals, Values: []string{o.Equals}})
	}
	if o.Prefix != "" {
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeBeginsWith, Values: []string{o.Prefix}})
	}
	if o.Between != nil {
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeBetween, Values: o.Between})
	}
	switch {
	case o.After != "" && o.Before != "":
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeBetween, Values: []string{o.After, o.Before}})
	case o.After != "":
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeGreaterThan, Values: []string{o.After}})
	case o.Before != "":
		conds = append(conds, &storagemodels.RangeCondition{Operator: storagemodels.RangeLessThan, Values: []string{o.Before}})
	}
	if o.Range != nil {
		conds = append(conds, o.Range)
	}

	switch len(conds) {
	case 0:
		return nil, nil
	case 1:
		return conds[0], nil
	}
	return nil, errInvalid("range", "only one range condition may be given")
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package trastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/suparena/trastore/config"
	"github.com/suparena/trastore/datastore"
	"github.com/suparena/trastore/datastore/ddb"
	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/keys"
	"github.com/suparena/trastore/logging"
	"github.com/suparena/trastore/metrics"
	"github.com/suparena/trastore/models"
	"github.com/suparena/trastore/query"
	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/resilience"
	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
	"github.com/suparena/trastore/writer"
)

// Store is the data-access boundary: writes go through the single write path and
// reads through named access patterns. It is safe for concurrent use.
type Store struct {
	registry *registry.Registry
	router   *router.Router
	writer   *writer.Writer
	exec     *query.Executor
	store    datastore.DataStore
	retrier  *resilience.Retrier
	keys     *keys.Builder
	logger   *zap.Logger

	tsMu   sync.Mutex
	lastTs string
}

type options struct {
	logger  *zap.Logger
	retrier *resilience.Retrier
	metrics *metrics.Collector
	routes  []router.Route
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the parent logger; components log under named children.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRetrier replaces the retry policy shared by reads and writes.
func WithRetrier(r *resilience.Retrier) Option {
	return func(o *options) {
		o.retrier = r
	}
}

// WithMetrics records store calls on collector. Ignored when WithRetrier is used.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = collector
	}
}

// WithRoutes replaces the default access patterns.
func WithRoutes(routes ...router.Route) Option {
	return func(o *options) {
		o.routes = routes
	}
}

// New assembles a Store over an existing registry and data store.
func New(reg *registry.Registry, ds datastore.DataStore, opts ...Option) (*Store, error) {
	return build(reg, ds, resilience.DefaultConfig(), opts)
}

// Open loads the schema named by the settings (or the embedded default), connects to
// DynamoDB and assembles a Store with the configured retry policy.
func Open(ctx context.Context, s *config.Settings, opts ...Option) (*Store, error) {
	o := collect(opts)
	if o.logger == nil {
		logger, err := logging.New(s.LogLevel, s.LogFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger))
		o.logger = logger
	}

	var schema *registry.Schema
	var err error
	if s.SchemaFile != "" {
		schema, err = registry.LoadSchemaFile(s.SchemaFile)
	} else {
		schema, err = registry.DefaultSchema()
	}
	if err != nil {
		return nil, err
	}
	reg := registry.New(schema)

	ds, err := ddb.NewFromSettings(ctx, s, reg.Definition(), logging.Named(o.logger, "ddb"))
	if err != nil {
		return nil, err
	}
	return build(reg, ds, s.Retry(), opts)
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func build(reg *registry.Registry, ds datastore.DataStore, retry resilience.Config, opts []Option) (*Store, error) {
	o := collect(opts)
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retrier := o.retrier
	if retrier == nil {
		retrier = resilience.New(retry,
			resilience.WithLogger(logging.Named(logger, "retry")),
			resilience.WithMetrics(o.metrics),
		)
	}

	r, err := router.New(reg, o.routes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	return &Store{
		registry: reg,
		router:   r,
		writer:   writer.New(reg, ds, retrier, logging.Named(logger, "writer")),
		exec:     query.NewExecutor(r, ds, retrier, logging.Named(logger, "query")),
		store:    ds,
		retrier:  retrier,
		keys:     keys.NewBuilder(reg),
		logger:   logger,
	}, nil
}

// Registry returns the schema registry.
func (s *Store) Registry() *registry.Registry {
	return s.registry
}

// Router returns the access pattern router.
func (s *Store) Router() *router.Router {
	return s.router
}

// Put writes one entity of kind and returns its primary key. After a store failure
// the key the write was aimed at is returned with the error. A payload that leaves
// id or ts to be generated gets a new key on every call; retry with the item from
// Prepare instead.
func (s *Store) Put(ctx context.Context, kind string, payload storagemodels.Item) (storagemodels.Key, error) {
	res, err := s.writer.Put(ctx, kind, payload)
	if res == nil {
		return storagemodels.Key{}, err
	}
	return res.Key, err
}

// Prepare derives and validates a payload without writing it. The returned item has
// every generated attribute fixed, so putting it any number of times yields one item.
func (s *Store) Prepare(kind string, payload storagemodels.Item) (storagemodels.Item, storagemodels.Key, error) {
	res, err := s.writer.Prepare(kind, payload)
	if err != nil {
		return nil, storagemodels.Key{}, err
	}
	return res.Item, res.Key, nil
}

// PutEntity marshals a typed model and writes it under its kind.
func (s *Store) PutEntity(ctx context.Context, e models.Entity) (storagemodels.Key, error) {
	item, err := models.ToItem(e)
	if err != nil {
		return storagemodels.Key{}, err
	}
	return s.Put(ctx, e.Kind(), item)
}

// BatchPut writes many entities of one kind. Nothing is written if any payload is invalid.
func (s *Store) BatchPut(ctx context.Context, kind string, payloads []storagemodels.Item) ([]storagemodels.Key, error) {
	results, err := s.writer.BatchPut(ctx, kind, payloads)
	if err != nil {
		return nil, err
	}
	out := make([]storagemodels.Key, len(results))
	for i, res := range results {
		out[i] = res.Key
	}
	return out, nil
}

// Update merges changes into the item identified by ids and rewrites it.
func (s *Store) Update(ctx context.Context, kind string, ids []string, changes storagemodels.Item) (storagemodels.Item, error) {
	idItem, err := s.idAttributes(kind, ids)
	if err != nil {
		return nil, err
	}
	res, err := s.writer.Update(ctx, kind, idItem, changes)
	if err != nil {
		return nil, err
	}
	return res.Item, nil
}

// Move is Update for changes to identifying attributes.
func (s *Store) Move(ctx context.Context, kind string, ids []string, changes storagemodels.Item) (storagemodels.Item, error) {
	idItem, err := s.idAttributes(kind, ids)
	if err != nil {
		return nil, err
	}
	res, err := s.writer.Move(ctx, kind, idItem, changes)
	if err != nil {
		return nil, err
	}
	return res.Item, nil
}

// Get is a strongly-consistent read by primary key. A miss is a NotFoundError.
func (s *Store) Get(ctx context.Context, key storagemodels.Key) (storagemodels.Item, error) {
	return resilience.Call(ctx, s.retrier, "GetItem", func(ctx context.Context) (storagemodels.Item, error) {
		return s.store.GetItem(ctx, key)
	})
}

// GetByID reads an item of kind by its identifying attributes, given in the order
// the schema declares them.
func (s *Store) GetByID(ctx context.Context, kind string, ids ...string) (storagemodels.Item, error) {
	idItem, err := s.idAttributes(kind, ids)
	if err != nil {
		return nil, err
	}
	key, err := s.keys.PrimaryKey(kind, idItem)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

// GetAs reads the entity of T's registered kind and decodes it.
func GetAs[T any](ctx context.Context, s *Store, ids ...string) (*T, error) {
	kind, ok := registry.KindOf[T]()
	if !ok {
		var zero T
		return nil, errors.NewUnknownKindError(fmt.Sprintf("%T", zero))
	}
	item, err := s.GetByID(ctx, kind, ids...)
	if err != nil {
		return nil, err
	}
	return models.FromItem[T](item)
}

// Query runs one page of a named access pattern.
func (s *Store) Query(ctx context.Context, operation, hash string, opts ...router.Option) (*query.Page, error) {
	return s.exec.Page(ctx, operation, hash, opts...)
}

// QueryAs runs one page and decodes every item into T. It returns the page cursor.
func QueryAs[T any](ctx context.Context, s *Store, operation, hash string, opts ...router.Option) ([]T, string, error) {
	page, err := s.Query(ctx, operation, hash, opts...)
	if err != nil {
		return nil, "", err
	}
	out := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		v, err := models.FromItem[T](item)
		if err != nil {
			return nil, "", err
		}
		out = append(out, *v)
	}
	return out, page.Cursor, nil
}

// Iterate walks every page of a named access pattern lazily.
func (s *Store) Iterate(operation, hash string, opts ...router.Option) *query.Iterator {
	return s.exec.Iterate(operation, hash, opts...)
}

// Stream delivers a named access pattern's items on a channel.
func (s *Store) Stream(ctx context.Context, operation, hash string, routeOpts []router.Option, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Item] {
	return s.exec.Stream(ctx, operation, hash, routeOpts, opts...)
}

// HealthStatus reports table reachability and schema agreement.
type HealthStatus struct {
	Table          string   `json:"table"`
	Status         string   `json:"status"`
	ItemCount      int64    `json:"item_count"`
	Breaker        string   `json:"breaker"`
	MissingIndexes []string `json:"missing_indexes,omitempty"`
	Healthy        bool     `json:"healthy"`
}

// Health describes the table and checks every declared index exists with the declared
// key attributes.
func (s *Store) Health(ctx context.Context) (*HealthStatus, error) {
	desc, err := resilience.Call(ctx, s.retrier, "DescribeTable", func(ctx context.Context) (*storagemodels.TableDescription, error) {
		return s.store.Describe(ctx)
	})
	if err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return nil, err
	}

	status := &HealthStatus{
		Table:     desc.Name,
		Status:    desc.Status,
		ItemCount: desc.ItemCount,
		Breaker:   s.retrier.State().String(),
	}
	for _, m := range ddb.CompareIndexes(s.registry.Definition().Indexes, desc) {
		status.MissingIndexes = append(status.MissingIndexes, m.String())
	}
	status.Healthy = desc.Status == "ACTIVE" &&
		len(status.MissingIndexes) == 0 &&
		s.retrier.State() != gobreaker.StateOpen
	return status, nil
}

// idAttributes maps positional ids onto the kind's identifying attributes.
func (s *Store) idAttributes(kind string, ids []string) (storagemodels.Item, error) {
	spec, err := s.registry.Kind(kind)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(spec.IDs) {
		return nil, errors.NewValidationError("ids", fmt.Sprintf("%s is identified by %v, got %d values", kind, spec.IDs, len(ids)))
	}
	item := make(storagemodels.Item, len(ids))
	for i, attr := range spec.IDs {
		item[attr] = &types.AttributeValueMemberS{Value: ids[i]}
	}
	return item, nil
}

// nextTimestamp returns a registry timestamp strictly after any this Store handed out
// before, so events and messages written in the same millisecond keep distinct keys.
func (s *Store) nextTimestamp() string {
	s.tsMu.Lock()
	defer s.tsMu.Unlock()

	ts := s.registry.Timestamp()
	if ts <= s.lastTs {
		if last, err := strfmt.ParseDateTime(s.lastTs); err == nil {
			ts = strfmt.DateTime(time.Time(last).Add(time.Millisecond).UTC()).String()
		}
	}
	s.lastTs = ts
	return ts
}

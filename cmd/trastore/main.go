/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/suparena/trastore"
	"github.com/suparena/trastore/config"
	"github.com/suparena/trastore/logging"
	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/router"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	envFile     = flag.String("env", ".env", "Optional .env file")
)

const usage = `usage: trastore [-version] [-env file] <command> [flags]

commands:
  schema   print the effective schema as YAML
  ops      list the named access patterns
  health   describe the table and check its indexes
  query    run one page of a named access pattern
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *versionFlag || *vFlag {
		info := trastore.GetVersionInfo()
		fmt.Printf("trastore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch args[0] {
	case "schema":
		err = runSchema()
	case "ops":
		err = runOps()
	case "health":
		err = withStore(ctx, func(s *trastore.Store) error { return runHealth(ctx, s) })
	case "query":
		err = withStore(ctx, func(s *trastore.Store) error { return runQuery(ctx, s, args[1:]) })
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func localRegistry() (*registry.Registry, error) {
	if path := os.Getenv("TRASTORE_SCHEMA_FILE"); path != "" {
		schema, err := registry.LoadSchemaFile(path)
		if err != nil {
			return nil, err
		}
		return registry.New(schema), nil
	}
	return registry.Default()
}

func runSchema() error {
	reg, err := localRegistry()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(reg.Schema())
}

func runOps() error {
	reg, err := localRegistry()
	if err != nil {
		return err
	}
	r, err := router.New(reg)
	if err != nil {
		return err
	}
	for _, name := range r.Operations() {
		route, _ := r.Route(name)
		fmt.Printf("%-28s %s\n", name, route.Index)
	}
	return nil
}

func withStore(ctx context.Context, fn func(*trastore.Store) error) error {
	settings, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := trastore.Open(ctx, settings, trastore.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Debug("store opened", zap.String("table", settings.TableName))
	return fn(s)
}

func runHealth(ctx context.Context, s *trastore.Store) error {
	status, err := s.Health(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(status); err != nil {
		return err
	}
	if !status.Healthy {
		return fmt.Errorf("table %s is not healthy", status.Table)
	}
	return nil
}

func runQuery(ctx context.Context, s *trastore.Store, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	op := fs.String("op", "", "Access pattern name (see ops)")
	hash := fs.String("hash", "", "Hash key value")
	limit := fs.Int("limit", 20, "Page size")
	cursor := fs.String("cursor", "", "Cursor from a previous page")
	eq := fs.String("eq", "", "Range key equals")
	prefix := fs.String("prefix", "", "Range key begins with")
	between := fs.String("between", "", "Inclusive range as low,high")
	desc := fs.Bool("desc", false, "Descending order")
	asc := fs.Bool("asc", false, "Ascending order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *op == "" || *hash == "" {
		return fmt.Errorf("query needs -op and -hash")
	}

	opts := []router.Option{router.WithLimit(int32(*limit))}
	if *cursor != "" {
		opts = append(opts, router.WithCursor(*cursor))
	}
	if *eq != "" {
		opts = append(opts, router.WithEquals(*eq))
	}
	if *prefix != "" {
		opts = append(opts, router.WithPrefix(*prefix))
	}
	if *between != "" {
		low, high, ok := strings.Cut(*between, ",")
		if !ok {
			return fmt.Errorf("-between wants low,high")
		}
		opts = append(opts, router.WithBetween(low, high))
	}
	switch {
	case *desc:
		opts = append(opts, router.WithDescending(true))
	case *asc:
		opts = append(opts, router.WithDescending(false))
	}

	page, err := s.Query(ctx, *op, *hash, opts...)
	if err != nil {
		return err
	}

	items := make([]map[string]interface{}, 0, len(page.Items))
	for _, item := range page.Items {
		var m map[string]interface{}
		if err := attributevalue.UnmarshalMap(item, &m); err != nil {
			return fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, m)
	}
	return printJSON(map[string]interface{}{
		"items":  items,
		"cursor": page.Cursor,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

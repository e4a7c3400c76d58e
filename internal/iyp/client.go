package iyp

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ClientConfig holds Bolt connection settings.
type ClientConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Client is the Neo4j-backed Executor.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// Dial connects to the IYP instance and verifies reachability.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, &DataSourceError{Op: "dial", Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &DataSourceError{Op: "dial", Err: fmt.Errorf("verifying %s: %w", cfg.URI, err)}
	}
	return &Client{driver: driver, database: cfg.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Execute runs one read-only query and eagerly collects the result.
func (c *Client) Execute(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	res, err := neo4j.ExecuteQuery(ctx, c.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, &DataSourceError{Op: "query", Err: err}
	}

	out := &Result{Keys: res.Keys, Rows: make([][]any, 0, len(res.Records))}
	for _, rec := range res.Records {
		out.Rows = append(out.Rows, rec.Values)
	}
	return out, nil
}

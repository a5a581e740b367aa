// Package common provides shared container fixtures for integration tests.
package common

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/bagboard/internal/common"
)

// Credentials and namespace every bagboard test database lives under.
const (
	SurrealUser      = "root"
	SurrealPass      = "root"
	SurrealNamespace = "bagboard_test"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer wraps a testcontainers SurrealDB instance.
type SurrealDBContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// StartSurrealDB starts the SurrealDB container shared by every storage and
// API test in the process. Tests isolate themselves by database, see
// StorageConfig.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", SurrealUser, "--pass", SurrealPass},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealContainer = &SurrealDBContainer{
			container: container,
			host:      host,
			port:      mappedPort.Port(),
		}
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}

	return surrealContainer
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// StorageConfig returns a surrealdb storage config pointing at a database
// of its own for t.
func (c *SurrealDBContainer) StorageConfig(t *testing.T) common.StorageConfig {
	return common.StorageConfig{
		Backend:   "surrealdb",
		Address:   c.Address(),
		Namespace: SurrealNamespace,
		Database:  DatabaseName(t),
		Username:  SurrealUser,
		Password:  SurrealPass,
	}
}

// DatabaseName derives a unique database name from the test name. Subtest
// names contain "/", which SurrealDB rejects.
func DatabaseName(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	return fmt.Sprintf("t_%s_%d", strings.ToLower(name), time.Now().UnixNano())
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}

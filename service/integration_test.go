package service

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/postgres"
	"github.com/ridematch/ridematch/postgres/migrator"
	"github.com/ridematch/ridematch/pubsub"
	"github.com/ridematch/ridematch/types"
)

var (
	testDB       *pgxpool.Pool
	testPostgres *postgres.Postgres
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	var skipIntegration bool
	flag.BoolVar(&skipIntegration, "skip-integration", false, "Skip integration tests docker setup")
	flag.Parse()

	if skipIntegration || testing.Short() {
		return m.Run()
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Printf("could not create docker pool: %v\n", err)
		return 1
	}

	var cleanup func() error
	testDB, cleanup, err = setupTestDB(pool)
	if err != nil {
		fmt.Printf("could not setup test db: %v\n", err)
		return 1
	}
	testPostgres = postgres.New(testDB)

	if err := migrator.Migrate(context.Background(), testDB, postgres.MigrationsFS); err != nil {
		fmt.Printf("could not run migrations: %v\n", err)
		return 1
	}

	defer func() {
		if err := cleanup(); err != nil {
			fmt.Printf("could not cleanup postgres container: %v\n", err)
		}
	}()

	return m.Run()
}

func setupTestDB(pool *dockertest.Pool) (*pgxpool.Pool, func() error, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=ridematch",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create postgres resource: %w", err)
	}

	var db *pgxpool.Pool
	err = pool.Retry(func() (err error) {
		hostPort := resource.GetHostPort("5432/tcp")
		db, err = pgxpool.New(context.Background(), "postgresql://postgres:postgres@"+hostPort+"/ridematch?sslmode=disable")
		if err != nil {
			return fmt.Errorf("could not open db: %w", err)
		}

		// do not close db

		if err = db.Ping(context.Background()); err != nil {
			return fmt.Errorf("could not ping db: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return db, func() error {
		return pool.Purge(resource)
	}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	if testPostgres == nil {
		t.Skip("integration tests are skipped")
	}

	svc := New(&Config{
		Postgres:          testPostgres,
		PubSub:            pubsub.NewInmem(),
		Logger:            slog.New(slog.DiscardHandler),
		BaseCtx:           context.Background(),
		BackgroundTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		_ = svc.Close()
	})

	return svc
}

// asUser returns a context authenticated as a fresh user with a profile.
func asUser(t *testing.T, svc *Service, displayName string) context.Context {
	t.Helper()

	ctx := auth.ContextWithUser(context.Background(), types.User{ID: id.Generate()})

	if _, err := svc.UpsertUserProfile(ctx, types.UpsertUserProfile{
		DisplayName: displayName,
	}); err != nil {
		t.Fatalf("upsert profile for %s: %v", displayName, err)
	}

	return ctx
}

func createTestRequest(t *testing.T, svc *Service, ctx context.Context, maxParticipants int) string {
	t.Helper()

	created, err := svc.CreateMatchingRequest(ctx, types.CreateMatchingRequest{
		Attraction:      "Space Mountain",
		PreferredAt:     time.Now().Add(2 * time.Hour),
		MaxParticipants: maxParticipants,
	})
	if err != nil {
		t.Fatalf("create matching request: %v", err)
	}

	return created.ID
}

// backdateRequest moves a request's preferred time into the past, bypassing
// input validation, so lifecycle sweeps have something to pick up.
func backdateRequest(t *testing.T, requestID string, preferredAt time.Time) {
	t.Helper()

	_, err := testDB.Exec(context.Background(),
		"UPDATE matching_requests SET preferred_at = $1 WHERE id = $2",
		preferredAt, requestID,
	)
	if err != nil {
		t.Fatalf("backdate request: %v", err)
	}
}

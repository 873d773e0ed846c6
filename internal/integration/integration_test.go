package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"notiplay/internal/app"
	"notiplay/internal/domain"
	"notiplay/internal/infra/memory"
	"notiplay/internal/infra/postgres"
	infraredis "notiplay/internal/infra/redis"
)

func TestTriviaCreditEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	store, cleanup := startStore(t, ctx)
	defer cleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizzes := infraredis.NewQuizCache(redisClient, store, 5*time.Minute)
	service := app.NewTriviaService(quizzes, store, discardLogger())

	before, err := store.User(ctx, "u1")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	play := service.Open(ctx, app.Session{UserID: "u1"}, "news-1")
	if play.State() != app.StateAwaitingAnswer {
		t.Fatalf("expected awaiting answer, got %s (%v)", play.State(), play.Err())
	}
	for _, option := range []string{"Lima", "Sucre"} {
		if _, err := play.Select(option); err != nil {
			t.Fatalf("select %s: %v", option, err)
		}
		if _, err := play.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	play.Wait()

	after, err := store.User(ctx, "u1")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if after.Points != before.Points+20 {
		t.Fatalf("expected %d points, got %d", before.Points+20, after.Points)
	}

	// Served from Redis the second time.
	again := service.Open(ctx, app.Anonymous(), "news-1")
	if snap := again.Snapshot(); snap.Total != 2 || snap.Question == nil || snap.Question.Prompt != "Capital of Peru?" {
		t.Fatalf("unexpected cached snapshot %+v", snap)
	}
	if none := service.Open(ctx, app.Anonymous(), "news-2"); none.State() != app.StateNoQuizAvailable {
		t.Fatalf("expected no quiz for news-2, got %s", none.State())
	}
}

func TestRedeemRewardIsAtomic(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	store, cleanup := startStore(t, ctx)
	defer cleanup()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.RedeemReward(ctx, "u1", "coffee")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one redemption, got %d (%v)", successes, failures)
	}
	for _, err := range failures {
		if err != domain.ErrAlreadyRedeemed {
			t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
		}
	}
	user, _ := store.User(ctx, "u1")
	if user.Points != 10 {
		t.Fatalf("expected 10 points left, got %d", user.Points)
	}

	if err := store.RedeemReward(ctx, "u2", "coffee"); err != domain.ErrInsufficientPoints {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	redeemed, _ := store.RedeemedRewardIDs(ctx, "u2")
	if redeemed["coffee"] {
		t.Fatalf("failed redemption must not be recorded")
	}
	if err := store.RedeemReward(ctx, "u1", "yacht"); err != domain.ErrRewardNotFound {
		t.Fatalf("expected reward not found, got %v", err)
	}
}

func TestEngagementRoundTrip(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	store, cleanup := startStore(t, ctx)
	defer cleanup()

	if err := store.AddReaction(ctx, "u1", "news-1", "like"); err != nil {
		t.Fatalf("react: %v", err)
	}
	if err := store.AddReaction(ctx, "u1", "news-1", "like"); err != domain.ErrDuplicateReaction {
		t.Fatalf("expected duplicate, got %v", err)
	}
	counts, _ := store.Reactions(ctx, "news-1")
	if counts["like"] != 1 {
		t.Fatalf("expected one like, got %v", counts)
	}

	url, err := store.UploadAvatar(ctx, "u1/avatar.png", []byte("one"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := store.UploadAvatar(ctx, "u1/avatar.png", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ := store.Avatar(ctx, "u1/avatar.png")
	if string(data) != "two" || !strings.HasSuffix(url, "/avatars/u1/avatar.png") {
		t.Fatalf("unexpected avatar %q at %s", data, url)
	}

	if err := store.ReplaceUserCategories(ctx, "u1", []string{"science", "world"}); err != nil {
		t.Fatalf("replace categories: %v", err)
	}
	ids, _ := store.UserCategories(ctx, "u1")
	if strings.Join(ids, ",") != "science,world" {
		t.Fatalf("unexpected categories %v", ids)
	}

	ranking, err := store.Ranking(ctx)
	if err != nil || len(ranking) != 2 || ranking[0].ID != "u1" || ranking[0].Tier != domain.TierPodium {
		t.Fatalf("unexpected ranking %+v %v", ranking, err)
	}
	ctas, err := store.ActiveCallsToAction(ctx)
	if err != nil || len(ctas) != 2 || ctas[0].ID != 1 || ctas[1].ID != 2 {
		t.Fatalf("unexpected calls to action %+v %v", ctas, err)
	}

	badges, _ := store.UserBadges(ctx, "u1")
	if len(badges) != 1 || badges[0] != "Explorador" {
		t.Fatalf("unexpected badges %v", badges)
	}
}

func startStore(t *testing.T, ctx context.Context) (*postgres.Store, func()) {
	t.Helper()
	pgURL, pgCleanup := startPostgres(t, ctx)

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		pgCleanup()
		t.Fatalf("migrate: %v", err)
	}
	if err := postgres.Seed(ctx, db, testData()); err != nil {
		pgCleanup()
		t.Fatalf("seed: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		pgCleanup()
		t.Fatalf("connect pg: %v", err)
	}
	return postgres.NewStore(pool, "http://localhost:8080/avatars"), func() {
		pool.Close()
		pgCleanup()
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "notiplay", "POSTGRES_PASSWORD": "notiplay", "POSTGRES_DB": "notiplay"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://notiplay:notiplay@%s:%s/notiplay?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func testData() memory.Dataset {
	return memory.Dataset{
		Users: []domain.User{
			{ID: "u1", FirstName: "Ana", LastName: "Quispe", Points: 60},
			{ID: "u2", FirstName: "Bruno", Points: 40},
		},
		Categories: []domain.Category{{ID: "world", Name: "World"}, {ID: "science", Name: "Science"}},
		Articles: []domain.Article{
			{ID: "news-1", Title: "Capitals", CategoryID: "world"},
			{ID: "news-2", Title: "Telescope", CategoryID: "science"},
		},
		Quizzes: []domain.Quiz{{
			ID:        "quiz-capitals",
			ContentID: "news-1",
			Title:     "Capitals",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of Peru?", Options: []string{"Cusco", "Lima"}, CorrectOption: "Lima"},
				{ID: "q2", Prompt: "Capital of Bolivia?", Options: []string{"Sucre", "Santa Cruz"}, CorrectOption: "Sucre"},
			},
		}},
		Rewards: []domain.Reward{{ID: "coffee", Name: "Free Coffee", PointsRequired: 50}},
		CTAs: []domain.CallToAction{
			{ID: 2, Description: "Redeem your points", Active: true},
			{ID: 1, Description: "Play today's trivia", Active: true},
			{ID: 3, Description: "Expired campaign", Active: false},
		},
		Badges: map[string][]string{"u1": {"Explorador"}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

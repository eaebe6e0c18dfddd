package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/studycircle/internal/cache"
	"github.com/d60-Lab/studycircle/internal/config"
	"github.com/d60-Lab/studycircle/internal/gateway"
	"github.com/d60-Lab/studycircle/internal/model"
	"github.com/d60-Lab/studycircle/internal/realtime"
	"github.com/d60-Lab/studycircle/internal/service"
	"github.com/d60-Lab/studycircle/pkg/logger"
)

func main() {
	ctx := context.Background()
	logger.Init("warn", "")
	defer logger.Sync()

	// DATABASE_URL 指向 postgres 走真实库，默认 sqlite 内存库
	var db *gorm.DB
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db = must(gorm.Open(postgres.Open(dsn), &gorm.Config{}))
		mustDo(db.Exec("DROP TABLE IF EXISTS reactions, comments, posts, friendships, notifications, notes, profiles CASCADE").Error)
	} else {
		db = must(gorm.Open(sqlite.Open("file:syncbench?mode=memory&cache=shared"), &gorm.Config{}))
		sqlDB := must(db.DB())
		sqlDB.SetMaxOpenConns(1)
	}
	mustDo(gateway.Migrate(db))

	// REDIS_ADDR 存在时走 redis pub/sub 推送，测完整链路
	var pub gateway.Publisher
	var feed gateway.Feed
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			panic(fmt.Sprintf("redis at %s: %v", addr, err))
		}
		rf := gateway.NewRedisFeed(client)
		pub, feed = rf, rf
	}

	store := gateway.NewGormStore(db, pub)

	const (
		userCount = 2000
		postCount = 5000
		rounds    = 3000
	)

	fmt.Println("Seeding profiles and posts...")
	users := make([]model.Profile, userCount)
	for i := range users {
		users[i] = model.Profile{
			ID:   uuid.NewString(),
			UID:  fmt.Sprintf("%08d", i),
			Name: fmt.Sprintf("user_%d", i),
		}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	posts := make([]model.Post, postCount)
	base := time.Now()
	for i := range posts {
		posts[i] = model.Post{
			ID:        uuid.NewString(),
			OwnerID:   users[i%userCount].ID,
			Content:   fmt.Sprintf("打卡第 %d 天", i),
			Tags:      model.StringList{model.DefaultTag},
			CreatedAt: base.Add(-time.Duration(i) * time.Second),
		}
	}
	mustDo(db.CreateInBatches(&posts, 500).Error)
	fmt.Printf("Seeded %d users, %d posts\n", userCount, postCount)

	me := users[0].ID
	cfg := config.Default()
	c := cache.NewStore()
	r := cache.NewRefresher(cfg.Cache.RefreshPerSecond)
	session := service.NewSession(me)
	blob := gateway.NewMemBlob()
	postsSvc := service.NewPostService(store, c, r, blob, session, cfg)

	cold := runScenario(rounds/10, func() {
		c.Invalidate(cache.FeedKey())
		if _, err := postsSvc.Feed(ctx); err != nil {
			panic(err)
		}
	})
	warm := runScenario(rounds, func() {
		if _, err := postsSvc.Feed(ctx); err != nil {
			panic(err)
		}
	})

	feedViews := must(postsSvc.Feed(ctx))
	toggle := runScenario(rounds/10, func() {
		target := feedViews[rand.Intn(len(feedViews))]
		if err := postsSvc.ToggleLike(ctx, target.ID); err != nil {
			panic(err)
		}
	})

	fmt.Println("\nClient sync latency")
	report("Cold feed fetch", cold)
	report("Warm cache read", warm)
	report("Like round trip", toggle)

	if feed != nil {
		friends := service.NewFriendService(store, c, r, session, cfg)
		notifs := service.NewNotificationService(store, c, r, session, cfg)
		merger := realtime.NewMerger(feed, store, c, r, session, friends, notifs)
		mustDo(merger.Start(ctx))
		defer merger.Close()

		// 另一批用户在服务端点赞，折叠层消化事件
		start := time.Now()
		const pushes = 2000
		for i := 0; i < pushes; i++ {
			u := users[1+i%(userCount-1)].ID
			p := posts[i%postCount].ID
			mustDo(store.SetReaction(ctx, p, u, model.ReactionLike, i%2 == 0))
		}
		elapsed := time.Since(start)
		fmt.Printf("\nRealtime fold: %d reaction events pushed+merged in %v (%.0f ev/s)\n",
			pushes, elapsed, float64(pushes)/elapsed.Seconds())
	}
}

type scenario struct {
	durations []time.Duration
}

func runScenario(n int, fn func()) scenario {
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		start := time.Now()
		fn()
		out = append(out, time.Since(start))
	}
	return scenario{durations: out}
}

func report(name string, s scenario) {
	fmt.Printf("%-18s n=%d avg=%v p95=%v p99=%v\n",
		name, len(s.durations), avg(s.durations), pct(s.durations, 0.95), pct(s.durations, 0.99))
}

func avg(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

func pct(ds []time.Duration, p float64) time.Duration {
	sorted := append([]time.Duration{}, ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

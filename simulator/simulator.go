package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"yatube/internal/database"
	"yatube/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultPassword is set on every generated account so that seeded users can
// log in.
const DefaultPassword = "yatube-load-test"

type SimConfig struct {
	Prefix           string // username and slug prefix, so repeated runs do not collide
	NumUsers         int
	NumGroups        int
	PostsPerUser     int     // mean; actual counts follow the Zipf curve
	CommentsPerPost  float64 // mean comments per post
	FollowsPerUser   int     // upper bound of follows per user
	GroupFollowRatio float64 // share of users that follow at least one group
	ZipfS            float64
	Workers          int
	Seed             int64

	// Activity phase
	ActivityInterval time.Duration
	PostFrequency    float64 // posts per user per hour
	CommentFrequency float64 // comments per user per hour
}

// DefaultConfig generates a modest data set in a few seconds.
func DefaultConfig() SimConfig {
	return SimConfig{
		Prefix:           "user",
		NumUsers:         100,
		NumGroups:        10,
		PostsPerUser:     5,
		CommentsPerPost:  1.5,
		FollowsPerUser:   10,
		GroupFollowRatio: 0.3,
		ZipfS:            1.07,
		Workers:          5,
		Seed:             time.Now().UnixNano(),
		ActivityInterval: 500 * time.Millisecond,
		PostFrequency:    100,
		CommentFrequency: 60,
	}
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	TotalUsers       int
	TotalGroups      int
	TotalPosts       int
	TotalComments    int
	TotalFollows     int
	TotalGroupFollow int
}

// SimulatedUser is a generated account together with what it has produced.
type SimulatedUser struct {
	User   *models.User
	Posts  []int64
	Groups []int64 // followed groups
}

// Seeder fills a store with synthetic users, groups, posts, comments and
// follows. Author popularity follows a Zipf distribution, so a few authors
// write most posts and collect most followers.
type Seeder struct {
	config SimConfig
	db     database.DBAdapter
	logger *slog.Logger
	stats  *SimulationStats

	mu     sync.RWMutex
	users  []*SimulatedUser
	groups []*models.Group
	posts  []int64
	rng    *rand.Rand
}

func NewSeeder(db database.DBAdapter, config SimConfig, logger *slog.Logger) *Seeder {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Prefix == "" {
		config.Prefix = "user"
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	return &Seeder{
		config: config,
		db:     db,
		logger: logger,
		stats:  &SimulationStats{StartTime: time.Now()},
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Seed creates the initial data set.
func (s *Seeder) Seed(ctx context.Context) error {
	s.logger.Info("seeding", slog.Int("users", s.config.NumUsers), slog.Int("groups", s.config.NumGroups))

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"users", s.createUsers},
		{"groups", s.createGroups},
		{"follows", s.createFollows},
		{"group follows", s.createGroupFollows},
		{"posts", s.createPosts},
		{"comments", s.createComments},
	}
	for _, phase := range phases {
		start := time.Now()
		if err := phase.run(ctx); err != nil {
			return fmt.Errorf("seeding %s: %w", phase.name, err)
		}
		s.logger.Info("phase completed", slog.String("phase", phase.name), slog.Duration("took", time.Since(start)))
	}
	return nil
}

// Run seeds and then keeps generating activity until ctx is done.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Seed(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()
	wg.Wait()
	return nil
}

func (s *Seeder) createUsers(ctx context.Context) error {
	hashed := &models.User{}
	if err := hashed.SetPassword(DefaultPassword); err != nil {
		return err
	}

	results := make([]*SimulatedUser, s.config.NumUsers)
	err := s.parallel(ctx, s.config.NumUsers, func(ctx context.Context, i int) error {
		first, last := firstNames[i%len(firstNames)], lastNames[(i/len(firstNames))%len(lastNames)]
		user := &models.User{
			Username:       fmt.Sprintf("%s_%d", s.config.Prefix, i),
			FirstName:      first,
			LastName:       last,
			HashedPassword: hashed.HashedPassword,
		}
		if err := s.track(func() error { return s.db.CreateUser(ctx, user) }); err != nil {
			return err
		}
		results[i] = &SimulatedUser{User: user}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users = results
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalUsers = len(results)
	s.stats.mu.Unlock()
	return nil
}

func (s *Seeder) createGroups(ctx context.Context) error {
	for i := 0; i < s.config.NumGroups; i++ {
		theme := themes[i%len(themes)]
		group := &models.Group{
			Title:       fmt.Sprintf("%s #%d", theme, i),
			Slug:        fmt.Sprintf("%s-%s-%d", s.config.Prefix, theme, i),
			Description: fmt.Sprintf("A community for %s enthusiasts", theme),
		}
		if err := s.track(func() error { return s.db.CreateGroup(ctx, group) }); err != nil {
			return err
		}
		s.groups = append(s.groups, group)
	}

	s.stats.mu.Lock()
	s.stats.TotalGroups = len(s.groups)
	s.stats.mu.Unlock()
	return nil
}

// createFollows lets every user follow up to FollowsPerUser authors, picking
// popular authors more often.
func (s *Seeder) createFollows(ctx context.Context) error {
	if len(s.users) < 2 || s.config.FollowsPerUser < 1 {
		return nil
	}
	zipf := s.zipf(len(s.users))

	total := 0
	for i, follower := range s.users {
		want := s.rng.Intn(s.config.FollowsPerUser) + 1
		seen := map[int]bool{i: true}
		for tries := 0; len(seen)-1 < want && tries < want*4; tries++ {
			j := int(zipf.Uint64())
			if seen[j] {
				continue
			}
			seen[j] = true
			author := s.users[j].User
			if err := s.track(func() error { return s.db.FollowUser(ctx, follower.User.ID, author.ID) }); err != nil {
				return err
			}
			total++
		}
	}

	s.stats.mu.Lock()
	s.stats.TotalFollows = total
	s.stats.mu.Unlock()
	return nil
}

func (s *Seeder) createGroupFollows(ctx context.Context) error {
	if len(s.groups) == 0 {
		return nil
	}
	zipf := s.zipf(len(s.groups))

	total := 0
	for _, user := range s.users {
		if s.rng.Float64() >= s.config.GroupFollowRatio {
			continue
		}
		group := s.groups[zipf.Uint64()]
		if err := s.track(func() error { return s.db.FollowGroup(ctx, user.User.ID, group.ID) }); err != nil {
			return err
		}
		user.Groups = append(user.Groups, group.ID)
		total++
	}

	s.stats.mu.Lock()
	s.stats.TotalGroupFollow = total
	s.stats.mu.Unlock()
	return nil
}

// createPosts spreads NumUsers*PostsPerUser posts over the authors, again
// weighted by popularity. Creation times are spread over the last 30 days.
func (s *Seeder) createPosts(ctx context.Context) error {
	if len(s.users) == 0 {
		return nil
	}
	total := len(s.users) * s.config.PostsPerUser
	zipf := s.zipf(len(s.users))
	now := time.Now()

	type plan struct {
		author  *SimulatedUser
		groupID *int64
		created time.Time
	}
	plans := make([]plan, total)
	for i := range plans {
		p := plan{
			author:  s.users[zipf.Uint64()],
			created: now.Add(-time.Duration(s.rng.Int63n(int64(30 * 24 * time.Hour)))),
		}
		if len(s.groups) > 0 && s.rng.Float64() < 0.7 {
			id := s.groups[s.rng.Intn(len(s.groups))].ID
			p.groupID = &id
		}
		plans[i] = p
	}

	ids := make([]int64, total)
	err := s.parallel(ctx, total, func(ctx context.Context, i int) error {
		p := plans[i]
		post := &models.Post{
			Text:     postText(p.author.User, i),
			AuthorID: p.author.User.ID,
			GroupID:  p.groupID,
			Created:  p.created,
		}
		if err := s.track(func() error { return s.db.CreatePost(ctx, post) }); err != nil {
			return err
		}
		ids[i] = post.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i, id := range ids {
		plans[i].author.Posts = append(plans[i].author.Posts, id)
	}
	s.posts = append(s.posts, ids...)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPosts += total
	s.stats.mu.Unlock()
	return nil
}

func (s *Seeder) createComments(ctx context.Context) error {
	if len(s.posts) == 0 || len(s.users) == 0 {
		return nil
	}
	total := int(float64(len(s.posts)) * s.config.CommentsPerPost)
	zipf := s.zipf(len(s.posts))

	type plan struct {
		postID int64
		author *models.User
	}
	plans := make([]plan, total)
	for i := range plans {
		plans[i] = plan{
			postID: s.posts[zipf.Uint64()],
			author: s.users[s.rng.Intn(len(s.users))].User,
		}
	}

	err := s.parallel(ctx, total, func(ctx context.Context, i int) error {
		comment := &models.Comment{
			Text:     commentText(plans[i].author, i),
			AuthorID: plans[i].author.ID,
			PostID:   plans[i].postID,
		}
		return s.track(func() error { return s.db.CreateComment(ctx, comment) })
	})
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalComments += total
	s.stats.mu.Unlock()
	return nil
}

// parallel runs fn for 0..n-1 on the configured number of workers and stops
// at the first error.
func (s *Seeder) parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(ctx, i) })
	}
	return g.Wait()
}

// zipf returns a generator of indexes in [0, n) skewed towards 0.
func (s *Seeder) zipf(n int) *rand.Zipf {
	return rand.NewZipf(s.rng, s.config.ZipfS, 1, uint64(n-1))
}

// track times one storage call.
func (s *Seeder) track(call func() error) error {
	start := time.Now()
	err := call()
	s.recordRequestMetrics(start, err)
	return err
}

func (s *Seeder) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

func (s *Seeder) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.logger.Info("simulation metrics",
				slog.Float64("requests_per_second", m.RequestsPerSecond),
				slog.Duration("average_latency", m.AverageLatency),
				slog.Int("posts", m.TotalPosts),
				slog.Int("comments", m.TotalComments),
				slog.Int("errors", m.ErrorCount),
			)
		}
	}
}

// SimulationMetrics holds the metrics of the simulation
type SimulationMetrics struct {
	TotalUsers        int
	TotalGroups       int
	TotalPosts        int
	TotalComments     int
	TotalFollows      int
	TotalGroupFollows int
	AverageLatency    time.Duration
	ErrorCount        int
	RequestsPerSecond float64
}

// GetMetrics returns the current simulation metrics
func (s *Seeder) GetMetrics() SimulationMetrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	elapsed := time.Since(s.stats.StartTime)
	return SimulationMetrics{
		TotalUsers:        s.stats.TotalUsers,
		TotalGroups:       s.stats.TotalGroups,
		TotalPosts:        s.stats.TotalPosts,
		TotalComments:     s.stats.TotalComments,
		TotalFollows:      s.stats.TotalFollows,
		TotalGroupFollows: s.stats.TotalGroupFollow,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
	}
}

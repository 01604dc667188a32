package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"yatube/internal/models"
)

var themes = []string{
	"books", "travel", "music", "science", "movies",
	"food", "sports", "art", "photography", "history",
	"nature", "pets", "programming", "poetry", "diy",
}

var firstNames = []string{"Лев", "Анна", "Фёдор", "Мария", "Антон", "Ольга", "Иван", "Софья"}

var lastNames = []string{"Толстой", "Ахматова", "Достоевский", "Цветаева", "Чехов", "Берггольц"}

var phrases = []string{
	"Сегодня был удивительный день.",
	"Перечитал любимую книгу и нашёл в ней новое.",
	"Кто-нибудь знает хорошее место для прогулки?",
	"Делюсь заметками из поездки.",
	"Короткая мысль перед сном.",
	"Наконец закончил проект, о котором давно писал.",
}

func postText(author *models.User, i int) string {
	return fmt.Sprintf("%s %s (#%d от %s)", phrases[i%len(phrases)], phrases[(i/len(phrases))%len(phrases)], i, author.Username)
}

func commentText(author *models.User, i int) string {
	return fmt.Sprintf("Отличный пост! Комментарий #%d от %s", i, author.Username)
}

// SimulateActivities keeps writing posts and comments at the configured
// per-user hourly rates until ctx is done.
func (s *Seeder) SimulateActivities(ctx context.Context) {
	s.logger.Info("starting activity simulation")

	interval := s.config.ActivityInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	// Probability that one user acts during one tick.
	perTick := func(perHour float64) float64 {
		return perHour / 3600.0 * interval.Seconds()
	}

	jobs := make(chan *SimulatedUser, len(s.users))
	var wg sync.WaitGroup
	for w := 0; w < s.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(s.config.Seed + int64(workerID) + 1))
			for user := range jobs {
				if rng.Float64() < perTick(s.config.PostFrequency) {
					if err := s.simulatePost(ctx, rng, user); err != nil && ctx.Err() == nil {
						s.logger.Warn("simulated post failed", slog.Int("worker", workerID), slog.Any("error", err))
					}
				}
				if rng.Float64() < perTick(s.config.CommentFrequency) {
					if err := s.simulateComment(ctx, rng, user); err != nil && ctx.Err() == nil {
						s.logger.Warn("simulated comment failed", slog.Int("worker", workerID), slog.Any("error", err))
					}
				}
			}
		}(w)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				select {
				case jobs <- user:
				default: // Don't block if channel is full
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Seeder) simulatePost(ctx context.Context, rng *rand.Rand, user *SimulatedUser) error {
	post := &models.Post{AuthorID: user.User.ID}

	s.mu.RLock()
	post.Text = postText(user.User, len(s.posts))
	if len(user.Groups) > 0 {
		id := user.Groups[rng.Intn(len(user.Groups))]
		post.GroupID = &id
	}
	s.mu.RUnlock()

	if err := s.track(func() error { return s.db.CreatePost(ctx, post) }); err != nil {
		return err
	}

	s.mu.Lock()
	user.Posts = append(user.Posts, post.ID)
	s.posts = append(s.posts, post.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPosts++
	s.stats.mu.Unlock()
	return nil
}

// simulateComment comments on one of the newest posts.
func (s *Seeder) simulateComment(ctx context.Context, rng *rand.Rand, user *SimulatedUser) error {
	s.mu.RLock()
	if len(s.posts) == 0 {
		s.mu.RUnlock()
		return nil
	}
	recent := len(s.posts)
	if recent > 50 {
		recent = 50
	}
	postID := s.posts[len(s.posts)-1-rng.Intn(recent)]
	s.mu.RUnlock()

	comment := &models.Comment{
		Text:     commentText(user.User, rng.Int()),
		AuthorID: user.User.ID,
		PostID:   postID,
	}
	err := s.track(func() error { return s.db.CreateComment(ctx, comment) })
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalComments++
	s.stats.mu.Unlock()
	return nil
}

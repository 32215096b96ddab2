package post

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"uk.co.dudmesh.postfeed/internal/model"
)

type SeedPost struct {
	Content  string    `yaml:"content"`
	ImageURL string    `yaml:"image_url"`
	Author   string    `yaml:"author"`
	Created  time.Time `yaml:"created"`
}

type Seed struct {
	Posts []SeedPost `yaml:"posts"`
}

func LoadSeed(path string) (Seed, error) {
	var seed Seed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("reading seed file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// Seed inserts the given posts when the database is empty. It returns the
// number of posts inserted.
func (s *service) Seed(seed Seed) (int, error) {
	n, err := s.db.Count()
	if err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	inserted := 0
	for i, p := range seed.Posts {
		input := model.PostInput{Content: p.Content}
		if p.ImageURL != "" {
			input.ImageURL = model.StringPtr(p.ImageURL)
		}
		input = input.Normalize()
		if err := input.Validate(); err != nil {
			return inserted, fmt.Errorf("seed post %d: %w", i, err)
		}

		created := p.Created.UTC()
		if p.Created.IsZero() {
			created = s.now()
		}
		author := p.Author
		if author == "" {
			author = DefaultAuthor
		}

		post := &model.Post{
			ID:         model.CreateID(),
			Content:    input.Content,
			ImageURL:   input.ImageURL,
			Author:     author,
			CreatedAt:  created,
			ModifiedAt: created,
		}
		if err := s.db.Insert(post); err != nil {
			return inserted, fmt.Errorf("seed post %d: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}

package post

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"uk.co.dudmesh.postfeed/internal/model"
)

const DefaultAuthor = "Anonymous"

type Database interface {
	List() ([]model.Post, error)
	Count() (int, error)
	Fetch(id model.PostID) (*model.Post, error)
	Insert(post *model.Post) error
	Update(post *model.Post) error
	Delete(id model.PostID) error
}

type service struct {
	mu  sync.Mutex
	db  Database
	now func() time.Time
}

func New(db Database) *service {
	return &service{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *service) List() ([]model.Post, error) {
	posts, err := s.db.List()
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *service) Create(author string, input model.PostInput) (*model.Post, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = DefaultAuthor
	}

	now := s.now()
	post := &model.Post{
		ID:         model.CreateID(),
		Content:    input.Content,
		ImageURL:   input.ImageURL,
		Author:     author,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.db.Insert(post); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return post, nil
}

// Update replaces the content and image of a post. Author and creation time
// are kept.
func (s *service) Update(id model.PostID, patch model.PostInput) (*model.Post, error) {
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, err := s.db.Fetch(id)
	if err != nil {
		return nil, fmt.Errorf("loading post: %w", err)
	}

	post.Content = patch.Content
	post.ImageURL = patch.ImageURL
	post.ModifiedAt = s.now()
	if !post.ModifiedAt.After(post.CreatedAt) {
		post.ModifiedAt = post.CreatedAt.Add(time.Millisecond)
	}

	if err := s.db.Update(post); err != nil {
		return nil, fmt.Errorf("updating post: %w", err)
	}
	return post, nil
}

func (s *service) Delete(id model.PostID) error {
	if err := s.db.Delete(id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

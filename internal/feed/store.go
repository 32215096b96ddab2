// Package feed holds the client's view of the posts feed and keeps it in step
// with the posts service. Local state only changes after the service has
// confirmed a write.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.postfeed/internal/api"
	"uk.co.dudmesh.postfeed/internal/credential"
	"uk.co.dudmesh.postfeed/internal/model"
	"uk.co.dudmesh.postfeed/internal/notify"
)

// PostService is the remote collection the feed is synchronized with.
type PostService interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	CreatePost(ctx context.Context, input model.PostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id model.PostID, patch model.PostInput) (*model.Post, error)
	DeletePost(ctx context.Context, id model.PostID) error
}

type Config struct {
	BaseURL            string
	CredentialProvider credential.Provider
	Timeout            time.Duration
}

type Store struct {
	mu       sync.Mutex
	service  PostService
	notifier *notify.Notifier
	logger   *log.Logger

	posts  []model.PostEntity
	saving map[model.PostID]bool

	// loads counts listings in flight. While any is pending, confirmed
	// writes are recorded in changes so a snapshot taken before them
	// cannot undo them.
	loads      int
	generation uint64
	changes    map[model.PostID]change
}

type change struct {
	generation uint64
	removed    bool
}

func New(service PostService, notifier *notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.New(notify.DefaultTTL)
	}
	return &Store{
		service:  service,
		notifier: notifier,
		logger:   log.New("feed"),
		saving:   map[model.PostID]bool{},
		changes:  map[model.PostID]change{},
	}
}

// NewFromConfig builds a store talking to the posts service over HTTP.
func NewFromConfig(config Config, notifier *notify.Notifier) *Store {
	client := api.NewClient(config.BaseURL, config.CredentialProvider, config.Timeout)
	return New(client, notifier)
}

func (s *Store) Logger() *log.Logger {
	return s.logger
}

func (s *Store) Notifier() *notify.Notifier {
	return s.notifier
}

// Load replaces the feed with the service's listing. On failure the feed is
// kept as it was. Writes confirmed while the listing was in flight win over
// the snapshot.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loads++
	since := s.generation
	s.mu.Unlock()

	posts, err := s.service.ListPosts(ctx)

	if err != nil {
		s.mu.Lock()
		s.finishLoad()
		s.mu.Unlock()

		e := classify(err)
		s.logger.Errorf("loading posts: %+v", err)
		s.notifier.Error("Failed to load posts: " + e.Message)
		return e
	}

	s.mu.Lock()
	s.posts = newestFirst(s.reconcile(uniqueEntities(posts), since))
	s.finishLoad()
	n := len(s.posts)
	s.mu.Unlock()

	s.logger.Debugf("loaded %d posts", n)
	return nil
}

// finishLoad ends a listing. Callers hold mu.
func (s *Store) finishLoad() {
	s.loads--
	if s.loads == 0 {
		s.changes = map[model.PostID]change{}
	}
}

// reconcile applies the writes confirmed after generation since to a
// listing. Callers hold mu.
func (s *Store) reconcile(snapshot []model.PostEntity, since uint64) []model.PostEntity {
	listed := make(map[model.PostID]struct{}, len(snapshot))
	entities := make([]model.PostEntity, 0, len(snapshot))
	for _, e := range snapshot {
		listed[e.ID] = struct{}{}
		c, changed := s.changes[e.ID]
		if !changed || c.generation <= since {
			entities = append(entities, e)
			continue
		}
		if c.removed {
			s.logger.Debugf("post %s removed while loading, dropping it", e.ID)
			continue
		}
		if idx := s.indexOf(e.ID); idx >= 0 {
			entities = append(entities, model.PostEntity{Post: clonePost(s.posts[idx].Post)})
		} else {
			entities = append(entities, e)
		}
	}

	for _, local := range s.posts {
		if _, ok := listed[local.ID]; ok {
			continue
		}
		if c, changed := s.changes[local.ID]; changed && !c.removed && c.generation > since {
			s.logger.Debugf("post %s written while loading, keeping it", local.ID)
			entities = append(entities, model.PostEntity{Post: clonePost(local.Post)})
		}
	}
	return entities
}

// record notes a confirmed write. Callers hold mu.
func (s *Store) record(id model.PostID, removed bool) {
	s.generation++
	if s.loads > 0 {
		s.changes[id] = change{generation: s.generation, removed: removed}
	}
}

func (s *Store) Create(ctx context.Context, input model.PostInput) (*model.Post, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		e := validationError(err)
		s.notifier.Error(e.Message)
		return nil, e
	}

	post, err := s.service.CreatePost(ctx, input)
	if err != nil {
		e := classify(err)
		s.logger.Errorf("creating post: %+v", err)
		s.notifier.Error("Failed to create post: " + e.Message)
		return nil, e
	}

	if post == nil || post.ID == "" {
		e := invalidResponse()
		s.logger.Errorf("creating post: service returned no post")
		s.notifier.Error("Failed to create post: " + e.Message)
		return nil, e
	}

	entity := model.PostEntity{Post: clonePost(*post)}

	s.mu.Lock()
	if idx := s.indexOf(entity.ID); idx >= 0 {
		s.posts[idx] = entity
	} else {
		s.posts = append([]model.PostEntity{entity}, s.posts...)
	}
	s.record(entity.ID, false)
	s.mu.Unlock()

	s.notifier.Success("Post created.")
	created := clonePost(entity.Post)
	return &created, nil
}

// BeginEdit puts the post in edit mode and takes every other post out of it.
// It reports false when the id is not in the feed.
func (s *Store) BeginEdit(id model.PostID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		s.logger.Debugf("begin edit of unknown post %s ignored", id)
		return false
	}
	for i := range s.posts {
		s.posts[i].Editing = s.posts[i].ID == id
	}
	return true
}

// CancelEdit leaves edit mode. Any draft lives in the caller's form and is
// simply dropped.
func (s *Store) CancelEdit(id model.PostID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.posts[idx].Editing = false
	return true
}

// Save sends the draft for the post and, once the service confirms, replaces
// the post with the returned record. Unknown ids and posts that already have
// a save in flight are ignored and return (nil, nil).
func (s *Store) Save(ctx context.Context, id model.PostID, draft model.PostInput) (*model.Post, error) {
	draft = draft.Normalize()

	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		s.logger.Debugf("save of unknown post %s ignored", id)
		return nil, nil
	}
	if s.saving[id] {
		s.mu.Unlock()
		s.logger.Debugf("save of post %s already in flight", id)
		return nil, nil
	}
	if err := draft.Validate(); err != nil {
		s.mu.Unlock()
		e := validationError(err)
		s.notifier.Error(e.Message)
		return nil, e
	}
	s.saving[id] = true
	s.mu.Unlock()

	post, err := s.service.UpdatePost(ctx, id, draft)

	if err == nil && post == nil {
		err = invalidResponse()
	}

	s.mu.Lock()
	delete(s.saving, id)
	if err != nil {
		s.keepEditing(id)
		s.mu.Unlock()
		e := classify(err)
		s.logger.Errorf("updating post %s: %+v", id, err)
		s.notifier.Error("Failed to update post: " + e.Message)
		return nil, e
	}

	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Debugf("post %s removed while saving, discarding update", id)
		updated := clonePost(*post)
		return &updated, nil
	}
	entity := model.PostEntity{Post: clonePost(*post)}
	entity.ID = id
	s.posts[idx] = entity
	s.record(id, false)
	s.mu.Unlock()

	s.notifier.Success("Post updated.")
	updated := clonePost(entity.Post)
	return &updated, nil
}

// Remove deletes the post once the caller has confirmed it. Unconfirmed calls
// and unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id model.PostID, confirmed bool) error {
	if !confirmed {
		return nil
	}

	s.mu.Lock()
	known := s.indexOf(id) >= 0
	s.mu.Unlock()
	if !known {
		s.logger.Debugf("remove of unknown post %s ignored", id)
		return nil
	}

	if err := s.service.DeletePost(ctx, id); err != nil {
		e := classify(err)
		s.logger.Errorf("deleting post %s: %+v", id, err)
		s.notifier.Error("Failed to delete post: " + e.Message)
		return e
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.posts = append(s.posts[:idx:idx], s.posts[idx+1:]...)
	}
	s.record(id, true)
	s.mu.Unlock()

	s.notifier.Success(fmt.Sprintf("Post %s deleted successfully.", id))
	return nil
}

// Posts returns a copy of the feed, newest first.
func (s *Store) Posts() []model.PostEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PostEntity, len(s.posts))
	for i, p := range s.posts {
		out[i] = model.PostEntity{Post: clonePost(p.Post), Editing: p.Editing}
	}
	return out
}

func (s *Store) Get(id model.PostID) (model.PostEntity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.PostEntity{}, false
	}
	p := s.posts[idx]
	return model.PostEntity{Post: clonePost(p.Post), Editing: p.Editing}, true
}

// Editing returns the post currently in edit mode, if any.
func (s *Store) Editing() (model.PostID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.Editing {
			return p.ID, true
		}
	}
	return "", false
}

func (s *Store) IsSaving(id model.PostID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving[id]
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads > 0
}

// keepEditing leaves the post in edit mode after a failed save unless another
// post has taken it since. Callers hold mu.
func (s *Store) keepEditing(id model.PostID) {
	idx := -1
	for i := range s.posts {
		if s.posts[i].Editing && s.posts[i].ID != id {
			return
		}
		if s.posts[i].ID == id {
			idx = i
		}
	}
	if idx >= 0 {
		s.posts[idx].Editing = true
	}
}

func (s *Store) indexOf(id model.PostID) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func uniqueEntities(posts []model.Post) []model.PostEntity {
	seen := make(map[model.PostID]struct{}, len(posts))
	entities := make([]model.PostEntity, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		entities = append(entities, model.PostEntity{Post: clonePost(p)})
	}
	return entities
}

// newestFirst orders by creation time, keeping the service's order for ties.
func newestFirst(entities []model.PostEntity) []model.PostEntity {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].CreatedAt.After(entities[j].CreatedAt)
	})
	return entities
}

func clonePost(p model.Post) model.Post {
	if p.ImageURL != nil {
		url := *p.ImageURL
		p.ImageURL = &url
	}
	return p
}

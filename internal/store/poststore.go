package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.postfeed/internal/model"
)

type postStore struct {
	db *sqlx.DB
}

// NewPostStore opens the sqlite database at path, creating the posts table if
// needed. Use ":memory:" for a throwaway store.
func NewPostStore(path string) (*postStore, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps an in-memory
	// database alive for the life of the store
	db.SetMaxOpenConns(1)

	s := &postStore{db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func (s *postStore) Close() error {
	return s.db.Close()
}

func (s *postStore) createTables() error {
	_, err := s.db.Exec(`create table if not exists post(
		ID         text not null primary key,
		Seq        integer not null,
		Content    text not null,
		ImageURL   text null,
		Author     text not null,
		CreatedAt  DATETIME not null,
		ModifiedAt DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating post table: %w", err)
	}
	return nil
}

// List returns every post, newest first.
func (s *postStore) List() ([]model.Post, error) {
	posts := []model.Post{}
	err := s.db.Select(&posts, `select ID, Content, ImageURL, Author, CreatedAt, ModifiedAt
		from post order by CreatedAt desc, Seq desc`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *postStore) Count() (int, error) {
	var n int
	if err := s.db.Get(&n, `select count(*) from post`); err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return n, nil
}

func (s *postStore) Fetch(id model.PostID) (*model.Post, error) {
	post := &model.Post{}
	err := s.db.Get(post, `select ID, Content, ImageURL, Author, CreatedAt, ModifiedAt
		from post where ID = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorPostNotFound
		}
		return nil, fmt.Errorf("fetching post: %w", err)
	}
	return post, nil
}

func (s *postStore) Insert(post *model.Post) error {
	res, err := s.db.NamedExec(`insert into post
		(ID, Seq, Content, ImageURL, Author, CreatedAt, ModifiedAt)
		values(:ID, (select coalesce(max(Seq), 0) + 1 from post), :Content, :ImageURL, :Author, :CreatedAt, :ModifiedAt)`, post)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	if rows, err := res.RowsAffected(); rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	} else if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	return nil
}

func (s *postStore) Update(post *model.Post) error {
	res, err := s.db.NamedExec(`update post
		set Content = :Content, ImageURL = :ImageURL, ModifiedAt = :ModifiedAt
		where ID = :ID`, post)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrorPostNotFound
	}
	return nil
}

// Delete removes the post. Deleting an unknown id is not an error.
func (s *postStore) Delete(id model.PostID) error {
	if _, err := s.db.Exec(`delete from post where ID = ?`, id); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PostID is the server assigned identifier of a post. The posts service may
// send it as a JSON number or a string; either way it is held opaquely.
type PostID string

func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshalling post id: %w", err)
		}
		*id = PostID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshalling post id: %w", err)
	}
	*id = PostID(n.String())
	return nil
}

// Post is the server authoritative record.
type Post struct {
	ID         PostID    `db:"ID" json:"id"`
	Content    string    `db:"Content" json:"content"`
	ImageURL   *string   `db:"ImageURL" json:"imageUrl"`
	Author     string    `db:"Author" json:"author"`
	CreatedAt  time.Time `db:"CreatedAt" json:"createdDateTime"`
	ModifiedAt time.Time `db:"ModifiedAt" json:"modifiedDateTime"`
}

// UnmarshalJSON accepts both the createdDateTime/modifiedDateTime names used by
// the posts service and the shorter createdAt/modifiedAt spelling.
func (p *Post) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID               PostID     `json:"id"`
		Content          string     `json:"content"`
		ImageURL         *string    `json:"imageUrl"`
		Author           string     `json:"author"`
		CreatedDateTime  *time.Time `json:"createdDateTime"`
		ModifiedDateTime *time.Time `json:"modifiedDateTime"`
		CreatedAt        *time.Time `json:"createdAt"`
		ModifiedAt       *time.Time `json:"modifiedAt"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Post{
		ID:       w.ID,
		Content:  w.Content,
		ImageURL: w.ImageURL,
		Author:   w.Author,
	}
	if w.CreatedDateTime != nil {
		p.CreatedAt = *w.CreatedDateTime
	} else if w.CreatedAt != nil {
		p.CreatedAt = *w.CreatedAt
	}
	if w.ModifiedDateTime != nil {
		p.ModifiedAt = *w.ModifiedDateTime
	} else if w.ModifiedAt != nil {
		p.ModifiedAt = *w.ModifiedAt
	}
	return nil
}

// Image returns the declared image URL, or "" when the post has none.
func (p *Post) Image() string {
	if p.ImageURL == nil {
		return ""
	}
	return *p.ImageURL
}

// Edited reports whether the post was modified after it was created.
func (p *Post) Edited() bool {
	if p.CreatedAt.IsZero() || p.ModifiedAt.IsZero() {
		return false
	}
	return !p.CreatedAt.Equal(p.ModifiedAt)
}

// PostInput is the body sent when creating or updating a post.
type PostInput struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

// Normalize trims the image URL and drops it when blank.
func (in PostInput) Normalize() PostInput {
	if in.ImageURL != nil {
		url := strings.TrimSpace(*in.ImageURL)
		if url == "" {
			in.ImageURL = nil
		} else {
			in.ImageURL = &url
		}
	}
	return in
}

// Validate rejects content that is empty once trimmed.
func (in PostInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return ErrorEmptyContent
	}
	return nil
}

// PostEntity is a post as held by the feed, plus the client-only edit flag.
type PostEntity struct {
	Post
	Editing bool `json:"-"`
}

// Draft returns the initial contents of the edit form for this post.
func (e *PostEntity) Draft() PostInput {
	draft := PostInput{Content: e.Content}
	if e.ImageURL != nil {
		url := *e.ImageURL
		draft.ImageURL = &url
	}
	return draft
}

// StringPtr is a convenience for optional string fields.
func StringPtr(s string) *string {
	return &s
}

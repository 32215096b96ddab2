package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.postfeed/internal/credential"
	"uk.co.dudmesh.postfeed/internal/model"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("list without credential", func(t *testing.T) {
		assert := assert.New(t)
		srv, calls := newTestServer(t, http.StatusOK, `[{"id":1,"content":"hi","author":"Ann","createdDateTime":"2024-03-01T10:00:00Z","modifiedDateTime":"2024-03-01T10:00:00Z"}]`)

		posts, err := NewClient(srv.URL+"/api/facebook/posts/", nil, 0).ListPosts(ctx)
		require.NoError(t, err)
		assert.Len(posts, 1)
		assert.Equal(model.PostID("1"), posts[0].ID)
		assert.Equal(http.MethodGet, (*calls)[0].method)
		assert.Equal("/api/facebook/posts", (*calls)[0].path)
		assert.Equal("", (*calls)[0].auth)
	})

	t.Run("create sends bearer token and omits absent image", func(t *testing.T) {
		assert := assert.New(t)
		srv, calls := newTestServer(t, http.StatusCreated, `{"id":2,"content":"new","author":"Ann"}`)

		post, err := NewClient(srv.URL, credential.Static("tok"), 0).CreatePost(ctx, model.PostInput{Content: "new"})
		require.NoError(t, err)
		assert.Equal(model.PostID("2"), post.ID)
		assert.Equal("Bearer tok", (*calls)[0].auth)
		assert.Equal(map[string]any{"content": "new"}, (*calls)[0].body)
	})

	t.Run("update sends null image", func(t *testing.T) {
		assert := assert.New(t)
		srv, calls := newTestServer(t, http.StatusOK, `{"id":"a b","content":"updated"}`)

		post, err := NewClient(srv.URL, nil, 0).UpdatePost(ctx, "a b", model.PostInput{Content: "updated"})
		require.NoError(t, err)
		assert.Equal("updated", post.Content)
		assert.Equal(http.MethodPut, (*calls)[0].method)
		assert.Equal("/a b", (*calls)[0].path)
		assert.Contains((*calls)[0].body, "imageUrl")
		assert.Nil((*calls)[0].body["imageUrl"])
	})

	t.Run("delete with empty body", func(t *testing.T) {
		assert := assert.New(t)
		srv, calls := newTestServer(t, http.StatusNoContent, ``)

		err := NewClient(srv.URL, nil, 0).DeletePost(ctx, "7")
		assert.Nil(err)
		assert.Equal(http.MethodDelete, (*calls)[0].method)
		assert.Equal("/7", (*calls)[0].path)
	})

	t.Run("credential errors do not block", func(t *testing.T) {
		assert := assert.New(t)
		srv, calls := newTestServer(t, http.StatusOK, `[]`)
		broken := credential.Func(func(context.Context) (string, error) {
			return "", errors.New("keychain locked")
		})

		_, err := NewClient(srv.URL, broken, 0).ListPosts(ctx)
		assert.Nil(err)
		assert.Equal("", (*calls)[0].auth)
	})
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		response string
		message  string
		body     string
	}{
		{"message field", `{"message":"content must not be blank"}`, "content must not be blank", `{"message":"content must not be blank"}`},
		{"json string", `"post is locked"`, "post is locked", `"post is locked"`},
		{"raw text", `gateway exploded`, "", "gateway exploded"},
		{"object without message", `{"error":"x"}`, "", `{"error":"x"}`},
		{"empty", ``, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, http.StatusBadRequest, tc.response)

			_, err := NewClient(srv.URL, nil, 0).CreatePost(ctx, model.PostInput{Content: "x"})
			var serverErr *ServerError
			require.True(t, errors.As(err, &serverErr))
			assert.Equal(http.StatusBadRequest, serverErr.Status)
			assert.Equal(tc.message, serverErr.Message)
			assert.Equal(tc.body, serverErr.Body)
			assert.Equal("request failed with status code 400", serverErr.Error())
		})
	}

	for _, body := range []string{``, `null`, `{"content":`} {
		t.Run("unusable success body "+body, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, http.StatusOK, body)
			client := NewClient(srv.URL, nil, 0)

			created, err := client.CreatePost(ctx, model.PostInput{Content: "x"})
			assert.Nil(created)
			var serverErr *ServerError
			require.True(t, errors.As(err, &serverErr))
			assert.Equal(http.StatusOK, serverErr.Status)
			assert.Equal(invalidResponseMessage, serverErr.Message)
			assert.Equal("invalid response with status code 200", serverErr.Error())

			updated, err := client.UpdatePost(ctx, "1", model.PostInput{Content: "x"})
			assert.Nil(updated)
			assert.True(errors.As(err, &serverErr))
		})
	}

	t.Run("empty listing", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, ``)
		posts, err := NewClient(srv.URL, nil, 0).ListPosts(ctx)
		assert.Nil(t, err)
		assert.Empty(t, posts)
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url, nil, 0).ListPosts(ctx)
		var transportErr *TransportError
		assert.True(t, errors.As(err, &transportErr))
	})
}

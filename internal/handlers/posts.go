package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.postfeed/internal/model"
	"uk.co.dudmesh.postfeed/pkg/token"
)

type PostService interface {
	List() ([]model.Post, error)
	Create(author string, input model.PostInput) (*model.Post, error)
	Update(id model.PostID, patch model.PostInput) (*model.Post, error)
	Delete(id model.PostID) error
}

type errorResponse struct {
	Message string `json:"message"`
}

// Register mounts the posts collection under group.
func Register(group *echo.Group, postService PostService, tokenSecret string) {
	group.GET("", ListPosts(postService))
	group.POST("", CreatePost(postService, tokenSecret))
	group.PUT("/:id", UpdatePost(postService, tokenSecret))
	group.DELETE("/:id", DeletePost(postService, tokenSecret))
}

func ListPosts(postService PostService) echo.HandlerFunc {
	return func(c echo.Context) error {
		posts, err := postService.List()
		if err != nil {
			return failure(c, err)
		}
		return c.JSON(http.StatusOK, posts)
	}
}

func CreatePost(postService PostService, tokenSecret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		author, err := authorFrom(c, tokenSecret)
		if err != nil {
			return failure(c, err)
		}

		input := model.PostInput{}
		if err := c.Bind(&input); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{"malformed request body"})
		}

		post, err := postService.Create(author, input)
		if err != nil {
			return failure(c, err)
		}
		return c.JSON(http.StatusCreated, post)
	}
}

func UpdatePost(postService PostService, tokenSecret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := authorFrom(c, tokenSecret); err != nil {
			return failure(c, err)
		}

		patch := model.PostInput{}
		if err := c.Bind(&patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{"malformed request body"})
		}

		post, err := postService.Update(model.PostID(c.Param("id")), patch)
		if err != nil {
			return failure(c, err)
		}
		return c.JSON(http.StatusOK, post)
	}
}

func DeletePost(postService PostService, tokenSecret string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := authorFrom(c, tokenSecret); err != nil {
			return failure(c, err)
		}
		if err := postService.Delete(model.PostID(c.Param("id"))); err != nil {
			return failure(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// authorFrom returns the name carried by the bearer token, or "" for
// anonymous requests. A token that is present but invalid is rejected.
func authorFrom(c echo.Context, tokenSecret string) (string, error) {
	raw := token.FromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if raw == "" {
		return "", nil
	}
	claims, err := token.Parse(raw, tokenSecret)
	if err != nil {
		c.Logger().Warnf("rejecting token: %+v", err)
		return "", model.ErrorInvalidToken
	}
	return claims.Name, nil
}

func failure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrorEmptyContent):
		return c.JSON(http.StatusBadRequest, errorResponse{"Post content cannot be empty."})
	case errors.Is(err, model.ErrorPostNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{"Post not found."})
	case errors.Is(err, model.ErrorInvalidToken):
		return c.JSON(http.StatusUnauthorized, errorResponse{"Invalid token."})
	}
	c.Logger().Errorf("posts request failed: %+v", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{"Internal server error."})
}

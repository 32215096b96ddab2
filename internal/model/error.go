package model

import "errors"

var ErrorEmptyContent = errors.New("post content cannot be empty")
var ErrorPostNotFound = errors.New("post not found")
var ErrorInvalidToken = errors.New("invalid token")

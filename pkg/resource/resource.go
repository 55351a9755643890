// Package resource loads templates and other text resources from a
// file system, from S3, or from a chain of both.
package resource

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotExist is returned by Content when the resource does not exist.
var ErrNotExist = errors.New("resource: does not exist")

// ErrInvalidPath is returned for paths that escape the resource root.
var ErrInvalidPath = errors.New("resource: invalid path")

// Loader looks up resources by slash-separated path.
// Implementations must be safe for concurrent use.
type Loader interface {
	Exists(ctx context.Context, name string) bool
	Content(ctx context.Context, name string) (string, error)
}

// cleanName normalises a resource path to the fs.ValidPath form.
func cleanName(name string) (string, error) {
	if strings.ContainsAny(name, "\\\x00") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return "", ErrInvalidPath
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// Chain returns a loader trying each loader in order. The first loader
// that has a resource serves it.
func Chain(loaders ...Loader) Loader {
	return chain(loaders)
}

type chain []Loader

func (c chain) Exists(ctx context.Context, name string) bool {
	for _, l := range c {
		if l.Exists(ctx, name) {
			return true
		}
	}
	return false
}

func (c chain) Content(ctx context.Context, name string) (string, error) {
	for _, l := range c {
		content, err := l.Content(ctx, name)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, ErrNotExist) {
			return "", err
		}
	}
	return "", ErrNotExist
}

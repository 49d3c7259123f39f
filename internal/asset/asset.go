// Package asset enumerates bundled asset files below a base path.
package asset

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/torfstack/assetprint/internal/logging"
)

var ErrListing = errors.New("could not list asset path")

// Lister lists the immediate children of a path in a read-only asset
// namespace. An empty result marks the path as a leaf file.
type Lister interface {
	List(path string) ([]string, error)
}

// ListerFunc adapts a plain function to Lister.
type ListerFunc func(path string) ([]string, error)

func (f ListerFunc) List(path string) ([]string, error) {
	return f(path)
}

// List is an ordered sequence of asset paths in depth-first discovery order.
type List []string

// Enumerate walks the asset namespace below basePath depth-first and returns
// every leaf path. A path whose listing fails contributes nothing; the walk
// continues with its siblings and the failures are returned joined together
// with the partial list.
func Enumerate(lister Lister, basePath string) (List, error) {
	result := make(List, 0)
	var errs []error

	stack := []string{basePath}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := lister.List(p)
		if err != nil {
			logging.Debugf("Skipping asset path '%s': %s", p, err)
			errs = append(errs, fmt.Errorf("%w '%s': %w", ErrListing, p, err))
			continue
		}
		if len(children) == 0 {
			result = append(result, p)
			continue
		}

		// pushed in reverse so the first child is visited first
		for _, child := range slices.Backward(children) {
			stack = append(stack, Join(p, child))
		}
	}

	return result, errors.Join(errs...)
}

// Join appends child to dir with a single "/" separator. An empty or root
// dir yields the bare child name.
func Join(dir, child string) string {
	if dir == "" || dir == "/" {
		return child
	}
	return strings.TrimSuffix(dir, "/") + "/" + child
}

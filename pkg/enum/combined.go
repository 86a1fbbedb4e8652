package enum

import (
	"context"
	"sync"
)

// CombinedEnumerator runs multiple enumerators sequentially and deduplicates
// sources by provenance so each path is yielded at most once, even when
// command-line roots overlap.
type CombinedEnumerator struct {
	enumerators []Enumerator
}

// NewCombinedEnumerator creates a CombinedEnumerator that wraps the provided
// enumerators.
func NewCombinedEnumerator(enumerators ...Enumerator) *CombinedEnumerator {
	return &CombinedEnumerator{enumerators: enumerators}
}

// Enumerate runs each child enumerator in sequence, passing unique sources to
// callback.
func (c *CombinedEnumerator) Enumerate(ctx context.Context, callback func(src Source) error) error {
	var mu sync.Mutex
	seen := make(map[string]bool)

	for _, e := range c.enumerators {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.Enumerate(ctx, func(src Source) error {
			key := sourceKey(src)
			mu.Lock()
			if seen[key] {
				mu.Unlock()
				return nil
			}
			seen[key] = true
			mu.Unlock()

			return callback(src)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func sourceKey(src Source) string {
	if src.Provenance == nil {
		return ""
	}
	return src.Provenance.Kind() + "\x00" + src.Provenance.Path()
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

var loadGroup singleflight.Group

// GetOrLoad returns the value from the cache or calls load and caches its result with the given TTL.
// Concurrent calls for the same key of the same cache share a single load call.
// Errors of load are returned as is and nothing is cached.
func GetOrLoad[V any](
	ctx context.Context, c Store[V], key string, ttl time.Duration, load func(ctx context.Context) (V, error),
) (V, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}
	res, err, _ := loadGroup.Do(fmt.Sprintf("%p:%s", c, key), func() (interface{}, error) {
		// The value might have been loaded by a call that finished just before this one started.
		if value, ok := c.Get(ctx, key); ok {
			return value, nil
		}
		value, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		c.Set(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	value, _ := res.(V) // nil interface for V being an interface type.
	return value, nil
}

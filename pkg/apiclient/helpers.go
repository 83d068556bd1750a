package apiclient

import "context"

// getResource performs a GET request to the given path and decodes the
// response data into a value of type T.
//
// Example:
//
//	stats, err := getResource[directory.Stats](ctx, c, "/api/v1/stats")
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listResources performs a GET request to the given path and decodes the
// response data into a slice of type T. An empty list is never nil.
func listResources[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	results := []T{}
	if err := c.get(ctx, path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

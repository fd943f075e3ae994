package cmd

import (
	"context"
	"fmt"
	"net/http"
)

// pingBackend checks that something answers HTTP at baseURL. Any status
// counts: the backend has no dedicated health route.
func pingBackend(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return fmt.Errorf("build backend request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

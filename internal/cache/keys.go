package cache

import "fmt"

// JobStatusKey is where the mirrored job snapshot for id is stored.
func JobStatusKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// RateLimitKey is the per-minute request counter for a client on a route scope.
func RateLimitKey(scope, client string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, client)
}

// ReplayKey caches an archived analysis by match id.
func ReplayKey(matchID string) string {
	return fmt.Sprintf("replay:%s", matchID)
}

package activity

import "time"

// FilterByScope keeps the repositories whose visibility is selected by scope.
// The Private flag is taken as authoritative.
func FilterByScope(repos []Repository, scope AccessScope) []Repository {
	result := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		if (repo.Private && scope.IncludePrivate) || (!repo.Private && scope.IncludePublic) {
			result = append(result, repo)
		}
	}
	return result
}

// Since returns the cutoff instant for a lookback window ending at now.
// Callers compute it once per report and reuse it for every query.
func Since(now time.Time, lookback time.Duration) time.Time {
	return now.Add(-lookback)
}

// LookbackDays converts a day count into a window length. Non-positive values
// fall back to one day.
func LookbackDays(days int) time.Duration {
	if days <= 0 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

// WithinWindow keeps repositories pushed strictly after cutoff. Repositories
// without a push timestamp are treated as inactive.
func WithinWindow(repos []Repository, cutoff time.Time) []Repository {
	result := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.PushedAt.IsZero() {
			continue
		}
		if repo.PushedAt.After(cutoff) {
			result = append(result, repo)
		}
	}
	return result
}

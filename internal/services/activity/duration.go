package activity

import (
	"math"
	"sort"
	"time"
)

// EstimateDuration measures the span between the first and the last commit of
// a repository, in minutes.
//
// A repository with a single valid commit yields 0; the presentation layer is
// expected to show that case as "one commit" rather than a duration.
func EstimateDuration(a RepositoryActivity) RepoDuration {
	d := RepoDuration{RepoName: a.RepoName, CommitCount: len(a.Commits)}
	if len(a.Commits) == 0 {
		return d
	}

	stamps := make([]time.Time, 0, len(a.Commits))
	for _, c := range a.Commits {
		t, ok := parseTimestamp(c.Timestamp)
		if !ok {
			continue
		}
		stamps = append(stamps, t)
	}
	if len(stamps) == 0 {
		return d
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	ms := stamps[len(stamps)-1].Sub(stamps[0]).Milliseconds()
	minutes := int(math.Round(float64(ms) / 60000))
	if minutes < 0 {
		minutes = 0
	}
	d.DurationMinutes = minutes
	return d
}

// EstimateDurations returns one RepoDuration per activity, in the same order.
func EstimateDurations(activities []RepositoryActivity) []RepoDuration {
	durations := make([]RepoDuration, 0, len(activities))
	for _, a := range activities {
		durations = append(durations, EstimateDuration(a))
	}
	return durations
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package activity

import "sort"

// Aggregate merges commits and pull requests into one record per active
// repository.
//
// Pull requests are only attached to repositories already present in active;
// a pull request from any other repository is dropped. Pull requests are
// deduplicated by number within their repository. Records without events are
// removed and the rest are sorted by event count, highest first, keeping the
// order of active for ties.
func Aggregate(active []Repository, commitsByRepo map[int64][]Commit, prs []PullRequest) []RepositoryActivity {
	activities := make([]RepositoryActivity, 0, len(active))
	byID := make(map[int64]int, len(active))
	byName := make(map[string]int, len(active))

	for _, repo := range active {
		if _, dup := byID[repo.ID]; dup {
			continue
		}
		commits := commitsByRepo[repo.ID]
		copied := make([]Commit, len(commits))
		copy(copied, commits)

		byID[repo.ID] = len(activities)
		if _, seen := byName[repo.FullName]; !seen {
			byName[repo.FullName] = len(activities)
		}
		activities = append(activities, RepositoryActivity{
			RepoID:       repo.ID,
			RepoName:     repo.FullName,
			IsPrivate:    repo.Private,
			Commits:      copied,
			PullRequests: []PullRequest{},
		})
	}

	for _, pr := range prs {
		idx, ok := byName[pr.RepoFullName()]
		if !ok {
			continue
		}
		if activities[idx].hasPullRequest(pr.Number) {
			continue
		}
		activities[idx].PullRequests = append(activities[idx].PullRequests, pr)
	}

	result := activities[:0]
	for _, a := range activities {
		if a.EventCount() > 0 {
			result = append(result, a)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EventCount() > result[j].EventCount()
	})
	return result
}

// SelectRepositories keeps the activities whose repository id is in ids. An
// empty ids slice selects everything.
func SelectRepositories(activities []RepositoryActivity, ids []int64) []RepositoryActivity {
	if len(ids) == 0 {
		return activities
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result := make([]RepositoryActivity, 0, len(ids))
	for _, a := range activities {
		if _, ok := wanted[a.RepoID]; ok {
			result = append(result, a)
		}
	}
	return result
}

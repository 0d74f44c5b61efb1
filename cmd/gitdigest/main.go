// Gitdigest prints a daily report of your GitHub activity.
//
// Usage:
//
//	# Yesterday's activity in public and private repositories
//	GITHUB_TOKEN=... gitdigest report --private
//
//	# The last week, aggregated activity only
//	gitdigest report --days 7 --no-summary
package main

func main() {
	Execute()
}

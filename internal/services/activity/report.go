package activity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SummaryStyle is the tone requested for the generated report.
type SummaryStyle string

const (
	StyleProfessional SummaryStyle = "PROFESSIONAL"
	StyleTechnical    SummaryStyle = "TECHNICAL"
	StyleAchievement  SummaryStyle = "ACHIEVEMENT"
)

// Valid reports whether s is one of the known styles.
func (s SummaryStyle) Valid() bool {
	switch s {
	case StyleProfessional, StyleTechnical, StyleAchievement:
		return true
	}
	return false
}

// OutputLanguage is the language the summary is written in.
type OutputLanguage string

const (
	LanguageChinese  OutputLanguage = "CHINESE"
	LanguageEnglish  OutputLanguage = "ENGLISH"
	LanguageJapanese OutputLanguage = "JAPANESE"
	LanguageKorean   OutputLanguage = "KOREAN"
	LanguageFrench   OutputLanguage = "FRENCH"
	LanguageGerman   OutputLanguage = "GERMAN"
	LanguageSpanish  OutputLanguage = "SPANISH"
)

// Languages lists every supported output language.
var Languages = []OutputLanguage{
	LanguageChinese, LanguageEnglish, LanguageJapanese, LanguageKorean,
	LanguageFrench, LanguageGerman, LanguageSpanish,
}

// Valid reports whether l is one of the supported languages.
func (l OutputLanguage) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// RepoSummary is the prose summary of one repository.
type RepoSummary struct {
	RepoName string   `json:"repoName"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
}

// Summary is the structured result of the summarization step.
type Summary struct {
	Headline        string        `json:"headline"`
	KeyAchievements []string      `json:"keyAchievements"`
	RepoSummaries   []RepoSummary `json:"repoSummaries"`
}

// ErrIncompleteSummary marks a summary missing required fields.
var ErrIncompleteSummary = errors.New("summary is missing required fields")

// Validate checks that every required field is present. It does not repair
// anything.
func (s *Summary) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: empty result", ErrIncompleteSummary)
	}
	var missing []string
	if strings.TrimSpace(s.Headline) == "" {
		missing = append(missing, "headline")
	}
	if len(s.KeyAchievements) == 0 {
		missing = append(missing, "keyAchievements")
	}
	if s.RepoSummaries == nil {
		missing = append(missing, "repoSummaries")
	}
	for i, rs := range s.RepoSummaries {
		if strings.TrimSpace(rs.RepoName) == "" {
			missing = append(missing, fmt.Sprintf("repoSummaries[%d].repoName", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteSummary, strings.Join(missing, ", "))
	}
	return nil
}

// DailyReport is the value handed to the dashboard. It is built once by
// Assemble and never modified afterwards.
type DailyReport struct {
	Headline        string         `json:"headline"`
	Date            string         `json:"date"`
	TotalCommits    int            `json:"totalCommits"`
	TotalPRs        int            `json:"totalPRs"`
	KeyAchievements []string       `json:"keyAchievements"`
	RepoSummaries   []RepoSummary  `json:"repoSummaries"`
	Style           SummaryStyle   `json:"style"`
	RepoDurations   []RepoDuration `json:"repoDurations"`
}

// Assemble combines the aggregated activities with the summary. Totals and
// durations are computed over exactly the activities passed in. now should
// already be in the reader's timezone.
func Assemble(activities []RepositoryActivity, summary *Summary, style SummaryStyle, lang OutputLanguage, now time.Time) DailyReport {
	report := DailyReport{
		Date:            FormatDate(now, lang),
		Style:           style,
		RepoDurations:   EstimateDurations(activities),
		KeyAchievements: []string{},
		RepoSummaries:   []RepoSummary{},
	}
	report.TotalCommits, report.TotalPRs = Totals(activities)
	if summary != nil {
		report.Headline = summary.Headline
		if summary.KeyAchievements != nil {
			report.KeyAchievements = append([]string(nil), summary.KeyAchievements...)
		}
		if summary.RepoSummaries != nil {
			report.RepoSummaries = append([]RepoSummary(nil), summary.RepoSummaries...)
		}
	}
	return report
}

// Totals returns the commit and pull request counts across activities.
func Totals(activities []RepositoryActivity) (commits, prs int) {
	for _, a := range activities {
		commits += len(a.Commits)
		prs += len(a.PullRequests)
	}
	return commits, prs
}

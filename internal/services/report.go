package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ActivityRequest selects whose activity is read and how far back.
type ActivityRequest struct {
	UserID       uint // 0 when not backed by a stored user, e.g. the CLI
	Identity     string
	AccessToken  string
	Scope        activity.AccessScope
	LookbackDays int
	RepoIDs      []int64 // optional subset, applied before summary and totals
}

type GenerateReportRequest struct {
	ActivityRequest
	Style    activity.SummaryStyle
	Language activity.OutputLanguage
	Timezone string
}

type ReportListRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ReportListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.DailyReport `json:"items"`
}

// ReportDetail is a stored report with its decoded payload.
type ReportDetail struct {
	models.DailyReport
	Report *activity.DailyReport `json:"report"`
}

type ReportService struct {
	db            *gorm.DB
	configService *SystemConfigService
	activityCfg   config.ActivityConfig
	newFetcher    github.Factory
	summarizer    Summarizer
	now           func() time.Time
}

// NewReportService wires the report pipeline. db may be nil, in which case
// nothing is persisted and runtime knobs come from cfg alone.
func NewReportService(db *gorm.DB, cfg config.ActivityConfig, newFetcher github.Factory, summarizer Summarizer) *ReportService {
	var configService *SystemConfigService
	if db != nil {
		configService = NewSystemConfigService(db)
	}
	return &ReportService{
		db:            db,
		configService: configService,
		activityCfg:   cfg,
		newFetcher:    newFetcher,
		summarizer:    summarizer,
		now:           time.Now,
	}
}

func (s *ReportService) validateActivityRequest(req *ActivityRequest, maxDays int) error {
	if strings.TrimSpace(req.Identity) == "" {
		return response.NewBadRequest("username is required")
	}
	if req.AccessToken == "" {
		return response.NewUnauthorized("Not authenticated")
	}
	if err := req.Scope.Validate(); err != nil {
		return response.NewBadRequest(err.Error())
	}
	if req.LookbackDays == 0 {
		req.LookbackDays = s.activityCfg.DefaultLookbackDays
	}
	if req.LookbackDays < 1 || req.LookbackDays > maxDays {
		return response.NewBadRequest(fmt.Sprintf("days must be between 1 and %d", maxDays))
	}
	return nil
}

func validateReportOptions(style activity.SummaryStyle, lang activity.OutputLanguage) error {
	if !style.Valid() {
		return response.NewBadRequest(fmt.Sprintf("unknown report style %q", style))
	}
	if !lang.Valid() {
		return response.NewBadRequest(fmt.Sprintf("unknown output language %q", lang))
	}
	return nil
}

// CollectActivity runs the fetch half of the pipeline: repository listing,
// scope gate, time window, commit fan-out, pull request search and
// aggregation. An empty result is reported as activity.ErrNoActivity.
func (s *ReportService) CollectActivity(ctx context.Context, req *ActivityRequest) ([]activity.RepositoryActivity, error) {
	settings := s.configService.ActivitySettings(s.activityCfg)
	if err := s.validateActivityRequest(req, settings.MaxLookbackDays); err != nil {
		return nil, err
	}

	fetcher, err := s.newFetcher(req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}

	repos, scopes, err := fetcher.ListRepositories(ctx)
	if err != nil {
		return nil, s.collaboratorError(req.UserID, "Failed to list repositories", err)
	}
	if req.Scope.IncludePrivate && lacksRepoScope(scopes) {
		return nil, response.NewForbidden(msgMissingRepo)
	}

	cutoff := activity.Since(s.now(), activity.LookbackDays(req.LookbackDays))
	active := activity.WithinWindow(activity.FilterByScope(repos, req.Scope), cutoff)
	logger.Info().
		Str("login", req.Identity).
		Int("repositories", len(repos)).
		Int("active", len(active)).
		Time("since", cutoff).
		Msg("Collecting activity")
	if len(active) == 0 {
		return nil, activity.ErrNoActivity
	}

	commitsByRepo := s.fetchCommits(ctx, fetcher, active, req.Identity, cutoff, settings)

	prs, err := fetcher.SearchPullRequests(ctx, req.Identity, cutoff)
	if err != nil {
		return nil, s.collaboratorError(req.UserID, "Failed to search pull requests", err)
	}

	activities := activity.SelectRepositories(activity.Aggregate(active, commitsByRepo, prs), req.RepoIDs)
	if len(activities) == 0 {
		return nil, activity.ErrNoActivity
	}
	return activities, nil
}

// fetchCommits lists commits of every repository concurrently. A failed fetch
// contributes no commits. Each goroutine owns one slot of results.
func (s *ReportService) fetchCommits(ctx context.Context, fetcher github.Fetcher, repos []activity.Repository, author string, since time.Time, settings ActivitySettings) map[int64][]activity.Commit {
	if settings.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.FetchTimeout)
		defer cancel()
	}

	results := make([][]activity.Commit, len(repos))
	var g errgroup.Group
	g.SetLimit(max(settings.FetchConcurrency, 1))
	for i, repo := range repos {
		g.Go(func() error {
			commits, err := fetcher.ListCommits(ctx, repo, author, since)
			metrics.RecordCommitFetch(err == nil)
			if err != nil {
				logger.Warn().Err(err).Str("repo", repo.FullName).Msg("Commit fetch failed, counting zero commits")
				return nil
			}
			results[i] = commits
			return nil
		})
	}
	_ = g.Wait()

	byRepo := make(map[int64][]activity.Commit, len(repos))
	for i, repo := range repos {
		if len(results[i]) > 0 {
			byRepo[repo.ID] = results[i]
		}
	}
	return byRepo
}

// GenerateReport runs the whole pipeline and stores the result in the
// caller's history.
func (s *ReportService) GenerateReport(ctx context.Context, req *GenerateReportRequest) (*activity.DailyReport, error) {
	start := time.Now()
	report, err := s.generateReport(ctx, req)
	metrics.ObserveReport(reportOutcome(err), time.Since(start))
	return report, err
}

func (s *ReportService) generateReport(ctx context.Context, req *GenerateReportRequest) (*activity.DailyReport, error) {
	if err := validateReportOptions(req.Style, req.Language); err != nil {
		return nil, err
	}

	activities, err := s.CollectActivity(ctx, &req.ActivityRequest)
	if err != nil {
		return nil, err
	}

	report, model, err := s.summarize(ctx, activities, req.Style, req.Language, req.Timezone)
	if err != nil {
		return nil, err
	}

	s.saveHistory(req, report, len(activities), model)
	return report, nil
}

// Summarize assembles a report from activities supplied by the caller.
func (s *ReportService) Summarize(ctx context.Context, activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage, timezone string) (*activity.DailyReport, error) {
	if err := validateReportOptions(style, lang); err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, activity.ErrNoActivity
	}
	report, _, err := s.summarize(ctx, activities, style, lang, timezone)
	return report, err
}

func (s *ReportService) summarize(ctx context.Context, activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage, timezone string) (*activity.DailyReport, string, error) {
	summary, model, err := s.summarizer.Summarize(ctx, activities, style, lang)
	if err != nil {
		return nil, "", response.NewBadGateway("Failed to generate report, please try again", err)
	}
	if err := summary.Validate(); err != nil {
		return nil, "", response.NewBadGateway("Failed to generate report, please try again", err)
	}

	report := activity.Assemble(activities, summary, style, lang, s.now().In(loadLocation(timezone)))
	return &report, model, nil
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn().Str("timezone", name).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (s *ReportService) collaboratorError(userID uint, msg string, err error) error {
	return githubError(s.db, userID, msg, err)
}

func reportOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, activity.ErrNoActivity):
		return "no_activity"
	default:
		return "error"
	}
}

func (s *ReportService) saveHistory(req *GenerateReportRequest, report *activity.DailyReport, repos int, model string) {
	if s.db == nil || req.UserID == 0 || !s.configService.HistoryEnabled() {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode report for history")
		return
	}
	record := models.DailyReport{
		UserID:       req.UserID,
		Login:        req.Identity,
		Style:        string(req.Style),
		Language:     string(req.Language),
		LookbackDays: req.LookbackDays,
		Headline:     report.Headline,
		TotalRepos:   repos,
		TotalCommits: report.TotalCommits,
		TotalPRs:     report.TotalPRs,
		Payload:      string(payload),
		AIModelUsed:  model,
	}
	if err := s.db.Create(&record).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", req.UserID).Msg("Failed to save report history")
	}
}

func (s *ReportService) List(userID uint, req *ReportListRequest) (*ReportListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	query := s.db.Model(&models.DailyReport{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var reports []models.DailyReport
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&reports).Error; err != nil {
		return nil, err
	}

	return &ReportListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    reports,
	}, nil
}

func (s *ReportService) GetByID(userID, id uint) (*ReportDetail, error) {
	var record models.DailyReport
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Report not found")
	}
	if err != nil {
		return nil, err
	}

	detail := &ReportDetail{DailyReport: record}
	if record.Payload != "" {
		var report activity.DailyReport
		if err := json.Unmarshal([]byte(record.Payload), &report); err != nil {
			return nil, fmt.Errorf("decode report %d: %w", id, err)
		}
		detail.Report = &report
	}
	return detail, nil
}

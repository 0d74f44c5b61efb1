package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrNoProviders is returned when no summarization backend is configured.
var ErrNoProviders = errors.New("no LLM provider configured")

const defaultProviderTimeout = 120 * time.Second

const systemInstruction = "You are a professional technical writer who specializes in summarizing software development logs. " +
	"Generate clear, insightful daily reports based on GitHub activity data. " +
	"Focus on meaningful achievements and avoid trivial details."

var styleInstructions = map[activity.SummaryStyle]string{
	activity.StyleProfessional: "Use a concise, professional tone. Employ business-oriented verbs (completed, fixed, deployed, implemented). Focus on results and keep it brief.",
	activity.StyleTechnical:    "Provide technical depth and analysis. Use precise technical terminology. When possible, mention specific modules, architectural changes, or refactoring patterns.",
	activity.StyleAchievement:  "Highlight achievements with an enthusiastic tone. Emphasize the impact and complexity of the work. Celebrate progress and milestones.",
}

var languageNames = map[activity.OutputLanguage]string{
	activity.LanguageChinese:  "Simplified Chinese",
	activity.LanguageEnglish:  "English",
	activity.LanguageJapanese: "Japanese",
	activity.LanguageKorean:   "Korean",
	activity.LanguageFrench:   "French",
	activity.LanguageGerman:   "German",
	activity.LanguageSpanish:  "Spanish",
}

// Summarizer turns aggregated activity into a structured summary. The second
// return value names the model that produced it.
type Summarizer interface {
	Summarize(ctx context.Context, activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage) (*activity.Summary, string, error)
}

type llmCall func(ctx context.Context, provider *config.LLMProviderConfig, system, prompt string) (string, error)

// LLMSummarizer tries each configured provider in order until one returns a
// complete summary.
type LLMSummarizer struct {
	providers     []config.LLMProviderConfig
	configService *SystemConfigService
	fallback      config.SummaryConfig
	call          llmCall
}

func NewLLMSummarizer(providers []config.LLMProviderConfig, configService *SystemConfigService, fallback config.SummaryConfig) *LLMSummarizer {
	s := &LLMSummarizer{
		providers:     providers,
		configService: configService,
		fallback:      fallback,
	}
	s.call = s.callLLM
	return s
}

func (s *LLMSummarizer) Summarize(ctx context.Context, activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage) (*activity.Summary, string, error) {
	if len(s.providers) == 0 {
		return nil, "", ErrNoProviders
	}

	prompt, err := BuildSummaryPrompt(activities, style, lang, s.configService.SummaryLimits(s.fallback))
	if err != nil {
		return nil, "", err
	}
	logger.Infof("[AI] Summary prompt length: %d chars, repositories: %d", len(prompt), len(activities))

	var lastErr error
	for i := range s.providers {
		provider := &s.providers[i]
		logger.Infof("[AI] Attempting LLM %d/%d: %s (model: %s)", i+1, len(s.providers), provider.Name, provider.Model)

		summary, err := s.attempt(ctx, provider, prompt)
		metrics.RecordSummarizerCall(provider.Provider, err == nil)
		if err == nil {
			logger.Infof("[AI] Success with LLM: %s", provider.Name)
			return summary, provider.Model, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		lastErr = err
		logger.Infof("[AI] LLM %s failed: %v, trying next...", provider.Name, err)
	}

	return nil, "", fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *LLMSummarizer) attempt(ctx context.Context, provider *config.LLMProviderConfig, prompt string) (*activity.Summary, error) {
	timeout := defaultProviderTimeout
	if provider.Timeout > 0 {
		timeout = time.Duration(provider.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := s.call(ctx, provider, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}
	return ParseSummary(content)
}

// ParseSummary decodes a model response into a validated summary. Markdown
// code fences around the JSON are tolerated.
func ParseSummary(content string) (*activity.Summary, error) {
	content = stripCodeFence(content)
	var summary activity.Summary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := summary.Validate(); err != nil {
		return nil, err
	}
	return &summary, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

type promptPR struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type promptRepo struct {
	Repo    string     `json:"repo"`
	Commits []string   `json:"commits"`
	PRs     []promptPR `json:"prs"`
}

// BuildSummaryPrompt renders the user prompt. Commits and pull requests are
// capped per repository and pull request bodies are truncated by rune count.
func BuildSummaryPrompt(activities []activity.RepositoryActivity, style activity.SummaryStyle, lang activity.OutputLanguage, limits SummaryLimits) (string, error) {
	payload := make([]promptRepo, 0, len(activities))
	for _, a := range activities {
		commits := a.Commits
		if limits.MaxCommitsPerRepo > 0 && len(commits) > limits.MaxCommitsPerRepo {
			commits = commits[:limits.MaxCommitsPerRepo]
		}
		prs := a.PullRequests
		if limits.MaxPRsPerRepo > 0 && len(prs) > limits.MaxPRsPerRepo {
			prs = prs[:limits.MaxPRsPerRepo]
		}

		repo := promptRepo{
			Repo:    a.RepoName,
			Commits: make([]string, 0, len(commits)),
			PRs:     make([]promptPR, 0, len(prs)),
		}
		for _, c := range commits {
			repo.Commits = append(repo.Commits, c.Message)
		}
		for _, pr := range prs {
			repo.PRs = append(repo.PRs, promptPR{
				Title:       pr.Title,
				Description: truncateRunes(pr.Body, limits.MaxPRBodyLength),
			})
		}
		payload = append(payload, repo)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode activity: %w", err)
	}

	styleText, ok := styleInstructions[style]
	if !ok {
		styleText = styleInstructions[activity.StyleProfessional]
	}
	language, ok := languageNames[lang]
	if !ok {
		language = languageNames[activity.LanguageEnglish]
	}

	var b strings.Builder
	b.WriteString("## Role\n")
	b.WriteString("You write the daily engineering digest for a developer, based on what they pushed to GitHub.\n\n")
	b.WriteString("## Task\n")
	b.WriteString("Read the activity below and produce a short report: a headline, the key achievements, and one summary per repository.\n\n")
	b.WriteString("## Style Guidelines\n")
	b.WriteString(styleText)
	b.WriteString("\n\n## Output Language\n")
	fmt.Fprintf(&b, "All output content must be in %s.\n\n", language)
	b.WriteString("## Activity Data\n")
	b.Write(data)
	b.WriteString("\n\n## Requirements\n")
	b.WriteString("- Respond with a single JSON object and nothing else.\n")
	b.WriteString("- \"headline\": a string of at most 10 words.\n")
	b.WriteString("- \"keyAchievements\": an array of 3 to 5 strings.\n")
	b.WriteString("- \"repoSummaries\": an array of objects with \"repoName\", \"summary\" and \"tags\" (2 to 3 short strings).\n")
	b.WriteString("- Use the repository names exactly as they appear in the activity data.\n")
	return b.String(), nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// callLLM dispatches to the provider-specific client.
func (s *LLMSummarizer) callLLM(ctx context.Context, provider *config.LLMProviderConfig, system, prompt string) (string, error) {
	logger.Infof("[AI] Using provider: %s, model: %s, baseURL: %s", provider.Provider, provider.Model, provider.BaseURL)

	switch provider.Provider {
	case "gemini":
		return callGemini(ctx, provider, system, prompt)
	case "anthropic":
		return callAnthropic(ctx, provider, system, prompt)
	case "ollama":
		return callOllama(ctx, provider, system, prompt)
	case "azure":
		cfg := openai.DefaultAzureConfig(provider.APIKey, provider.BaseURL)
		return callChatCompletion(ctx, openai.NewClientWithConfig(cfg), "Azure OpenAI", provider.Model, system, prompt)
	default:
		cfg := openai.DefaultConfig(provider.APIKey)
		if provider.BaseURL != "" {
			cfg.BaseURL = provider.BaseURL
		}
		return callChatCompletion(ctx, openai.NewClientWithConfig(cfg), "OpenAI", provider.Model, system, prompt)
	}
}

func summarySchema() *genai.Schema {
	minAchievements, maxAchievements := int64(3), int64(5)
	minTags, maxTags := int64(2), int64(3)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"headline": {
				Type:        genai.TypeString,
				Description: "Catchy headline for the day, at most 10 words",
			},
			"keyAchievements": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: &minAchievements,
				MaxItems: &maxAchievements,
			},
			"repoSummaries": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"repoName": {Type: genai.TypeString},
						"summary":  {Type: genai.TypeString},
						"tags": {
							Type:     genai.TypeArray,
							Items:    &genai.Schema{Type: genai.TypeString},
							MinItems: &minTags,
							MaxItems: &maxTags,
						},
					},
					Required: []string{"repoName", "summary", "tags"},
				},
			},
		},
		Required: []string{"headline", "keyAchievements", "repoSummaries"},
	}
}

func callGemini(ctx context.Context, provider *config.LLMProviderConfig, system, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  provider.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := provider.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    summarySchema(),
	})
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	content := resp.Text()
	logger.Infof("[AI] Gemini response length: %d chars", len(content))
	return content, nil
}

func callChatCompletion(ctx context.Context, client *openai.Client, label, model, system, prompt string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", label, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", label)
	}

	content := resp.Choices[0].Message.Content
	logger.Infof("[AI] %s response length: %d chars", label, len(content))
	return content, nil
}

func callAnthropic(ctx context.Context, provider *config.LLMProviderConfig, system, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(provider.APIKey)}
	if provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(provider.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := provider.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	logger.Infof("[AI] Anthropic response length: %d chars", content.Len())
	return content.String(), nil
}

func callOllama(ctx context.Context, provider *config.LLMProviderConfig, system, prompt string) (string, error) {
	baseURL := provider.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := provider.Model
	if model == "" {
		model = "llama3"
	}

	stream := false
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	logger.Infof("[AI] Ollama response length: %d chars", content.Len())
	return content.String(), nil
}

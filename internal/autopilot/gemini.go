package autopilot

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/gtfoklahoma/internal/content"
)

//go:embed prompts/choose_action.txt
var chooseActionPrompt string

//go:embed prompts/choose_items.txt
var chooseItemsPrompt string

var (
	actionTmpl = template.Must(template.New("choose_action").Parse(chooseActionPrompt))
	itemsTmpl  = template.Must(template.New("choose_items").Parse(chooseItemsPrompt))
)

var ErrNoAnswer = errors.New("no content returned from Gemini")

// GeminiChooser asks a Gemini model to play. Any failure to get a usable
// answer falls back to the fallback chooser.
type GeminiChooser struct {
	client   *genai.Client
	generate func(ctx context.Context, prompt string) (string, error)
	fallback Chooser
	logger   *log.Logger
}

func NewGeminiChooser(ctx context.Context, apiKey, model string, fallback Chooser, logger *log.Logger) (*GeminiChooser, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	c := newGeminiChooser(func(ctx context.Context, prompt string) (string, error) {
		resp, err := m.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", ErrNoAnswer
		}
		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return "", fmt.Errorf("unexpected response type from Gemini")
		}
		return string(text), nil
	}, fallback, logger)
	c.client = client
	return c, nil
}

func newGeminiChooser(generate func(context.Context, string) (string, error), fallback Chooser, logger *log.Logger) *GeminiChooser {
	if logger == nil {
		logger = log.Default()
	}
	return &GeminiChooser{generate: generate, fallback: fallback, logger: logger}
}

func (c *GeminiChooser) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *GeminiChooser) ChooseAction(ctx context.Context, s Situation) (int, error) {
	var reply struct {
		ActionID *int `yaml:"action_id"`
	}
	err := c.ask(ctx, actionTmpl, s, &reply)
	if err == nil && reply.ActionID == nil {
		err = errors.New("reply has no action_id")
	}
	if err == nil && !slices.ContainsFunc(s.Choices, func(a content.Action) bool { return a.ID == *reply.ActionID }) {
		err = fmt.Errorf("action %d is not an option", *reply.ActionID)
	}
	if err != nil {
		c.logger.Warn("gemini could not choose, falling back", "title", s.Title, "err", err)
		return c.fallback.ChooseAction(ctx, s)
	}
	return *reply.ActionID, nil
}

func (c *GeminiChooser) ChooseItems(ctx context.Context, s Shop) ([]int, error) {
	var reply struct {
		Items []int `yaml:"items"`
	}
	if err := c.ask(ctx, itemsTmpl, s, &reply); err != nil {
		c.logger.Warn("gemini could not shop, falling back", "store", s.Title, "err", err)
		return c.fallback.ChooseItems(ctx, s)
	}
	return reply.Items, nil
}

func (c *GeminiChooser) ask(ctx context.Context, tmpl *template.Template, data any, out any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	text, err := c.generate(ctx, buf.String())
	if err != nil {
		return err
	}

	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	if err := yaml.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("parse reply: %w\nOutput was: %s", err, clean)
	}
	return nil
}

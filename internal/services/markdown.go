package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// frontMatter is the optional YAML header of a blog post.
type frontMatter struct {
	Title         string   `yaml:"title"`
	Slug          string   `yaml:"slug"`
	Excerpt       string   `yaml:"excerpt"`
	Tags          []string `yaml:"tags"`
	Author        string   `yaml:"author"`
	CoverImageURL string   `yaml:"cover"`
	PublishedAt   string   `yaml:"publishedAt"`
}

func (fm frontMatter) publishedAt() (*time.Time, error) {
	raw := strings.TrimSpace(fm.PublishedAt)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("publishedAt %q is not a date", raw)
}

// splitFrontMatter separates a leading "---" fenced YAML block from the markdown body.
func splitFrontMatter(src string) (frontMatter, string, error) {
	var fm frontMatter
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterFence+"\n") {
		return fm, src, nil
	}
	rest := normalized[len(frontMatterFence)+1:]
	end := strings.Index(rest, "\n"+frontMatterFence)
	if end < 0 {
		return fm, src, nil
	}
	header := rest[:end]
	body := strings.TrimPrefix(rest[end+len(frontMatterFence)+1:], "\n")
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return frontMatter{}, src, fmt.Errorf("front matter: %w", err)
	}
	return fm, body, nil
}

type markdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newMarkdownRenderer(policy *bluemonday.Policy) *markdownRenderer {
	return &markdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: policy,
	}
}

// Render converts markdown to sanitized HTML.
func (r *markdownRenderer) Render(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return r.policy.Sanitize(buf.String()), nil
}

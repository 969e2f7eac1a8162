package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

var bodyTemplate = template.Must(template.New("digest").Parse(
	`{{if eq .Count 1}}There is a new event in {{.Platform}}:{{else}}There are {{.Count}} new events in {{.Platform}}:{{end}}
{{range .Items}}
{{.Date}}: {{.Title}}
{{- if .Scope}}
{{.ScopeLabel}}: {{.Scope}}{{end}}
{{- if .From}}
From: {{.From}}{{end}}
{{- if .Summary}}
{{.Summary}}{{end}}
{{end}}
Go to: {{.URL}} > Messages > Notifications

You are receiving this email because you chose to be notified of these events by email.
To stop receiving it, change your notification preferences in {{.Platform}}.
`))

type bodyData struct {
	Platform string
	URL      string
	Count    int
	Items    []itemData
}

type itemData struct {
	Date       string
	Title      string
	ScopeLabel string
	Scope      string
	From       string
	Summary    string
}

// renderer turns a batch into the subject and plain text body of one email.
type renderer struct {
	platform   string
	url        string
	loc        *time.Location
	directory  Directory
	summarizer notifications.Summarizer
}

func newRenderer(cfg Config, dir Directory, summarizer notifications.Summarizer) (*renderer, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, errors.Join(ErrInvalidTimeZone, err)
	}
	return &renderer{
		platform:   cfg.PlatformName,
		url:        cfg.PlatformURL,
		loc:        loc,
		directory:  dir,
		summarizer: summarizer,
	}, nil
}

func (r *renderer) subject(count int) string {
	if count == 1 {
		return fmt.Sprintf("%s: 1 new event", r.platform)
	}
	return fmt.Sprintf("%s: %d new events", r.platform, count)
}

func (r *renderer) body(ctx context.Context, batch []notifications.Notification) (string, error) {
	data := bodyData{
		Platform: r.platform,
		URL:      r.url,
		Count:    len(batch),
		Items:    make([]itemData, 0, len(batch)),
	}
	for _, n := range batch {
		data.Items = append(data.Items, r.item(ctx, n))
	}

	var b strings.Builder
	if err := bodyTemplate.Execute(&b, data); err != nil {
		return "", errors.Join(ErrFailedToRender, err)
	}
	return b.String(), nil
}

// item resolves names best effort: a missing name drops its line.
func (r *renderer) item(ctx context.Context, n notifications.Notification) itemData {
	info := n.Event.Info()
	it := itemData{
		Date:  n.CreatedAt.In(r.loc).Format("2006-01-02 15:04"),
		Title: info.Title,
	}

	switch info.Scope {
	case notifications.ScopeCourse:
		if n.Location.Course > 0 {
			it.ScopeLabel = "Course"
			it.Scope, _ = r.directory.ScopeName(ctx, info.Scope, n.Location.Course)
		}
	case notifications.ScopeForum:
		it.ScopeLabel = "Forum"
		it.Scope, _ = r.directory.ScopeName(ctx, info.Scope, n.SourceRef)
	}

	if n.FromUser > 0 {
		if from, err := r.directory.Recipient(ctx, n.FromUser); err == nil {
			it.From = from.Name
		}
	}

	if r.summarizer != nil {
		if sum := notifications.Summarize(ctx, r.summarizer, n.Event, n.SourceRef); sum != notifications.UnavailableSummary {
			it.Summary = sum.Short
		}
	}

	return it
}

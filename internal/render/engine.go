// Package render renders personalized notification emails from html/template
// files plus a text/template subject line.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// Engine renders templates from a directory. It implements core.Renderer.
type Engine struct {
	dir    string
	logger *zap.Logger
}

// NewEngine creates a template engine rooted at dir.
func NewEngine(dir string, logger *zap.Logger) *Engine {
	return &Engine{dir: dir, logger: logger}
}

// RenderEmail renders the named template file with the member's context.
func (e *Engine) RenderEmail(templateName string, member core.MemberRecord, state core.NotificationState, extractionDate, today time.Time) (string, error) {
	path := filepath.Join(e.dir, templateName)
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", path, err)
	}

	ctx := BuildContext(member, state, extractionDate, today)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

// RenderSubject renders the subject-line template string with the member's
// context.
func (e *Engine) RenderSubject(subjectTemplate string, member core.MemberRecord, state core.NotificationState, extractionDate, today time.Time) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(subjectTemplate)
	if err != nil {
		return "", fmt.Errorf("parse subject template: %w", err)
	}

	ctx := BuildContext(member, state, extractionDate, today)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("execute subject template: %w", err)
	}
	return buf.String(), nil
}

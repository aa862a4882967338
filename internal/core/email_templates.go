package core

// email_templates.go stores reusable email templates in the key-value
// store. Each template is a JSON document under templateKeyPrefix+id; ids
// come from an atomic counter in the same store.

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/daoninhthai/crm/internal/kv"
	"github.com/daoninhthai/crm/internal/logging"
)

const (
	templateKeyPrefix = "email_template:"
	templateSeqKey    = "seq:email_template"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)}}`)

// EmailTemplate is a reusable email with {{name}} placeholders.
type EmailTemplate struct {
	ID       int64  `json:"id"`
	Name     string `json:"name" validate:"notblank,max=100"`
	Subject  string `json:"subject" validate:"notblank,max=200"`
	Body     string `json:"body" validate:"notblank"`
	Category string `json:"category,omitempty"`
}

// RenderedEmail is a template with its placeholders filled in.
type RenderedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func templateKey(id int64) string {
	return templateKeyPrefix + strconv.FormatInt(id, 10)
}

func normalizeTemplate(t EmailTemplate) (EmailTemplate, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Subject = strings.TrimSpace(t.Subject)
	t.Category = strings.TrimSpace(t.Category)
	if err := validateStruct(t); err != nil {
		return EmailTemplate{}, err
	}
	return t, nil
}

func (s *Service) putTemplate(ctx context.Context, t EmailTemplate) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.templates.Set(ctx, templateKey(t.ID), data); err != nil {
		return wrapIO("store template", err)
	}
	return nil
}

// CreateEmailTemplate validates and stores a new template.
func (s *Service) CreateEmailTemplate(ctx context.Context, t EmailTemplate) (EmailTemplate, error) {
	t, err := normalizeTemplate(t)
	if err != nil {
		return EmailTemplate{}, err
	}

	id, err := s.templates.Incr(ctx, templateSeqKey)
	if err != nil {
		return EmailTemplate{}, wrapIO("allocate template id", err)
	}
	t.ID = id
	if err := s.putTemplate(ctx, t); err != nil {
		return EmailTemplate{}, err
	}

	logging.FromContext(ctx).Info("email template created", "template_id", id, "name", t.Name, "category", t.Category)
	return t, nil
}

// GetEmailTemplate returns a template by id.
func (s *Service) GetEmailTemplate(ctx context.Context, id int64) (EmailTemplate, error) {
	data, err := s.templates.Get(ctx, templateKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return EmailTemplate{}, notFound("Email template", id)
	}
	if err != nil {
		return EmailTemplate{}, wrapIO("load template", err)
	}

	var t EmailTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return EmailTemplate{}, wrapIO("decode template", err)
	}
	return t, nil
}

// ListEmailTemplates returns all templates ordered by id. A non-blank
// category keeps only templates of that category, ignoring case.
func (s *Service) ListEmailTemplates(ctx context.Context, category string) ([]EmailTemplate, error) {
	keys, err := s.templates.Keys(ctx, templateKeyPrefix)
	if err != nil {
		return nil, wrapIO("list templates", err)
	}

	out := make([]EmailTemplate, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, templateKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		t, err := s.GetEmailTemplate(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Deleted between Keys and Get.
			continue
		}
		if err != nil {
			return nil, err
		}
		if category != "" && !equalFoldTrim(t.Category, category) {
			continue
		}
		out = append(out, t)
	}

	slices.SortFunc(out, func(a, b EmailTemplate) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

// UpdateEmailTemplate replaces a template's content.
func (s *Service) UpdateEmailTemplate(ctx context.Context, id int64, t EmailTemplate) (EmailTemplate, error) {
	if _, err := s.GetEmailTemplate(ctx, id); err != nil {
		return EmailTemplate{}, err
	}
	t, err := normalizeTemplate(t)
	if err != nil {
		return EmailTemplate{}, err
	}
	t.ID = id
	if err := s.putTemplate(ctx, t); err != nil {
		return EmailTemplate{}, err
	}
	logging.FromContext(ctx).Info("email template updated", "template_id", id)
	return t, nil
}

// DeleteEmailTemplate removes a template.
func (s *Service) DeleteEmailTemplate(ctx context.Context, id int64) error {
	existed, err := s.templates.Delete(ctx, templateKey(id))
	if err != nil {
		return wrapIO("delete template", err)
	}
	if !existed {
		return notFound("Email template", id)
	}
	logging.FromContext(ctx).Info("email template deleted", "template_id", id)
	return nil
}

// RenderEmailTemplate fills the placeholders of a stored template.
func (s *Service) RenderEmailTemplate(ctx context.Context, id int64, vars map[string]string) (RenderedEmail, error) {
	t, err := s.GetEmailTemplate(ctx, id)
	if err != nil {
		return RenderedEmail{}, err
	}
	return RenderedEmail{
		Subject: RenderPlaceholders(t.Subject, vars),
		Body:    RenderPlaceholders(t.Body, vars),
	}, nil
}

// RenderPlaceholders replaces each {{name}} in text with vars[name].
// Placeholders without a value are left as they are.
func RenderPlaceholders(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const templateColumns = `id, name, template_name, template_version, verbose_name,
	description_short, description_long, logo, documentation_urls, external_urls,
	tags, is_internal, is_shared, handler_class, input, created_at, updated_at`

// UpsertTemplate inserts a template or, when one with the same name exists,
// updates it in place. Re-importing a template is how operators roll
// metadata and default inputs forward.
func (s *Store) UpsertTemplate(ctx context.Context, t *AppTemplate) (*AppTemplate, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO app_templates (
			id, name, template_name, template_version, verbose_name,
			description_short, description_long, logo, documentation_urls,
			external_urls, tags, is_internal, is_shared, handler_class, input
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT ON CONSTRAINT unique_app_templates_name DO UPDATE SET
			template_name = EXCLUDED.template_name,
			template_version = EXCLUDED.template_version,
			verbose_name = EXCLUDED.verbose_name,
			description_short = EXCLUDED.description_short,
			description_long = EXCLUDED.description_long,
			logo = EXCLUDED.logo,
			documentation_urls = EXCLUDED.documentation_urls,
			external_urls = EXCLUDED.external_urls,
			tags = EXCLUDED.tags,
			is_internal = EXCLUDED.is_internal,
			is_shared = EXCLUDED.is_shared,
			handler_class = EXCLUDED.handler_class,
			input = EXCLUDED.input,
			updated_at = NOW()
		RETURNING %s`, templateColumns)

	var out AppTemplate
	err := s.db.GetContext(ctx, &out, query,
		t.ID, t.Name, t.TemplateName, t.TemplateVersion, t.VerboseName,
		t.DescriptionShort, t.DescriptionLong, t.Logo, t.DocumentationURLs,
		t.ExternalURLs, t.Tags, t.IsInternal, t.IsShared, t.HandlerClass, t.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert template %q: %w", t.Name, err)
	}
	return &out, nil
}

// SelectTemplate returns a single template matching the filter, or
// ErrNotFound.
func (s *Store) SelectTemplate(ctx context.Context, f TemplateFilter) (*AppTemplate, error) {
	where, args := templateWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM app_templates %s`, templateColumns, where)

	var out AppTemplate
	err := s.db.GetContext(ctx, &out, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select template: %w", err)
	}
	return &out, nil
}

// ListTemplates returns all templates matching the filter.
func (s *Store) ListTemplates(ctx context.Context, f TemplateFilter) ([]AppTemplate, error) {
	where, args := templateWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM app_templates %s ORDER BY name`, templateColumns, where)

	out := []AppTemplate{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}

// DeleteTemplate removes a template row. Instances referencing it are the
// cascade coordinator's responsibility.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	return nil
}

func templateWhere(f TemplateFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ID != nil {
		add("id = $%d", *f.ID)
	}
	if f.Name != nil {
		add("name = $%d", *f.Name)
	}
	if f.IsInternal != nil {
		add("is_internal = $%d", *f.IsInternal)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

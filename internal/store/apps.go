package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const appColumns = `id, app_id, app_name, launchpad_app_name, is_internal,
	is_shared, user_id, url, external_urls, created_at, updated_at`

// UpsertApp inserts an installation record. A second install that resolves
// to the same remote app id updates the mutable fields of the existing row
// instead of inserting a duplicate; the last writer wins.
func (s *Store) UpsertApp(ctx context.Context, a *InstalledApp) (*InstalledApp, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO installed_apps (
			id, app_id, app_name, launchpad_app_name, is_internal,
			is_shared, user_id, url, external_urls
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT unique_installed_apps_app_id DO UPDATE SET
			app_id = EXCLUDED.app_id,
			app_name = EXCLUDED.app_name,
			url = EXCLUDED.url,
			external_urls = EXCLUDED.external_urls,
			updated_at = NOW()
		RETURNING %s`, appColumns)

	var out InstalledApp
	err := s.db.GetContext(ctx, &out, query,
		a.ID, a.AppID, a.AppName, a.LaunchpadAppName, a.IsInternal,
		a.IsShared, a.UserID, a.URL, a.ExternalURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert app %q: %w", a.LaunchpadAppName, err)
	}
	return &out, nil
}

// SelectApp returns a single installed app matching the filter, or
// ErrNotFound.
func (s *Store) SelectApp(ctx context.Context, f AppFilter) (*InstalledApp, error) {
	where, args := appWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM installed_apps %s LIMIT 1`, appColumns, where)

	var out InstalledApp
	err := s.db.GetContext(ctx, &out, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select app: %w", err)
	}
	return &out, nil
}

// SelectAppByHost finds the installed app whose primary url or any of its
// external urls matches the given url. Used by the access gatekeeper.
func (s *Store) SelectAppByHost(ctx context.Context, url string) (*InstalledApp, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM installed_apps
		WHERE url = $1 OR external_urls @> $2
		LIMIT 1`, appColumns)

	var out InstalledApp
	err := s.db.GetContext(ctx, &out, query, url, fmt.Sprintf(`[%q]`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select app by host: %w", err)
	}
	return &out, nil
}

// ListApps returns all installed apps matching the filter.
func (s *Store) ListApps(ctx context.Context, f AppFilter) ([]InstalledApp, error) {
	where, args := appWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM installed_apps %s ORDER BY launchpad_app_name`, appColumns, where)

	out := []InstalledApp{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return out, nil
}

// UpdateAppURLs persists the endpoints discovered for an app. Both fields
// are written in one transaction so readers never observe a primary url
// without its external url list.
func (s *Store) UpdateAppURLs(ctx context.Context, appID uuid.UUID, url *string, external StringList) (*InstalledApp, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE installed_apps
		SET url = $2, external_urls = $3, updated_at = NOW()
		WHERE app_id = $1
		RETURNING %s`, appColumns)

	var out InstalledApp
	err = tx.GetContext(ctx, &out, query, appID, url, external)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update app urls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit url update: %w", err)
	}
	return &out, nil
}

// DeleteApp removes the local record for a remote app id.
func (s *Store) DeleteApp(ctx context.Context, appID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM installed_apps WHERE app_id = $1`, appID); err != nil {
		return fmt.Errorf("failed to delete app %s: %w", appID, err)
	}
	return nil
}

// CountAppsForTemplate reports how many installations reference a template
// name. Guards flag changes on template re-import.
func (s *Store) CountAppsForTemplate(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM installed_apps WHERE launchpad_app_name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to count apps for template %q: %w", name, err)
	}
	return n, nil
}

func appWhere(f AppFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AppID != nil {
		add("app_id = $%d", *f.AppID)
	}
	if f.LaunchpadAppName != nil {
		add("launchpad_app_name = $%d", *f.LaunchpadAppName)
	}
	if f.IsInternal != nil {
		add("is_internal = $%d", *f.IsInternal)
	}
	if f.IsShared != nil {
		add("is_shared = $%d", *f.IsShared)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.URL != nil {
		add("url = $%d", *f.URL)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/gather.space/internal/storage"
)

// ListSections returns all content sections ordered by key.
func (s *Store) ListSections(ctx context.Context) ([]storage.ContentSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT key, title, body FROM content_sections ORDER BY key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []storage.ContentSection
	for rows.Next() {
		var section storage.ContentSection
		if err := rows.Scan(&section.Key, &section.Title, &section.Body); err != nil {
			return nil, fmt.Errorf("list sections: %w", err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// GetSection returns one content section by key.
func (s *Store) GetSection(ctx context.Context, key string) (storage.ContentSection, error) {
	if err := ctx.Err(); err != nil {
		return storage.ContentSection{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ContentSection{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.ContentSection{}, fmt.Errorf("section key is required")
	}

	var section storage.ContentSection
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT key, title, body FROM content_sections WHERE key = ?`,
		key,
	).Scan(&section.Key, &section.Title, &section.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ContentSection{}, storage.ErrNotFound
		}
		return storage.ContentSection{}, fmt.Errorf("get section: %w", err)
	}
	return section, nil
}

// UpsertSection creates or replaces one content section.
func (s *Store) UpsertSection(ctx context.Context, section storage.ContentSection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	key := strings.TrimSpace(section.Key)
	if key == "" {
		return fmt.Errorf("section key is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO content_sections (key, title, body)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET title = excluded.title, body = excluded.body`,
		key,
		strings.TrimSpace(section.Title),
		section.Body,
	)
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

// DeleteSection removes one content section by key.
func (s *Store) DeleteSection(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM content_sections WHERE key = ?`, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// ListMenuItems returns all menu items ordered by position.
func (s *Store) ListMenuItems(ctx context.Context) ([]storage.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT key, title, position FROM menu_items ORDER BY position ASC, key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []storage.MenuItem
	for rows.Next() {
		var item storage.MenuItem
		if err := rows.Scan(&item.Key, &item.Title, &item.Position); err != nil {
			return nil, fmt.Errorf("list menu items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// UpsertMenuItem creates or replaces one menu item.
func (s *Store) UpsertMenuItem(ctx context.Context, item storage.MenuItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	key := strings.TrimSpace(item.Key)
	if key == "" {
		return fmt.Errorf("menu item key is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO menu_items (key, title, position)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET title = excluded.title, position = excluded.position`,
		key,
		strings.TrimSpace(item.Title),
		item.Position,
	)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

// DeleteMenuItem removes one menu item by key.
func (s *Store) DeleteMenuItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM menu_items WHERE key = ?`, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return nil
}

// ListTemplates returns all message templates.
func (s *Store) ListTemplates(ctx context.Context) ([]storage.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, body FROM templates ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []storage.Template
	for rows.Next() {
		var tmpl storage.Template
		if err := rows.Scan(&tmpl.Key, &tmpl.Body); err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// GetTemplate returns one message template by key.
func (s *Store) GetTemplate(ctx context.Context, key string) (storage.Template, error) {
	if err := ctx.Err(); err != nil {
		return storage.Template{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Template{}, err
	}

	var tmpl storage.Template
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT key, body FROM templates WHERE key = ?`,
		strings.TrimSpace(key),
	).Scan(&tmpl.Key, &tmpl.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Template{}, storage.ErrNotFound
		}
		return storage.Template{}, fmt.Errorf("get template: %w", err)
	}
	return tmpl, nil
}

// UpsertTemplate creates or replaces one message template.
func (s *Store) UpsertTemplate(ctx context.Context, tmpl storage.Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	key := strings.TrimSpace(tmpl.Key)
	if key == "" {
		return fmt.Errorf("template key is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO templates (key, body)
		 VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET body = excluded.body`,
		key,
		tmpl.Body,
	)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

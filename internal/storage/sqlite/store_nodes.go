package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/gather.space/internal/storage"
)

// GetNode returns one tree node by ID.
func (s *Store) GetNode(ctx context.Context, nodeID int64) (storage.Node, error) {
	if err := ctx.Err(); err != nil {
		return storage.Node{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Node{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
		   FROM nodes
		  WHERE id = ?`,
		nodeID,
	)
	return scanNode(row)
}

// GetNodeByKey returns one tree node by its stable key.
func (s *Store) GetNodeByKey(ctx context.Context, key string) (storage.Node, error) {
	if err := ctx.Err(); err != nil {
		return storage.Node{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Node{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.Node{}, fmt.Errorf("node key is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
		   FROM nodes
		  WHERE key = ?`,
		key,
	)
	return scanNode(row)
}

// ListChildren returns the ordered children of a node; a nil parent selects
// the tree roots.
func (s *Store) ListChildren(ctx context.Context, parentID *int64) ([]storage.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
			   FROM nodes
			  WHERE parent_id IS NULL
			  ORDER BY order_index ASC, id ASC`,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
			   FROM nodes
			  WHERE parent_id = ?
			  ORDER BY order_index ASC, id ASC`,
			*parentID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list node children: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// ListNodes returns the whole tree unordered by hierarchy, ordered by ID.
func (s *Store) ListNodes(ctx context.Context) ([]storage.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
		   FROM nodes
		  ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// ListMainMenuNodes returns nodes flagged for the main menu, ordered.
func (s *Store) ListMainMenuNodes(ctx context.Context) ([]storage.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, parent_id, key, title, content, url, order_index, is_main_menu
		   FROM nodes
		  WHERE is_main_menu = 1
		  ORDER BY order_index ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list main menu nodes: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// UpsertNode creates a node when ID is zero, otherwise overwrites the row.
// It returns the node's ID.
func (s *Store) UpsertNode(ctx context.Context, node storage.Node) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	title := strings.TrimSpace(node.Title)
	if title == "" {
		return 0, fmt.Errorf("node title is required")
	}
	mainMenu := 0
	if node.IsMainMenu {
		mainMenu = 1
	}
	var parentID any
	if node.ParentID != nil {
		parentID = *node.ParentID
	}

	if node.ID == 0 {
		result, err := s.sqlDB.ExecContext(
			ctx,
			`INSERT INTO nodes (parent_id, key, title, content, url, order_index, is_main_menu)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			parentID,
			strings.TrimSpace(node.Key),
			title,
			node.Content,
			strings.TrimSpace(node.URL),
			node.OrderIndex,
			mainMenu,
		)
		if err != nil {
			if isUniqueViolation(err, "nodes.key") {
				return 0, storage.ErrAlreadyExists
			}
			return 0, fmt.Errorf("insert node: %w", err)
		}
		nodeID, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert node id: %w", err)
		}
		return nodeID, nil
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE nodes
		    SET parent_id = ?, key = ?, title = ?, content = ?, url = ?, order_index = ?, is_main_menu = ?
		  WHERE id = ?`,
		parentID,
		strings.TrimSpace(node.Key),
		title,
		node.Content,
		strings.TrimSpace(node.URL),
		node.OrderIndex,
		mainMenu,
		node.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update node: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update node rows affected: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	return node.ID, nil
}

// DeleteNode removes one node together with its whole subtree.
func (s *Store) DeleteNode(ctx context.Context, nodeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`WITH RECURSIVE subtree (id) AS (
		   SELECT id FROM nodes WHERE id = ?
		   UNION ALL
		   SELECT n.id FROM nodes n JOIN subtree s ON n.parent_id = s.id
		 )
		 DELETE FROM nodes WHERE id IN (SELECT id FROM subtree)`,
		nodeID,
	)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete node rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func collectNodes(rows *sql.Rows) ([]storage.Node, error) {
	var nodes []storage.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(row rowScanner) (storage.Node, error) {
	var node storage.Node
	var parentID sql.NullInt64
	var mainMenu int
	err := row.Scan(
		&node.ID,
		&parentID,
		&node.Key,
		&node.Title,
		&node.Content,
		&node.URL,
		&node.OrderIndex,
		&mainMenu,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Node{}, storage.ErrNotFound
		}
		return storage.Node{}, fmt.Errorf("scan node: %w", err)
	}
	if parentID.Valid {
		value := parentID.Int64
		node.ParentID = &value
	}
	node.IsMainMenu = mainMenu != 0
	return node, nil
}

package mysql

import (
	"context"
	"encoding/json"
	"fmt"

	"factory-dashboard/internal/storage"
)

func (s *Storage) AppendActionLog(ctx context.Context, entry storage.ActionLog) error {
	const op = "storage.mysql.AppendActionLog"

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("%s: ошибка сериализации details: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO action_logs (user_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		entry.UserID, entry.Action, string(details), entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%s: action=%s: %w", op, entry.Action, err)
	}
	return nil
}

func (s *Storage) ListActionLogs(ctx context.Context, limit int) ([]storage.ActionLog, error) {
	const op = "storage.mysql.ListActionLogs"

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, COALESCE(details, 'null'), created_at FROM action_logs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var logs []storage.ActionLog
	for rows.Next() {
		var entry storage.ActionLog
		var details string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &details, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строки: %w", op, err)
		}
		if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
			return nil, fmt.Errorf("%s: ошибка парсинга details id=%d: %w", op, entry.ID, err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

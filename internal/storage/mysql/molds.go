package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"factory-dashboard/internal/storage"
)

const moldColumns = `id, code, name, model, size, vendor, location, status, cavity, material, weight,
	maker_date, image_front, image_side, shot_count, shot_limit, maintenance_shots,
	last_maintenance, owner, COALESCE(note, ''), created_at, updated_at`

// errDuplicateEntry код MySQL для нарушения UNIQUE
const errDuplicateEntry = 1062

type scanner interface {
	Scan(dest ...any) error
}

func scanMold(row scanner) (*storage.Mold, error) {
	m := &storage.Mold{}
	err := row.Scan(
		&m.ID, &m.Code, &m.Name, &m.Model, &m.Size, &m.Vendor, &m.Location, &m.Status,
		&m.Cavity, &m.Material, &m.Weight, &m.MakerDate, &m.ImageFront, &m.ImageSide,
		&m.ShotCount, &m.ShotLimit, &m.MaintenanceShots, &m.LastMaintenance, &m.Owner,
		&m.Note, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Storage) ListMolds(ctx context.Context, filter storage.MoldFilter) ([]*storage.Mold, error) {
	const op = "storage.mysql.ListMolds"

	query := `SELECT ` + moldColumns + ` FROM molds`
	var where []string
	var args []any

	if filter.Code != "" {
		where = append(where, "code LIKE ?")
		args = append(args, "%"+filter.Code+"%")
	}
	if filter.Vendor != "" {
		where = append(where, "vendor = ?")
		args = append(args, filter.Vendor)
	}
	if filter.Location != "" {
		where = append(where, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Model != "" {
		where = append(where, "model = ?")
		args = append(args, filter.Model)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY code ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения пресс-форм: %w", op, err)
	}
	defer rows.Close()

	var molds []*storage.Mold
	for rows.Next() {
		m, err := scanMold(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строки: %w", op, err)
		}
		molds = append(molds, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка при итерации по строкам: %w", op, err)
	}

	return molds, nil
}

func (s *Storage) GetMold(ctx context.Context, id string) (*storage.Mold, error) {
	const op = "storage.mysql.GetMold"

	row := s.db.QueryRowContext(ctx, `SELECT `+moldColumns+` FROM molds WHERE id = ?`, id)
	m, err := scanMold(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: id=%s: %w", op, id, storage.ErrMoldNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (s *Storage) CreateMold(ctx context.Context, m storage.Mold) error {
	const op = "storage.mysql.CreateMold"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO molds (id, code, name, model, size, vendor, location, status, cavity, material, weight,
			maker_date, image_front, image_side, shot_count, shot_limit, maintenance_shots,
			last_maintenance, owner, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Code, m.Name, m.Model, m.Size, m.Vendor, m.Location, m.Status, m.Cavity, m.Material, m.Weight,
		m.MakerDate, m.ImageFront, m.ImageSide, m.ShotCount, m.ShotLimit, m.MaintenanceShots,
		m.LastMaintenance, m.Owner, m.Note,
	)
	if err != nil {
		return fmt.Errorf("%s: code=%s: %w", op, m.Code, mapMoldError(err))
	}
	return nil
}

func (s *Storage) UpdateMold(ctx context.Context, m storage.Mold) error {
	const op = "storage.mysql.UpdateMold"

	res, err := s.db.ExecContext(ctx, `
		UPDATE molds SET code = ?, name = ?, model = ?, size = ?, vendor = ?, location = ?, status = ?,
			cavity = ?, material = ?, weight = ?, maker_date = ?, image_front = ?, image_side = ?,
			shot_count = ?, shot_limit = ?, maintenance_shots = ?, last_maintenance = ?, owner = ?, note = ?
		WHERE id = ?`,
		m.Code, m.Name, m.Model, m.Size, m.Vendor, m.Location, m.Status,
		m.Cavity, m.Material, m.Weight, m.MakerDate, m.ImageFront, m.ImageSide,
		m.ShotCount, m.ShotLimit, m.MaintenanceShots, m.LastMaintenance, m.Owner, m.Note,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: id=%s: %w", op, m.ID, mapMoldError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		// MySQL не считает строку затронутой, если значения не изменились
		if _, err := s.GetMold(ctx, m.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// SetMoldImage обновляет одно поле изображения: side = "front" или "side".
func (s *Storage) SetMoldImage(ctx context.Context, id, side, url string) error {
	const op = "storage.mysql.SetMoldImage"

	column := "image_front"
	if side == "side" {
		column = "image_side"
	}

	res, err := s.db.ExecContext(ctx, `UPDATE molds SET `+column+` = ? WHERE id = ?`, url, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetMold(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (s *Storage) DeleteMold(ctx context.Context, id string) error {
	const op = "storage.mysql.DeleteMold"

	res, err := s.db.ExecContext(ctx, `DELETE FROM molds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: id=%s: %w", op, id, storage.ErrMoldNotFound)
	}
	return nil
}

// SaveMolds вставляет или обновляет пачку пресс-форм по коду в одной транзакции.
func (s *Storage) SaveMolds(ctx context.Context, molds []storage.Mold) error {
	const op = "storage.mysql.SaveMolds"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO molds (id, code, name, model, size, vendor, location, status, cavity, material, weight,
			maker_date, image_front, image_side, shot_count, shot_limit, maintenance_shots,
			last_maintenance, owner, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), model = VALUES(model), size = VALUES(size), vendor = VALUES(vendor),
			location = VALUES(location), status = VALUES(status), cavity = VALUES(cavity),
			material = VALUES(material), weight = VALUES(weight), maker_date = VALUES(maker_date),
			shot_count = VALUES(shot_count), shot_limit = VALUES(shot_limit),
			maintenance_shots = VALUES(maintenance_shots), last_maintenance = VALUES(last_maintenance),
			owner = VALUES(owner), note = VALUES(note)`)
	if err != nil {
		return fmt.Errorf("%s: ошибка подготовки запроса: %w", op, err)
	}
	defer stmt.Close()

	for _, m := range molds {
		_, err := stmt.ExecContext(ctx,
			m.ID, m.Code, m.Name, m.Model, m.Size, m.Vendor, m.Location, m.Status, m.Cavity, m.Material, m.Weight,
			m.MakerDate, m.ImageFront, m.ImageSide, m.ShotCount, m.ShotLimit, m.MaintenanceShots,
			m.LastMaintenance, m.Owner, m.Note,
		)
		if err != nil {
			return fmt.Errorf("%s: ошибка сохранения пресс-формы code=%s: %w", op, m.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}
	return nil
}

func mapMoldError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry {
		return storage.ErrMoldCodeExists
	}
	return err
}

package sqlite

import (
	"context"
	"database/sql"

	tipster "github.com/winmix/tipsterhub/internal"
)

const modelColumns = `id, model_name, model_version, model_type, algorithm, traffic_allocation, accuracy, registered_at`

var modelList = listSpec{
	filters:      map[string]string{"model_type": "model_type", "model_name": "model_name"},
	orders:       map[string]string{"registered_at": "registered_at", "accuracy": "accuracy", "model_name": "model_name"},
	defaultOrder: "registered_at",
}

// CreateModel registers a new model version. A new champion demotes the
// current one to challenger in the same transaction.
func (s *Store) CreateModel(ctx context.Context, m *tipster.Model) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if m.Type == tipster.ModelChampion {
			if _, err := tx.ExecContext(ctx,
				`UPDATE model_registry SET model_type=? WHERE model_type=?`,
				string(tipster.ModelChallenger), string(tipster.ModelChampion),
			); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO model_registry (`+modelColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Version, string(m.Type), nullStr(m.Algorithm),
			m.TrafficAllocation, m.Accuracy, timeToStr(m.CreatedAt),
		)
		return writeErr("model", err)
	})
}

// GetModel retrieves a model by ID.
func (s *Store) GetModel(ctx context.Context, id string) (*tipster.Model, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM model_registry WHERE id=?`, id,
	)
	return scanModel(row)
}

// ListModels returns registry rows matching opts, oldest first unless ordered otherwise.
func (s *Store) ListModels(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Model, error) {
	query, args, err := buildList(`SELECT `+modelColumns+` FROM model_registry`, modelList, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*tipster.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// UpdateModel updates a registry row's mutable fields.
func (s *Store) UpdateModel(ctx context.Context, m *tipster.Model) error {
	result, err := s.write.ExecContext(ctx,
		`UPDATE model_registry SET model_type=?, algorithm=?, traffic_allocation=?, accuracy=? WHERE id=?`,
		string(m.Type), nullStr(m.Algorithm), m.TrafficAllocation, m.Accuracy, m.ID,
	)
	if err != nil {
		return writeErr("model", err)
	}
	return checkRowsAffected(result, "model")
}

// DeleteModel removes a model and, by cascade, its predictions.
func (s *Store) DeleteModel(ctx context.Context, id string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM model_registry WHERE id=?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "model")
}

// PromoteModel makes id the only champion; the previous champion becomes a challenger.
func (s *Store) PromoteModel(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT model_type FROM model_registry WHERE id=?`, id).Scan(&current)
		if err != nil {
			return notFoundErr(err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE model_registry SET model_type=? WHERE model_type=? AND id<>?`,
			string(tipster.ModelChallenger), string(tipster.ModelChampion), id,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE model_registry SET model_type=? WHERE id=?`,
			string(tipster.ModelChampion), id,
		)
		return err
	})
}

func scanModel(s scanner) (*tipster.Model, error) {
	var m tipster.Model
	var modelType, registeredAt string
	var algorithm sql.NullString
	var accuracy sql.NullFloat64
	err := s.Scan(&m.ID, &m.Name, &m.Version, &modelType, &algorithm,
		&m.TrafficAllocation, &accuracy, &registeredAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	m.Type = tipster.ModelType(modelType)
	m.Algorithm = algorithm.String
	m.Accuracy = floatPtr(accuracy)
	m.CreatedAt = parseTime(registeredAt)
	return &m, nil
}

package sqlite

import (
	"context"
	"database/sql"

	tipster "github.com/winmix/tipsterhub/internal"
)

const predictionColumns = `id, match_id, model_id, predicted_outcome, confidence, was_correct, created_at`

var predictionList = listSpec{
	filters:      map[string]string{"match_id": "match_id", "model_id": "model_id"},
	orders:       map[string]string{"created_at": "created_at", "confidence": "confidence"},
	defaultOrder: "created_at",
}

// CreatePrediction inserts a new prediction. A model may predict a match once.
func (s *Store) CreatePrediction(ctx context.Context, p *tipster.Prediction) error {
	var correct sql.NullInt64
	if p.Correct != nil {
		correct = sql.NullInt64{Int64: int64(boolToInt(*p.Correct)), Valid: true}
	}
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO predictions (`+predictionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MatchID, p.ModelID, string(p.Outcome), p.Confidence, correct, timeToStr(p.CreatedAt),
	)
	return writeErr("prediction", err)
}

// ListPredictions returns predictions matching opts.
func (s *Store) ListPredictions(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Prediction, error) {
	query, args, err := buildList(`SELECT `+predictionColumns+` FROM predictions`, predictionList, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []*tipster.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func scanPrediction(s scanner) (*tipster.Prediction, error) {
	var p tipster.Prediction
	var outcome, createdAt string
	var correct sql.NullInt64
	err := s.Scan(&p.ID, &p.MatchID, &p.ModelID, &outcome, &p.Confidence, &correct, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	p.Outcome = tipster.Outcome(outcome)
	p.Correct = boolPtr(correct)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	tipster "github.com/winmix/tipsterhub/internal"
)

const matchColumns = `id, league, home_team_id, away_team_id, kickoff_at, status, home_score, away_score, created_at`

var matchList = listSpec{
	filters: map[string]string{
		"league":       "league",
		"status":       "status",
		"home_team_id": "home_team_id",
		"away_team_id": "away_team_id",
		"team_id":      "(home_team_id = ? OR away_team_id = ?)",
	},
	orders:       map[string]string{"kickoff_at": "kickoff_at", "created_at": "created_at"},
	defaultOrder: "kickoff_at",
}

// CreateMatch inserts a new match.
func (s *Store) CreateMatch(ctx context.Context, m *tipster.Match) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.League, m.HomeTeamID, m.AwayTeamID, timeToStr(m.KickoffAt), string(m.Status),
		m.HomeScore, m.AwayScore, timeToStr(m.CreatedAt),
	)
	return writeErr("match", err)
}

// GetMatch retrieves a match by ID.
func (s *Store) GetMatch(ctx context.Context, id string) (*tipster.Match, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id=?`, id,
	)
	return scanMatch(row)
}

// ListMatches returns matches matching opts, by kickoff time unless ordered otherwise.
func (s *Store) ListMatches(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Match, error) {
	query, args, err := buildList(`SELECT `+matchColumns+` FROM matches`, matchList, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*tipster.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SetMatchResult records the final score and grades the match's predictions
// in one transaction.
func (s *Store) SetMatchResult(ctx context.Context, id string, home, away int) (*tipster.Match, error) {
	if home < 0 || away < 0 {
		return nil, fmt.Errorf("negative score: %w", tipster.ErrBadRequest)
	}
	var updated *tipster.Match
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE matches SET home_score=?, away_score=?, status=? WHERE id=?`,
			home, away, string(tipster.MatchFinished), id,
		)
		if err != nil {
			return err
		}
		if err := checkRowsAffected(result, "match"); err != nil {
			return err
		}

		m, err := scanMatch(tx.QueryRowContext(ctx,
			`SELECT `+matchColumns+` FROM matches WHERE id=?`, id,
		))
		if err != nil {
			return err
		}
		outcome, _ := m.Outcome()
		if _, err := tx.ExecContext(ctx,
			`UPDATE predictions SET was_correct = (predicted_outcome = ?) WHERE match_id=?`,
			string(outcome), id,
		); err != nil {
			return fmt.Errorf("grade predictions: %w", err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanMatch(s scanner) (*tipster.Match, error) {
	var m tipster.Match
	var kickoff, createdAt, status string
	var home, away sql.NullInt64
	err := s.Scan(&m.ID, &m.League, &m.HomeTeamID, &m.AwayTeamID, &kickoff, &status,
		&home, &away, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	m.Status = tipster.MatchStatus(status)
	m.KickoffAt = parseTime(kickoff)
	m.CreatedAt = parseTime(createdAt)
	m.HomeScore = intPtr(home)
	m.AwayScore = intPtr(away)
	return &m, nil
}

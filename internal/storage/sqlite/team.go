package sqlite

import (
	"context"
	"database/sql"

	tipster "github.com/winmix/tipsterhub/internal"
)

const teamColumns = `id, name, short_name, league, created_at`

var teamList = listSpec{
	filters:      map[string]string{"league": "league"},
	orders:       map[string]string{"name": "name", "created_at": "created_at"},
	defaultOrder: "name",
}

// CreateTeam inserts a new team.
func (s *Store) CreateTeam(ctx context.Context, t *tipster.Team) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO teams (`+teamColumns+`) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, nullStr(t.ShortName), t.League, timeToStr(t.CreatedAt),
	)
	return writeErr("team", err)
}

// GetTeam retrieves a team by ID.
func (s *Store) GetTeam(ctx context.Context, id string) (*tipster.Team, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id=?`, id,
	)
	return scanTeam(row)
}

// ListTeams returns teams matching opts.
func (s *Store) ListTeams(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Team, error) {
	query, args, err := buildList(`SELECT `+teamColumns+` FROM teams`, teamList, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*tipster.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func scanTeam(s scanner) (*tipster.Team, error) {
	var t tipster.Team
	var shortName sql.NullString
	var createdAt string
	if err := s.Scan(&t.ID, &t.Name, &shortName, &t.League, &createdAt); err != nil {
		return nil, notFoundErr(err)
	}
	t.ShortName = shortName.String
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

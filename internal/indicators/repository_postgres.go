package indicators

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medj/internal/labs"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --------------------------------------------------
// LOAD DICTIONARY (ORDERED BY ID)
// --------------------------------------------------
func (r *PostgresRepository) LoadDefinitions(ctx context.Context) ([]labs.IndicatorDefinition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(name_en, ''), COALESCE(unit, ''), reference_low, reference_high
		FROM lab_indicators
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []labs.IndicatorDefinition
	pos := make(map[int64]int)
	for rows.Next() {
		var (
			id     int64
			d      labs.IndicatorDefinition
			nameEN string
		)
		if err := rows.Scan(&id, &d.Name, &nameEN, &d.Unit, &d.RefLow, &d.RefHigh); err != nil {
			return nil, err
		}
		if nameEN != "" {
			d.Names = []string{nameEN}
		}
		pos[id] = len(defs)
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasRows, err := r.db.Query(ctx, `
		SELECT indicator_id, alias
		FROM lab_indicator_aliases
		ORDER BY indicator_id, id
	`)
	if err != nil {
		return nil, err
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		var (
			id    int64
			alias string
		)
		if err := aliasRows.Scan(&id, &alias); err != nil {
			return nil, err
		}
		if i, ok := pos[id]; ok {
			defs[i].Aliases = append(defs[i].Aliases, alias)
		}
	}
	return defs, aliasRows.Err()
}

// --------------------------------------------------
// UPSERT (ATOMIC PER INDICATOR)
// --------------------------------------------------
func (r *PostgresRepository) Upsert(ctx context.Context, def labs.IndicatorDefinition, update bool) (UpsertResult, error) {
	var res UpsertResult

	nameEN := ""
	if len(def.Names) > 0 {
		nameEN = def.Names[0]
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id
		FROM lab_indicators
		WHERE lower(name) = lower($1)
		   OR ($2 <> '' AND lower(name_en) = lower($2))
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`, def.Name, nameEN).Scan(&id)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `
			INSERT INTO lab_indicators (name, name_en, unit, reference_low, reference_high)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5)
			RETURNING id
		`, def.Name, nameEN, def.Unit, def.RefLow, def.RefHigh).Scan(&id)
		if err != nil {
			return res, err
		}
		res.Created = true
	case err != nil:
		return res, err
	case update:
		_, err = tx.Exec(ctx, `
			UPDATE lab_indicators
			SET name = $2,
			    name_en = COALESCE(NULLIF($3, ''), name_en),
			    unit = COALESCE(NULLIF($4, ''), unit),
			    reference_low = COALESCE($5, reference_low),
			    reference_high = COALESCE($6, reference_high),
			    updated_at = now()
			WHERE id = $1
		`, id, def.Name, nameEN, def.Unit, def.RefLow, def.RefHigh)
		if err != nil {
			return res, err
		}
		res.Updated = true
	}

	for _, a := range def.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		cmd, err := tx.Exec(ctx, `
			INSERT INTO lab_indicator_aliases (indicator_id, alias)
			VALUES ($1, $2)
			ON CONFLICT (indicator_id, alias) DO NOTHING
		`, id, a)
		if err != nil {
			return res, err
		}
		res.AliasesAdded += int(cmd.RowsAffected())
	}

	return res, tx.Commit(ctx)
}

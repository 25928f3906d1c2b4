package catalog

import (
	"context"
	"time"

	"github.com/2beens/planfit/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// ListExercises returns the exercises matching the equipment filter,
// ordered by creation time ascending. The stable ordering matters: the
// generator's seeded sampling is only reproducible on a stable list.
func (r *Repo) ListExercises(ctx context.Context, filter Filter) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("filter", filter.Key()))

	if filter.Empty() {
		return []Exercise{}, nil
	}

	var rows pgx.Rows
	if filter.All {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, muscle_group, equipment, created_at
			FROM exercise
			ORDER BY created_at ASC;`,
		)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, muscle_group, equipment, created_at
			FROM exercise
			WHERE equipment = ANY($1)
			ORDER BY created_at ASC;`,
			filter.Allowed,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2exercises(rows)
}

func rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for rows.Next() {
		var id int64
		var name, muscleGroup, equipment string
		var createdAt time.Time
		if err := rows.Scan(&id, &name, &muscleGroup, &equipment, &createdAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, Exercise{
			ID:          id,
			Name:        name,
			MuscleGroup: muscleGroup,
			Equipment:   equipment,
			CreatedAt:   createdAt,
		})
	}
	return exercises, nil
}

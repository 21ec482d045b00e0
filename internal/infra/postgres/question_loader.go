package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// QuestionLoader lists question pools from the questions table. Rows with
// malformed JSON are skipped; normalization happens at sampling time.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) ListPool(ctx context.Context, courseID string, kind domain.TemplateKind) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, data FROM questions WHERE course_id=$1 AND template=$2`,
		courseID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list pool %s/%s: %w", courseID, kind, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			continue
		}
		q.ID = id
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pool %s/%s: %w", courseID, kind, err)
	}
	return questions, nil
}

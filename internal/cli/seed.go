package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/config"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// seedEntry is one question bank record in a seed file.
type seedEntry struct {
	ID          string   `json:"id"`
	Course      string   `json:"course"`
	Template    string   `json:"template"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// NewSeedCmd loads a JSON question file into the bank.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a JSON file into the bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "questions.json", "path to the questions JSON file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	inserted, skipped := 0, 0
	for _, entry := range entries {
		q, ok := domain.NormalizeQuestion(domain.Question{
			ID:          entry.ID,
			Prompt:      entry.Prompt,
			Options:     entry.Options,
			Correct:     entry.Correct,
			Explanation: entry.Explanation,
		})
		// Stored questions belong to a concrete sub-pool; mix is a draw
		// mode, not a pool.
		kind := domain.TemplateKind(entry.Template)
		if !ok || entry.Course == "" || (kind != domain.TemplateKonkoori && kind != domain.TemplateTaalifi) {
			skipped++
			continue
		}
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, course_id, template, data) VALUES (?, ?, ?, ?::jsonb)
			 ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, template=EXCLUDED.template, data=EXCLUDED.data`,
			q.ID, entry.Course, entry.Template, string(data)); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		inserted++
	}
	slog.Info("question bank seeded", "inserted", inserted, "skipped", skipped)
	return nil
}

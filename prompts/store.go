package prompts

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basharArif/prompt-architect-demo/embeddings"
	"github.com/basharArif/prompt-architect-demo/errors"
)

// Store handles template persistence in the prompts table.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a template store.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// Save inserts or replaces a template. A missing ID is assigned, a missing
// tier defaults to fast, and UpdatedAt is refreshed.
func (s *Store) Save(template *Template) error {
	if template == nil {
		return errors.New("template is nil")
	}
	if err := template.Validate(); err != nil {
		return errors.Wrap(err, "invalid template")
	}

	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if template.Tier == "" {
		template.Tier = TierFast
	}
	template.UpdatedAt = time.Now().UTC()

	tagsJSON, err := json.Marshal(template.Tags)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tags")
	}
	variablesJSON, err := json.Marshal(template.Variables)
	if err != nil {
		return errors.Wrap(err, "failed to marshal variables")
	}

	var embeddingBlob []byte
	if len(template.Embedding) > 0 {
		embeddingBlob = embeddings.Serialize(template.Embedding)
	}

	_, err = s.db.Exec(`
		INSERT INTO prompts (
			id, name, description, tags, template, variables,
			step_back, chain_of_density, tier, usage_count, embedding, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			tags = excluded.tags,
			template = excluded.template,
			variables = excluded.variables,
			step_back = excluded.step_back,
			chain_of_density = excluded.chain_of_density,
			tier = excluded.tier,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`,
		template.ID,
		template.Name,
		template.Description,
		string(tagsJSON),
		template.Text,
		string(variablesJSON),
		template.StepBack,
		template.ChainOfDensity,
		template.Tier,
		template.UsageCount,
		embeddingBlob,
		template.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save template")
	}

	return nil
}

// GetByID returns a template by ID, or (nil, nil) when absent.
func (s *Store) GetByID(id string) (*Template, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, tags, template, variables,
		       step_back, chain_of_density, tier, usage_count, embedding, updated_at
		FROM prompts WHERE id = ?
	`, id)

	template, err := s.scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query template")
	}
	return template, nil
}

// GetAll returns every stored template. Malformed rows are skipped with a
// warning rather than failing the whole listing.
func (s *Store) GetAll() ([]*Template, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, tags, template, variables,
		       step_back, chain_of_density, tier, usage_count, embedding, updated_at
		FROM prompts ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		template, err := s.scanTemplate(rows)
		if err != nil {
			s.logger.Warnw("Skipping malformed template row", "error", err)
			continue
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

// Delete removes a template by ID.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM prompts WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete template")
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Newf("template not found: %s", id)
	}

	return nil
}

// IncrementUsage bumps a template's usage counter by one. The counter only
// ever grows; recency (updated_at) is deliberately left untouched.
func (s *Store) IncrementUsage(id string) error {
	result, err := s.db.Exec(
		"UPDATE prompts SET usage_count = usage_count + 1 WHERE id = ?", id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to increment usage")
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Newf("template not found: %s", id)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTemplate.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanTemplate(row scanner) (*Template, error) {
	var (
		template      Template
		tagsJSON      string
		variablesJSON string
		embeddingBlob []byte
		updatedAt     string
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&tagsJSON,
		&template.Text,
		&variablesJSON,
		&template.StepBack,
		&template.ChainOfDensity,
		&template.Tier,
		&template.UsageCount,
		&embeddingBlob,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &template.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to parse tags")
	}
	if err := json.Unmarshal([]byte(variablesJSON), &template.Variables); err != nil {
		return nil, errors.Wrap(err, "failed to parse variables")
	}

	if len(embeddingBlob) > 0 {
		embedding, err := embeddings.Deserialize(embeddingBlob)
		if err != nil {
			// A corrupt embedding degrades search, it doesn't break loading
			s.logger.Warnw("Discarding corrupt embedding", "template_id", template.ID, "error", err)
		} else {
			template.Embedding = embedding
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse updated_at")
	}
	template.UpdatedAt = ts

	return &template, nil
}

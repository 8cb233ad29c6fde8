package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
	"hookwarden/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

type pgTxKey struct{}

// Postgres backs the registry stores with pgx. Transactions travel in the
// context: RunInTx opens one and every store call inside the callback picks
// it up, so a workflow operation's reads and writes share a snapshot and
// commit together. Uniqueness (one submission per program, one ballot per
// voter) is enforced by database constraints, not application checks.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// RunInTx executes fn inside one database transaction. Nested calls join the
// outer transaction rather than opening a second one.
func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Postgres) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func translatePgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return sentinel.ErrConflict
	}
	return err
}

// EnsureSchema creates the registry tables when they do not exist. Suitable
// for dev and tests; production deployments run migrations out of band.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS registry_config (
	singleton               BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	authority               UUID        NOT NULL,
	governance_threshold    BIGINT      NOT NULL CHECK (governance_threshold > 0),
	review_period_ns        BIGINT      NOT NULL CHECK (review_period_ns > 0),
	total_submissions       BIGINT      NOT NULL DEFAULT 0,
	total_approved          BIGINT      NOT NULL DEFAULT 0,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS hook_submissions (
	id                      UUID PRIMARY KEY,
	program_id              TEXT        NOT NULL UNIQUE,
	submitter               UUID        NOT NULL,
	status                  TEXT        NOT NULL,
	submitted_at            TIMESTAMPTZ NOT NULL,
	review_ends_at          TIMESTAMPTZ NOT NULL,
	last_updated_at         TIMESTAMPTZ NOT NULL,
	metadata_uri            TEXT        NOT NULL,
	proposal_ref            TEXT        NOT NULL DEFAULT '',
	votes_for               BIGINT      NOT NULL DEFAULT 0,
	votes_against           BIGINT      NOT NULL DEFAULT 0,
	risk_score              SMALLINT    NOT NULL DEFAULT 0,
	automated_checks_passed BOOLEAN     NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_hook_submissions_status ON hook_submissions (status, submitted_at);

CREATE TABLE IF NOT EXISTS risk_assessments (
	submission_id           UUID PRIMARY KEY REFERENCES hook_submissions (id),
	flags                   JSONB       NOT NULL,
	overall_score           SMALLINT    NOT NULL,
	assessed_at             TIMESTAMPTZ NOT NULL,
	assessor                UUID        NOT NULL,
	notes                   TEXT        NOT NULL,
	requires_manual_review  BOOLEAN     NOT NULL
);

CREATE TABLE IF NOT EXISTS governance_votes (
	submission_id           UUID        NOT NULL REFERENCES hook_submissions (id),
	voter                   UUID        NOT NULL,
	approve                 BOOLEAN     NOT NULL,
	weight                  BIGINT      NOT NULL,
	voted_at                TIMESTAMPTZ NOT NULL,
	rationale               TEXT        NOT NULL DEFAULT '',
	PRIMARY KEY (submission_id, voter)
);
`)
	if err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// --- views ---

func (s *Postgres) Configs() ConfigStore         { return pgConfigs{s} }
func (s *Postgres) Submissions() SubmissionStore { return pgSubmissions{s} }
func (s *Postgres) Assessments() AssessmentStore { return pgAssessments{s} }
func (s *Postgres) Votes() VoteStore             { return pgVotes{s} }

// --- ConfigStore ---

type pgConfigs struct{ s *Postgres }

func (v pgConfigs) Create(ctx context.Context, c *models.RegistryConfig) error {
	_, err := v.s.db(ctx).Exec(ctx, `
INSERT INTO registry_config (authority, governance_threshold, review_period_ns, total_submissions, total_approved, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(c.Authority), c.GovernanceThreshold, int64(c.ReviewPeriod),
		c.TotalSubmissions, c.TotalApproved, c.CreatedAt, c.UpdatedAt)
	return translatePgErr(err)
}

func (v pgConfigs) Get(ctx context.Context) (*models.RegistryConfig, error) {
	row := v.s.db(ctx).QueryRow(ctx, `
SELECT authority, governance_threshold, review_period_ns, total_submissions, total_approved, created_at, updated_at
FROM registry_config`)
	var (
		c         models.RegistryConfig
		authority uuid.UUID
		periodNs  int64
	)
	err := row.Scan(&authority, &c.GovernanceThreshold, &periodNs,
		&c.TotalSubmissions, &c.TotalApproved, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translatePgErr(err)
	}
	c.Authority = id.AccountID(authority)
	c.ReviewPeriod = time.Duration(periodNs)
	return &c, nil
}

func (v pgConfigs) Update(ctx context.Context, c *models.RegistryConfig) error {
	tag, err := v.s.db(ctx).Exec(ctx, `
UPDATE registry_config
SET authority = $1, governance_threshold = $2, review_period_ns = $3,
    total_submissions = $4, total_approved = $5, updated_at = $6`,
		uuid.UUID(c.Authority), c.GovernanceThreshold, int64(c.ReviewPeriod),
		c.TotalSubmissions, c.TotalApproved, c.UpdatedAt)
	if err != nil {
		return translatePgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// --- SubmissionStore ---

type pgSubmissions struct{ s *Postgres }

const submissionColumns = `id, program_id, submitter, status, submitted_at, review_ends_at,
last_updated_at, metadata_uri, proposal_ref, votes_for, votes_against, risk_score, automated_checks_passed`

func (v pgSubmissions) Create(ctx context.Context, sub *models.Submission) error {
	_, err := v.s.db(ctx).Exec(ctx, `
INSERT INTO hook_submissions (`+submissionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(sub.ID), string(sub.ProgramID), uuid.UUID(sub.Submitter), string(sub.Status),
		sub.SubmittedAt, sub.ReviewEndsAt, sub.LastUpdatedAt, sub.MetadataURI, string(sub.ProposalRef),
		sub.VotesFor, sub.VotesAgainst, int16(sub.RiskScore), sub.AutomatedChecksPassed)
	return translatePgErr(err)
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var (
		sub         models.Submission
		subID       uuid.UUID
		programID   string
		submitter   uuid.UUID
		status      string
		proposalRef string
		riskScore   int16
	)
	err := row.Scan(&subID, &programID, &submitter, &status, &sub.SubmittedAt, &sub.ReviewEndsAt,
		&sub.LastUpdatedAt, &sub.MetadataURI, &proposalRef, &sub.VotesFor, &sub.VotesAgainst,
		&riskScore, &sub.AutomatedChecksPassed)
	if err != nil {
		return nil, translatePgErr(err)
	}
	sub.ID = id.SubmissionID(subID)
	sub.ProgramID = id.ProgramID(programID)
	sub.Submitter = id.AccountID(submitter)
	sub.Status = models.ApprovalStatus(status)
	sub.ProposalRef = id.ProposalRef(proposalRef)
	sub.RiskScore = uint8(riskScore)
	return &sub, nil
}

func (v pgSubmissions) FindByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	return scanSubmission(v.s.db(ctx).QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM hook_submissions WHERE id = $1`,
		uuid.UUID(submissionID)))
}

func (v pgSubmissions) FindByIDForUpdate(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	return scanSubmission(v.s.db(ctx).QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM hook_submissions WHERE id = $1 FOR UPDATE`,
		uuid.UUID(submissionID)))
}

func (v pgSubmissions) FindByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error) {
	return scanSubmission(v.s.db(ctx).QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM hook_submissions WHERE program_id = $1`,
		string(programID)))
}

func (v pgSubmissions) Update(ctx context.Context, sub *models.Submission) error {
	tag, err := v.s.db(ctx).Exec(ctx, `
UPDATE hook_submissions
SET status = $2, last_updated_at = $3, votes_for = $4, votes_against = $5,
    risk_score = $6, automated_checks_passed = $7
WHERE id = $1`,
		uuid.UUID(sub.ID), string(sub.Status), sub.LastUpdatedAt,
		sub.VotesFor, sub.VotesAgainst, int16(sub.RiskScore), sub.AutomatedChecksPassed)
	if err != nil {
		return translatePgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (v pgSubmissions) List(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM hook_submissions`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY submitted_at`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := v.s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgErr(err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// --- AssessmentStore ---

type pgAssessments struct{ s *Postgres }

func (v pgAssessments) Create(ctx context.Context, a *models.RiskAssessment) error {
	flags, err := json.Marshal(a.Flags)
	if err != nil {
		return fmt.Errorf("marshal risk flags: %w", err)
	}
	_, err = v.s.db(ctx).Exec(ctx, `
INSERT INTO risk_assessments (submission_id, flags, overall_score, assessed_at, assessor, notes, requires_manual_review)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(a.SubmissionID), flags, int16(a.OverallScore), a.AssessedAt,
		uuid.UUID(a.Assessor), a.Notes, a.RequiresManualReview)
	return translatePgErr(err)
}

func (v pgAssessments) FindBySubmission(ctx context.Context, submissionID id.SubmissionID) (*models.RiskAssessment, error) {
	row := v.s.db(ctx).QueryRow(ctx, `
SELECT submission_id, flags, overall_score, assessed_at, assessor, notes, requires_manual_review
FROM risk_assessments WHERE submission_id = $1`,
		uuid.UUID(submissionID))
	var (
		a        models.RiskAssessment
		subID    uuid.UUID
		flags    []byte
		score    int16
		assessor uuid.UUID
	)
	err := row.Scan(&subID, &flags, &score, &a.AssessedAt, &assessor, &a.Notes, &a.RequiresManualReview)
	if err != nil {
		return nil, translatePgErr(err)
	}
	if err := json.Unmarshal(flags, &a.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal risk flags: %w", err)
	}
	a.SubmissionID = id.SubmissionID(subID)
	a.OverallScore = uint8(score)
	a.Assessor = id.AccountID(assessor)
	return &a, nil
}

// --- VoteStore ---

type pgVotes struct{ s *Postgres }

func (v pgVotes) Create(ctx context.Context, vote *models.GovernanceVote) error {
	_, err := v.s.db(ctx).Exec(ctx, `
INSERT INTO governance_votes (submission_id, voter, approve, weight, voted_at, rationale)
VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(vote.SubmissionID), uuid.UUID(vote.Voter), vote.Approve,
		vote.Weight, vote.VotedAt, vote.Rationale)
	return translatePgErr(err)
}

func (v pgVotes) FindByVoter(ctx context.Context, submissionID id.SubmissionID, voter id.AccountID) (*models.GovernanceVote, error) {
	return scanVote(v.s.db(ctx).QueryRow(ctx, `
SELECT submission_id, voter, approve, weight, voted_at, rationale
FROM governance_votes WHERE submission_id = $1 AND voter = $2`,
		uuid.UUID(submissionID), uuid.UUID(voter)))
}

func (v pgVotes) ListBySubmission(ctx context.Context, submissionID id.SubmissionID) ([]*models.GovernanceVote, error) {
	rows, err := v.s.db(ctx).Query(ctx, `
SELECT submission_id, voter, approve, weight, voted_at, rationale
FROM governance_votes WHERE submission_id = $1 ORDER BY voted_at`,
		uuid.UUID(submissionID))
	if err != nil {
		return nil, translatePgErr(err)
	}
	defer rows.Close()

	var out []*models.GovernanceVote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, vote)
	}
	return out, rows.Err()
}

func scanVote(row pgx.Row) (*models.GovernanceVote, error) {
	var (
		vote  models.GovernanceVote
		subID uuid.UUID
		voter uuid.UUID
	)
	err := row.Scan(&subID, &voter, &vote.Approve, &vote.Weight, &vote.VotedAt, &vote.Rationale)
	if err != nil {
		return nil, translatePgErr(err)
	}
	vote.SubmissionID = id.SubmissionID(subID)
	vote.Voter = id.AccountID(voter)
	return &vote, nil
}

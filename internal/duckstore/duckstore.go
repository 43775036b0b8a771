// Package duckstore ingests validated artifact directories into a DuckDB
// database for querying across runs. Records are deduplicated by a
// canonical-JSON fingerprint, so re-ingesting a directory is a no-op.
package duckstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"casegen/internal/contract"
)

// schemaDDL holds the DuckDB schema definition.
//
//go:embed schema.sql
var schemaDDL string

// Open opens or creates a DuckDB database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckstore: open %s: %w", path, err)
	}
	return db, nil
}

// EnsureSchema applies the schema DDL to the database.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("duckstore: db is nil")
	}
	_, err := db.Exec(schemaDDL)
	return err
}

// Counts reports how many new rows an ingestion inserted per table.
type Counts struct {
	Runs      int
	UseCases  int
	Policies  int
	TestCases int
	Examples  int
}

// IngestRun loads the artifacts of one completed output directory and
// inserts them. The directory must hold a manifest; records already in
// the database are skipped by fingerprint.
func IngestRun(ctx context.Context, db *sql.DB, dir string) (Counts, error) {
	var counts Counts
	if db == nil {
		return counts, errors.New("duckstore: db is nil")
	}

	manifest, err := contract.LoadManifest(dir)
	if err != nil {
		return counts, err
	}
	useCases, err := contract.LoadUseCases(dir)
	if err != nil {
		return counts, err
	}
	policies, err := contract.LoadPolicies(dir)
	if err != nil {
		return counts, err
	}
	testCases, err := contract.LoadTestCases(dir)
	if err != nil {
		return counts, err
	}
	examples, err := contract.LoadExamples(dir)
	if err != nil {
		return counts, err
	}

	inserted, err := insertRun(ctx, db, manifest)
	if err != nil {
		return counts, err
	}
	counts.Runs = inserted

	for _, uc := range useCases {
		n, err := insertRecord(ctx, db, manifest.RunID, uc,
			`INSERT INTO use_cases (row_id, record_key, run_id, use_case_id, case_name, name, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (record_key) DO NOTHING`,
			uc.ID, uc.Case, uc.Name)
		if err != nil {
			return counts, fmt.Errorf("ingest use case %s: %w", uc.ID, err)
		}
		counts.UseCases += n
	}
	for _, policy := range policies {
		n, err := insertRecord(ctx, db, manifest.RunID, policy,
			`INSERT INTO policies (row_id, record_key, run_id, policy_id, policy_type, case_name, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (record_key) DO NOTHING`,
			policy.ID, policy.Type, policy.Case)
		if err != nil {
			return counts, fmt.Errorf("ingest policy %s: %w", policy.ID, err)
		}
		counts.Policies += n
	}
	for _, tc := range testCases {
		n, err := insertRecord(ctx, db, manifest.RunID, tc,
			`INSERT INTO test_cases (row_id, record_key, run_id, test_case_id, use_case_id, case_name, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (record_key) DO NOTHING`,
			tc.ID, tc.UseCaseID, tc.Case)
		if err != nil {
			return counts, fmt.Errorf("ingest test case %s: %w", tc.ID, err)
		}
		counts.TestCases += n
	}
	for _, example := range examples {
		n, err := insertRecord(ctx, db, manifest.RunID, example,
			`INSERT INTO examples (row_id, record_key, run_id, example_id, test_case_id, use_case_id, case_name, format, record)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (record_key) DO NOTHING`,
			example.ID, example.TestCaseID, example.UseCaseID, example.Case, example.Format)
		if err != nil {
			return counts, fmt.Errorf("ingest example %s: %w", example.ID, err)
		}
		counts.Examples += n
	}

	return counts, nil
}

func insertRun(ctx context.Context, db *sql.DB, manifest contract.RunManifest) (int, error) {
	result, err := db.ExecContext(
		ctx,
		`INSERT INTO runs (run_id, input_path, out_path, seed, run_timestamp, generator_version, provider, model, temperature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		manifest.RunID,
		manifest.InputPath,
		manifest.OutPath,
		manifest.Seed,
		manifest.Timestamp,
		manifest.GeneratorVersion,
		manifest.LLM.Provider,
		manifest.LLM.Model,
		manifest.LLM.Temperature,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run %s: %w", manifest.RunID, err)
	}
	return rowsAffected(result), nil
}

// insertRecord inserts one artifact record. The query takes row_id,
// record_key, run_id, the given extra columns, and the canonical record
// JSON, in that order.
func insertRecord(ctx context.Context, db *sql.DB, runID string, record any, query string, extras ...any) (int, error) {
	canonical, err := CanonicalJSON(record)
	if err != nil {
		return 0, err
	}
	key := RecordKey(runID, canonical)
	args := []any{uuid.NewString(), key, runID}
	args = append(args, extras...)
	args = append(args, string(canonical))
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(result), nil
}

func rowsAffected(result sql.Result) int {
	n, err := result.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// CanonicalJSON returns deterministic JSON bytes for hashing and
// storage: the value is round-tripped through a generic decode so map
// keys come out sorted.
func CanonicalJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return json.Marshal(decoded)
}

// RecordKey fingerprints a record within a run.
func RecordKey(runID string, canonical []byte) string {
	hash := sha256.New()
	hash.Write([]byte(runID))
	hash.Write([]byte{0})
	hash.Write(canonical)
	return hex.EncodeToString(hash.Sum(nil))
}

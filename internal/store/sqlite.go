package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"cipherwatch/internal/signal"
	"cipherwatch/internal/trend"
)

// SQLiteSignalStore 把扫描结果落到 SQLite，进程重启后下游仍能读到
// 最近一次扫描。
type SQLiteSignalStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite 打开（必要时建库）并初始化表结构。
func OpenSQLite(path string) (*SQLiteSignalStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path 不能为空")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteSignalStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSignalStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS signal_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			green INTEGER NOT NULL DEFAULT 0,
			gold INTEGER NOT NULL DEFAULT 0,
			red INTEGER NOT NULL DEFAULT 0,
			purple INTEGER NOT NULL DEFAULT 0,
			wt1 REAL, wt2 REAL, rsi REAL, price REAL,
			eval_time INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_results_symbol
			ON signal_results(symbol, eval_time DESC)`,
		`CREATE TABLE IF NOT EXISTS trend_verdicts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			confirmed INTEGER NOT NULL DEFAULT 0,
			reasons TEXT,
			eval_time INTEGER NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSignalStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt.UnixMilli()); err != nil {
		return err
	}
	for _, r := range run.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signal_results
				(run_id, symbol, timeframe, green, gold, red, purple, wt1, wt2, rsi, price, eval_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Symbol, r.Timeframe,
			boolToInt(r.HasGreenCircle), boolToInt(r.HasGoldCircle),
			boolToInt(r.HasRedCircle), boolToInt(r.HasPurpleTriangle),
			r.WT1Last, r.WT2Last, r.RSILast, r.Price, r.EvalTime.UnixMilli()); err != nil {
			return err
		}
	}
	for _, v := range run.Verdicts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trend_verdicts (run_id, symbol, direction, confirmed, reasons, eval_time)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, v.Symbol, v.Direction, boolToInt(v.Confirmed),
			strings.Join(v.Reasons, ","), v.EvalTime.UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteSignalStore) LatestRun(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run Run
	var startedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at FROM scan_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&run.ID, &startedAt)
	if err == sql.ErrNoRows {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, timeframe, green, gold, red, purple, wt1, wt2, rsi, price, eval_time
		FROM signal_results WHERE run_id = ? ORDER BY symbol, timeframe`, run.ID)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return Run{}, err
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	vrows, err := s.db.QueryContext(ctx,
		`SELECT symbol, direction, confirmed, reasons, eval_time
		FROM trend_verdicts WHERE run_id = ? ORDER BY symbol, direction`, run.ID)
	if err != nil {
		return Run{}, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v trend.Verdict
		var confirmed int
		var reasons string
		var evalTime int64
		if err := vrows.Scan(&v.Symbol, &v.Direction, &confirmed, &reasons, &evalTime); err != nil {
			return Run{}, err
		}
		v.Confirmed = confirmed != 0
		if reasons != "" {
			v.Reasons = strings.Split(reasons, ",")
		} else {
			v.Reasons = []string{}
		}
		v.EvalTime = time.UnixMilli(evalTime).UTC()
		run.Verdicts = append(run.Verdicts, v)
	}
	return run, vrows.Err()
}

func (s *SQLiteSignalStore) SymbolHistory(ctx context.Context, symbol string, limit int) ([]signal.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, timeframe, green, gold, red, purple, wt1, wt2, rsi, price, eval_time
		FROM signal_results WHERE symbol = ? ORDER BY eval_time DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]signal.Result, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSignalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func scanResult(rows *sql.Rows) (signal.Result, error) {
	var r signal.Result
	var green, gold, red, purple int
	var evalTime int64
	if err := rows.Scan(&r.Symbol, &r.Timeframe, &green, &gold, &red, &purple,
		&r.WT1Last, &r.WT2Last, &r.RSILast, &r.Price, &evalTime); err != nil {
		return signal.Result{}, err
	}
	r.HasGreenCircle = green != 0
	r.HasGoldCircle = gold != 0
	r.HasRedCircle = red != 0
	r.HasPurpleTriangle = purple != 0
	r.EvalTime = time.UnixMilli(evalTime).UTC()
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

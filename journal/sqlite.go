package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// SQLite stores runs, fills and per-bar results. Each run writes
// through its own Journal obtained from ForRun.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; concurrent sweep runs share one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateRun(ctx context.Context, r RunRecord) error {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, status, dataset, symbol, grid_value, grid_pct, fee_rate, initial_balance, init_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Status, r.Dataset, r.Symbol,
		r.GridValue, r.GridPct, r.FeeRate, r.InitialBalance, r.InitPrice,
	)
	if err != nil {
		return fmt.Errorf("create run %q: %w", r.RunID, err)
	}
	return nil
}

// FinishRun stores the summary of a run. A non-nil runErr marks the run
// failed.
func (s *SQLite) FinishRun(ctx context.Context, runID string, sum Summary, runErr error) error {
	status, msg := StatusFinished, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	var start, end sql.NullTime
	if !sum.Start.IsZero() {
		start = sql.NullTime{Time: sum.Start, Valid: true}
	}
	if !sum.End.IsZero() {
		end = sql.NullTime{Time: sum.End, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, error = ?, bars = ?, buys = ?, sells = ?,
			final_profit = ?, min_profit = ?, max_profit = ?, max_drawdown = ?,
			total_fee = ?, final_amount = ?, start_time = ?, end_time = ?
		WHERE run_id = ?`,
		status, msg, sum.Bars, sum.Buys, sum.Sells,
		sum.FinalProfit, sum.MinProfit, sum.MaxProfit, sum.MaxDrawdown,
		sum.TotalFee, sum.FinalAmount, start, end,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %q: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %q: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `run_id, created, status, error, dataset, symbol, grid_value, grid_pct, fee_rate,
	initial_balance, init_price, bars, buys, sells, final_profit, min_profit, max_profit,
	max_drawdown, total_fee, final_amount, start_time, end_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (RunRecord, error) {
	var (
		r          RunRecord
		start, end sql.NullTime
	)
	err := sc.Scan(
		&r.RunID, &r.Created, &r.Status, &r.Error, &r.Dataset, &r.Symbol,
		&r.GridValue, &r.GridPct, &r.FeeRate, &r.InitialBalance, &r.InitPrice,
		&r.Summary.Bars, &r.Summary.Buys, &r.Summary.Sells,
		&r.Summary.FinalProfit, &r.Summary.MinProfit, &r.Summary.MaxProfit,
		&r.Summary.MaxDrawdown, &r.Summary.TotalFee, &r.Summary.FinalAmount,
		&start, &end,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if start.Valid {
		r.Summary.Start = start.Time
	}
	if end.Valid {
		r.Summary.End = end.Time
	}
	return r, nil
}

func (s *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns runs newest first. limit <= 0 means all.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) ListResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, close_price, position_amount, cumulative_profit, cumulative_fee
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		if err := rows.Scan(
			&rec.Time,
			&rec.ClosePrice,
			&rec.PositionAmount,
			&rec.CumulativeProfit,
			&rec.CumulativeFee,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) ListFills(ctx context.Context, runID string) ([]FillRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, symbol, side, price, amount, cover_amount, open_amount, fee, realized_pnl
		FROM fills
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var rec FillRecord
		if err := rows.Scan(
			&rec.Time,
			&rec.Symbol,
			&rec.Side,
			&rec.Price,
			&rec.Amount,
			&rec.CoverAmount,
			&rec.OpenAmount,
			&rec.Fee,
			&rec.RealizedPnL,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowsPerCommit bounds how long one run journal holds the store's
// single connection before other callers get a turn.
const rowsPerCommit = 1000

const (
	insertFill = `
		INSERT INTO fills
		(run_id, seq, time, symbol, side, price, amount, cover_amount, open_amount, fee, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertResult = `
		INSERT INTO results
		(run_id, seq, time, close_price, position_amount, cumulative_profit, cumulative_fee)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// ForRun returns a Journal writing fills and results under runID.
// Rows are written in transactions of up to rowsPerCommit rows through
// prepared statements; Close commits the rest. Writes fail once ctx is
// done. An open batch holds the store's only connection, so a goroutine
// must Close one run journal before writing to another.
// Closing the journal does not close the store.
func (s *SQLite) ForRun(ctx context.Context, runID string) Journal {
	return &runJournal{db: s.db, ctx: ctx, runID: runID}
}

type runJournal struct {
	db    *sql.DB
	ctx   context.Context
	runID string

	tx         *sql.Tx
	fillStmt   *sql.Stmt
	resultStmt *sql.Stmt
	pending    int

	fillSeq   int
	resultSeq int
}

// begin opens a batch if none is open. The batch itself ignores
// cancellation: interrupting an insert would roll back the whole batch,
// so ctx is checked before each row instead.
func (j *runJournal) begin() error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	if j.tx != nil {
		return nil
	}

	ctx := context.WithoutCancel(j.ctx)
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("run %q: begin: %w", j.runID, err)
	}
	fillStmt, err := tx.PrepareContext(ctx, insertFill)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("run %q: prepare fills: %w", j.runID, err)
	}
	resultStmt, err := tx.PrepareContext(ctx, insertResult)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("run %q: prepare results: %w", j.runID, err)
	}

	j.tx, j.fillStmt, j.resultStmt = tx, fillStmt, resultStmt
	return nil
}

func (j *runJournal) rowWritten() error {
	j.pending++
	if j.pending < rowsPerCommit {
		return nil
	}
	return j.commit()
}

// commit ends the open batch. Statements prepared on the transaction
// are closed with it.
func (j *runJournal) commit() error {
	if j.tx == nil {
		return nil
	}
	tx := j.tx
	j.tx, j.fillStmt, j.resultStmt, j.pending = nil, nil, nil, 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("run %q: commit: %w", j.runID, err)
	}
	return nil
}

func (j *runJournal) RecordFill(f FillRecord) error {
	if err := j.begin(); err != nil {
		return err
	}
	_, err := j.fillStmt.ExecContext(context.WithoutCancel(j.ctx),
		j.runID, j.fillSeq, f.Time, f.Symbol, f.Side, f.Price, f.Amount,
		f.CoverAmount, f.OpenAmount, f.Fee, f.RealizedPnL,
	)
	if err != nil {
		return err
	}
	j.fillSeq++
	return j.rowWritten()
}

func (j *runJournal) RecordResult(r ResultRecord) error {
	if err := j.begin(); err != nil {
		return err
	}
	_, err := j.resultStmt.ExecContext(context.WithoutCancel(j.ctx),
		j.runID, j.resultSeq, r.Time, r.ClosePrice, r.PositionAmount, r.CumulativeProfit, r.CumulativeFee,
	)
	if err != nil {
		return err
	}
	j.resultSeq++
	return j.rowWritten()
}

// Close commits rows written so far, including those of a run that
// stopped early.
func (j *runJournal) Close() error { return j.commit() }

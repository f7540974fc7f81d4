// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	dataset TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL,
	grid_value REAL NOT NULL,
	grid_pct REAL NOT NULL,
	fee_rate REAL NOT NULL,
	initial_balance REAL NOT NULL,
	init_price REAL NOT NULL,
	bars INTEGER NOT NULL DEFAULT 0,
	buys INTEGER NOT NULL DEFAULT 0,
	sells INTEGER NOT NULL DEFAULT 0,
	final_profit REAL NOT NULL DEFAULT 0,
	min_profit REAL NOT NULL DEFAULT 0,
	max_profit REAL NOT NULL DEFAULT 0,
	max_drawdown REAL NOT NULL DEFAULT 0,
	total_fee REAL NOT NULL DEFAULT 0,
	final_amount REAL NOT NULL DEFAULT 0,
	start_time DATETIME,
	end_time DATETIME
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	cover_amount REAL NOT NULL,
	open_amount REAL NOT NULL,
	fee REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	close_price REAL NOT NULL,
	position_amount REAL NOT NULL,
	cumulative_profit REAL NOT NULL,
	cumulative_fee REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`

// Package persistence provides SQLite-based run state storage: households,
// districts, units, and the quarter report history.
package persistence

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/engine"
	"github.com/mlucero/segsim/internal/grid"
	"github.com/mlucero/segsim/internal/policy"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id INTEGER PRIMARY KEY,
		region_id INTEGER NOT NULL,
		income INTEGER NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		attitude REAL NOT NULL,
		social_norm REAL NOT NULL,
		control REAL NOT NULL,
		utility REAL NOT NULL,
		compliant INTEGER NOT NULL,
		redeemed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		center_x INTEGER NOT NULL,
		center_y INTEGER NOT NULL,
		edu_fund REAL NOT NULL,
		enf_fund REAL NOT NULL,
		inc_fund REAL NOT NULL,
		cash_on_hand REAL NOT NULL,
		fine_amount REAL NOT NULL,
		quarter_fines REAL NOT NULL,
		quarter_incentives REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		region_id INTEGER NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		mode INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quarter_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		quarter INTEGER NOT NULL,
		region_id INTEGER NOT NULL,
		region_name TEXT NOT NULL,
		share_edu REAL NOT NULL,
		share_enf REAL NOT NULL,
		share_inc REAL NOT NULL,
		compliance_rate REAL NOT NULL,
		units INTEGER NOT NULL,
		fines REAL NOT NULL,
		incentives REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_households_region ON households(region_id);
	CREATE INDEX IF NOT EXISTS idx_units_region ON units(region_id);
	CREATE INDEX IF NOT EXISTS idx_reports_quarter ON quarter_reports(quarter);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveHouseholds writes all households to the database (full replace).
func (db *DB) SaveHouseholds(households []*agents.Household) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM households"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO households
		(id, region_id, income, pos_x, pos_y, attitude, social_norm, control,
		 utility, compliant, redeemed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range households {
		compliant := 0
		if h.Compliant {
			compliant = 1
		}
		redeemed := 0
		if h.Redeemed {
			redeemed = 1
		}

		_, err := stmt.Exec(
			h.ID, h.RegionID, h.Income, h.Position.X, h.Position.Y,
			h.Attitude, h.SocialNorm, h.Control, h.Utility,
			compliant, redeemed,
		)
		if err != nil {
			return fmt.Errorf("insert household %d: %w", h.ID, err)
		}
	}

	return tx.Commit()
}

// SaveRegions writes all districts to the database (full replace).
func (db *DB) SaveRegions(regions []*policy.Region) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM regions"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}

	for _, r := range regions {
		_, err := tx.Exec(`INSERT INTO regions
			(id, name, center_x, center_y, edu_fund, enf_fund, inc_fund,
			 cash_on_hand, fine_amount, quarter_fines, quarter_incentives)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Center.X, r.Center.Y,
			r.EduFund, r.EnfFund, r.IncFund,
			r.CashOnHand, r.FineAmt, r.QuarterFines, r.QuarterIncentives,
		)
		if err != nil {
			return fmt.Errorf("insert region %d: %w", r.ID, err)
		}

		for _, u := range r.Units {
			_, err := tx.Exec(
				"INSERT INTO units (id, region_id, pos_x, pos_y, mode) VALUES (?, ?, ?, ?, ?)",
				u.ID.String(), u.RegionID, u.Position.X, u.Position.Y, u.Mode,
			)
			if err != nil {
				return fmt.Errorf("insert unit %s: %w", u.ID, err)
			}
		}
	}

	return tx.Commit()
}

// SaveReports appends quarter reports to the database.
func (db *DB) SaveReports(reports []engine.QuarterReport) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range reports {
		_, err := tx.Exec(`INSERT INTO quarter_reports
			(run_id, quarter, region_id, region_name, share_edu, share_enf,
			 share_inc, compliance_rate, units, fines, incentives)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID.String(), r.Quarter, r.RegionID, r.RegionName,
			r.Share.Edu, r.Share.Enf, r.Share.Inc,
			r.ComplianceRate, r.Units, r.Fines, r.Incentives,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// SaveRunState performs a full save of the ledger's world state.
func (db *DB) SaveRunState(l *engine.Ledger) error {
	var households []*agents.Household
	for _, r := range l.Regions {
		households = append(households, r.Households...)
	}
	slog.Info("saving run state", "households", len(households), "regions", len(l.Regions))

	if err := db.SaveHouseholds(households); err != nil {
		return fmt.Errorf("save households: %w", err)
	}
	if err := db.SaveRegions(l.Regions); err != nil {
		return fmt.Errorf("save regions: %w", err)
	}
	if err := db.SaveMeta("run_id", l.RunID.String()); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_step", fmt.Sprintf("%d", l.Steps)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("cash_balance", fmt.Sprintf("%f", l.CashBalance)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("political_capital", fmt.Sprintf("%f", l.PoliticalCapital)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run state saved", "step", l.Steps)
	return nil
}

// storedHousehold mirrors the households table for restore scans.
type storedHousehold struct {
	ID         uint64  `db:"id"`
	RegionID   uint64  `db:"region_id"`
	Income     int     `db:"income"`
	PosX       int     `db:"pos_x"`
	PosY       int     `db:"pos_y"`
	Attitude   float64 `db:"attitude"`
	SocialNorm float64 `db:"social_norm"`
	Control    float64 `db:"control"`
	Utility    float64 `db:"utility"`
	Compliant  int     `db:"compliant"`
	Redeemed   int     `db:"redeemed"`
}

// RestoreHouseholds overwrites the behavioral state of an already-built world
// with the last saved snapshot, matching households by ID. Households present
// in the database but not the world are ignored.
func (db *DB) RestoreHouseholds(l *engine.Ledger) (int, error) {
	var rows []storedHousehold
	if err := db.conn.Select(&rows, "SELECT * FROM households"); err != nil {
		return 0, fmt.Errorf("load households: %w", err)
	}

	byID := make(map[agents.HouseholdID]*agents.Household)
	for _, r := range l.Regions {
		for _, h := range r.Households {
			byID[h.ID] = h
		}
	}

	restored := 0
	for _, row := range rows {
		h, ok := byID[agents.HouseholdID(row.ID)]
		if !ok {
			continue
		}
		pos := grid.Cell{X: row.PosX, Y: row.PosY}
		if pos != h.Position {
			l.Grid.Move(h, pos)
			h.Position = pos
		}
		h.Attitude = row.Attitude
		h.SocialNorm = row.SocialNorm
		h.Control = row.Control
		h.Utility = row.Utility
		h.Compliant = row.Compliant == 1
		h.Redeemed = row.Redeemed == 1
		restored++
	}
	return restored, nil
}

// RestoreLedger reapplies the saved run scalars: run identity, step clock,
// cash balance, and political capital. Routine saves land on quarter
// boundaries, so a restored clock re-budgets on its next step; a snapshot cut
// mid-quarter by a signal resumes unfunded until the next boundary.
func (db *DB) RestoreLedger(l *engine.Ledger) error {
	runID, err := db.GetMeta("run_id")
	if err != nil {
		return fmt.Errorf("load run_id: %w", err)
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("parse run_id %q: %w", runID, err)
	}

	lastStep, err := db.GetMeta("last_step")
	if err != nil {
		return fmt.Errorf("load last_step: %w", err)
	}
	steps, err := strconv.ParseUint(lastStep, 10, 64)
	if err != nil {
		return fmt.Errorf("parse last_step %q: %w", lastStep, err)
	}

	cashStr, err := db.GetMeta("cash_balance")
	if err != nil {
		return fmt.Errorf("load cash_balance: %w", err)
	}
	cash, err := strconv.ParseFloat(cashStr, 64)
	if err != nil {
		return fmt.Errorf("parse cash_balance %q: %w", cashStr, err)
	}

	capStr, err := db.GetMeta("political_capital")
	if err != nil {
		return fmt.Errorf("load political_capital: %w", err)
	}
	capital, err := strconv.ParseFloat(capStr, 64)
	if err != nil {
		return fmt.Errorf("parse political_capital %q: %w", capStr, err)
	}

	l.RunID = id
	l.Steps = steps
	l.CashBalance = cash
	l.PoliticalCapital = capital
	return nil
}

// HasState reports whether the database holds a previous run snapshot.
func (db *DB) HasState() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM households"); err != nil {
		return false
	}
	return n > 0
}

// ReportsForRun returns the stored quarter history for a run, oldest first.
func (db *DB) ReportsForRun(runID string) ([]engine.QuarterReport, error) {
	type row struct {
		RunID          string  `db:"run_id"`
		Quarter        int     `db:"quarter"`
		RegionID       uint64  `db:"region_id"`
		RegionName     string  `db:"region_name"`
		ShareEdu       float64 `db:"share_edu"`
		ShareEnf       float64 `db:"share_enf"`
		ShareInc       float64 `db:"share_inc"`
		ComplianceRate float64 `db:"compliance_rate"`
		Units          int     `db:"units"`
		Fines          float64 `db:"fines"`
		Incentives     float64 `db:"incentives"`
	}
	var rows []row
	err := db.conn.Select(&rows,
		`SELECT run_id, quarter, region_id, region_name, share_edu, share_enf,
		 share_inc, compliance_rate, units, fines, incentives
		 FROM quarter_reports WHERE run_id = ? ORDER BY quarter, region_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}

	out := make([]engine.QuarterReport, 0, len(rows))
	for _, r := range rows {
		id, _ := uuid.Parse(r.RunID)
		out = append(out, engine.QuarterReport{
			RunID:          id,
			Quarter:        r.Quarter,
			RegionID:       r.RegionID,
			RegionName:     r.RegionName,
			Share:          engine.RegionShare{Edu: r.ShareEdu, Enf: r.ShareEnf, Inc: r.ShareInc},
			ComplianceRate: r.ComplianceRate,
			Units:          r.Units,
			Fines:          r.Fines,
			Incentives:     r.Incentives,
		})
	}
	return out, nil
}

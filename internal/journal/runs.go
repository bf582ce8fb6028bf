package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sigreer/sptinv/internal/runner"
)

// StartRun registers a run; invocations can only be recorded against a
// started run.
func (j *Journal) StartRun(runID, command string, started time.Time) error {
	_, err := j.conn.Exec(`INSERT INTO runs (run_id, command, started) VALUES (?, ?, ?)`,
		runID, command, started.UTC())
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

func (j *Journal) FinishRun(runID string, finished time.Time, exitCode, devices int) error {
	res, err := j.conn.Exec(`UPDATE runs SET finished = ?, exit_code = ?, devices = ? WHERE run_id = ?`,
		finished.UTC(), exitCode, devices, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Recorder returns a runner.Recorder writing into runID.
func (j *Journal) Recorder(runID string) runner.Recorder {
	return &recorder{j: j, runID: runID}
}

type recorder struct {
	j     *Journal
	runID string
}

func (r *recorder) Record(inv runner.Invocation) error {
	_, err := r.j.conn.Exec(`
		INSERT INTO invocations (run_id, command, message, via, exit_code, timed_out, duration_ms, started)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.runID, inv.Command, inv.Message, inv.Via, inv.ExitCode, inv.TimedOut, inv.Duration.Milliseconds(), inv.Started.UTC())
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (j *Journal) Runs(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.conn.Query(`
		SELECT run_id, command, started, finished, exit_code, devices
		FROM runs
		ORDER BY started DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var exitCode sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.Command, &r.Started, &finished, &exitCode, &r.Devices); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.Finished = &t
		}
		if exitCode.Valid {
			c := int(exitCode.Int64)
			r.ExitCode = &c
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Invocations returns runID's commands in execution order.
func (j *Journal) Invocations(runID string) ([]*Entry, error) {
	rows, err := j.conn.Query(`
		SELECT id, run_id, command, message, via, exit_code, timed_out, duration_ms, started
		FROM invocations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var message, via sql.NullString
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Command, &message, &via, &e.ExitCode, &e.TimedOut, &durationMS, &e.Started); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		e.Message = message.String
		e.Via = via.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Prune drops all but the newest keep runs and their invocations.
func (j *Journal) Prune(keep int) (int64, error) {
	_, err := j.conn.Exec(`
		DELETE FROM invocations WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}

	res, err := j.conn.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

package costbook

import (
	"database/sql"
)

// OperationLog is one entry of the write audit trail.
type OperationLog struct {
	ID        int64  `json:"id"`
	Operation string `json:"operation_type"`
	Subject   string `json:"subject,omitempty"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func addOperationLogTx(tx *sql.Tx, operation, subject, details string) error {
	_, err := tx.Exec(
		"INSERT INTO operation_logs (operation_type, subject, details) VALUES (?, ?, ?)",
		operation, nullString(subject), nullString(details),
	)
	if err != nil {
		return WrapError(ErrCodeDatabase, "insert operation log", err)
	}
	return nil
}

// GetOperationLogs returns recent operation logs, newest first.
func (c *Core) GetOperationLogs(limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.Query(
		"SELECT id, operation_type, subject, details, created_at FROM operation_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list operation logs", err)
	}
	defer rows.Close()

	logs := []OperationLog{}
	for rows.Next() {
		var log OperationLog
		var subject, details sql.NullString
		var createdAt any
		if err := rows.Scan(&log.ID, &log.Operation, &subject, &details, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan operation log", err)
		}
		log.Subject = subject.String
		log.Details = details.String
		if t := timeFromColumn(createdAt); t != nil {
			log.CreatedAt = t.UTC().Format("2006-01-02T15:04:05Z")
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"alert-case-service/internal/modal"
)

// AuditLog is the append-only audit sink. There is no update or delete path.
type AuditLog struct {
	db *DB
}

func auditKey(id string) []byte { return key("audit", id) }

// tsKey renders a timestamp so that lexical key order is chronological.
func tsKey(e *modal.AuditEntry) string {
	return fmt.Sprintf("%020d", e.Timestamp.UnixNano())
}

func auditIndexKeys(e *modal.AuditEntry) [][]byte {
	ts := tsKey(e)
	keys := [][]byte{key("idx", "audit_actor", e.Actor, ts, e.ID)}
	if e.CaseID != "" {
		keys = append(keys, key("idx", "audit_case", e.CaseID, ts, e.ID))
	}
	if e.TaskID != "" {
		keys = append(keys, key("idx", "audit_task", e.TaskID, ts, e.ID))
	}
	return keys
}

// Append stores e. An entry with an existing id is rejected with ErrDuplicate.
func (s *AuditLog) Append(ctx context.Context, e modal.AuditEntry) error {
	if e.ID == "" {
		return fmt.Errorf("append audit entry: missing id")
	}
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		found, err := exists(txn, auditKey(e.ID))
		if err != nil {
			return err
		}
		if found {
			return ErrDuplicate
		}
		if err := setJSON(txn, auditKey(e.ID), e); err != nil {
			return err
		}
		for _, k := range auditIndexKeys(&e) {
			if err := txn.Set(k, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append audit entry %s: %w", e.ID, err)
	}
	return nil
}

// FindByCase returns the case's trail oldest first.
func (s *AuditLog) FindByCase(ctx context.Context, caseID string) ([]modal.AuditEntry, error) {
	return s.findByIndex(ctx, prefix("idx", "audit_case", caseID))
}

func (s *AuditLog) FindByTask(ctx context.Context, taskID string) ([]modal.AuditEntry, error) {
	return s.findByIndex(ctx, prefix("idx", "audit_task", taskID))
}

func (s *AuditLog) FindByActor(ctx context.Context, actor string) ([]modal.AuditEntry, error) {
	return s.findByIndex(ctx, prefix("idx", "audit_actor", actor))
}

func (s *AuditLog) findByIndex(ctx context.Context, p []byte) ([]modal.AuditEntry, error) {
	var out []modal.AuditEntry
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, id := range scanIDs(txn, p) {
			var e modal.AuditEntry
			if err := getJSON(txn, auditKey(id), &e); err != nil {
				return fmt.Errorf("load audit entry %s: %w", id, err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

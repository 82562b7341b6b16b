package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"alert-case-service/internal/modal"
)

// Cases is the case store. Records live under "case/<id>" with indexes on
// status, creator, alert reference and case number.
type Cases struct {
	db *DB
}

func caseKey(id string) []byte { return key("case", id) }

func caseIndexKeys(c *modal.Case) [][]byte {
	keys := [][]byte{
		key("idx", "case_status", string(c.Status), c.ID),
		key("idx", "case_creator", c.CreatedBy, c.ID),
	}
	if c.AlertID != nil && *c.AlertID != "" {
		keys = append(keys, key("idx", "case_alert", *c.AlertID, c.ID))
	}
	return keys
}

func caseNumberKey(number string) []byte { return key("idx", "case_number", number) }

// Save inserts or replaces the case and rewrites its indexes.
func (s *Cases) Save(ctx context.Context, c *modal.Case) (*modal.Case, error) {
	if c == nil || c.ID == "" {
		return nil, errors.New("save case: missing id")
	}
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var old modal.Case
		err := getJSON(txn, caseKey(c.ID), &old)
		switch {
		case err == nil:
			for _, k := range caseIndexKeys(&old) {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		numKey := caseNumberKey(c.CaseNumber)
		item, err := txn.Get(numKey)
		switch {
		case err == nil:
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != c.ID {
				return fmt.Errorf("case number %s: %w", c.CaseNumber, ErrDuplicate)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := txn.Set(numKey, []byte(c.ID)); err != nil {
				return err
			}
		default:
			return err
		}

		if err := setJSON(txn, caseKey(c.ID), c); err != nil {
			return err
		}
		for _, k := range caseIndexKeys(c) {
			if err := txn.Set(k, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save case %s: %w", c.ID, err)
	}
	return c.Clone(), nil
}

// FindByID returns ErrNotFound when no case has the id.
func (s *Cases) FindByID(ctx context.Context, id string) (*modal.Case, error) {
	var c modal.Case
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, caseKey(id), &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Cases) FindByCaseNumber(ctx context.Context, number string) (*modal.Case, error) {
	var c modal.Case
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(caseNumberKey(number))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, caseKey(string(id)), &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Cases) FindByStatus(ctx context.Context, status modal.CaseStatus) ([]*modal.Case, error) {
	return s.findByIndex(ctx, prefix("idx", "case_status", string(status)))
}

func (s *Cases) FindByCreator(ctx context.Context, actor string) ([]*modal.Case, error) {
	return s.findByIndex(ctx, prefix("idx", "case_creator", actor))
}

func (s *Cases) FindByAlertID(ctx context.Context, alertID string) ([]*modal.Case, error) {
	return s.findByIndex(ctx, prefix("idx", "case_alert", alertID))
}

func (s *Cases) List(ctx context.Context) ([]*modal.Case, error) {
	return s.findByIndex(ctx, prefix("case"))
}

func (s *Cases) CountByStatus(ctx context.Context, status modal.CaseStatus) (int, error) {
	var n int
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		n = countPrefix(txn, prefix("idx", "case_status", string(status)))
		return nil
	})
	return n, err
}

func (s *Cases) findByIndex(ctx context.Context, p []byte) ([]*modal.Case, error) {
	var out []*modal.Case
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, id := range scanIDs(txn, p) {
			var c modal.Case
			if err := getJSON(txn, caseKey(id), &c); err != nil {
				return fmt.Errorf("load case %s: %w", id, err)
			}
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// Delete physically removes the case and its indexes.
func (s *Cases) Delete(ctx context.Context, c *modal.Case) error {
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var cur modal.Case
		if err := getJSON(txn, caseKey(c.ID), &cur); err != nil {
			return err
		}
		keys := append(caseIndexKeys(&cur), caseKey(cur.ID), caseNumberKey(cur.CaseNumber))
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete case %s: %w", c.ID, err)
	}
	return nil
}

// NextSequenceNumber returns the next case number counter, starting at 1.
// Numbers are unique and increasing but may skip after a restart.
func (s *Cases) NextSequenceNumber(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.db.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next case sequence: %w", err)
	}
	return int64(n) + 1, nil
}

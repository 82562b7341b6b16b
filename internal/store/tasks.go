package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"alert-case-service/internal/modal"
)

// Tasks is the task store. Besides the case, assignee, group and kind
// indexes it keeps an "active" index on (case, kind) for tasks that are not
// yet completed.
type Tasks struct {
	db *DB
}

func taskKey(id string) []byte { return key("task", id) }

func taskIndexKeys(t *modal.Task) [][]byte {
	keys := [][]byte{
		key("idx", "task_case", t.CaseID, t.ID),
		key("idx", "task_kind", string(t.Kind), t.ID),
	}
	if t.Assignee != "" {
		keys = append(keys, key("idx", "task_assignee", t.Assignee, t.ID))
	}
	if t.CandidateGroup != "" {
		keys = append(keys, key("idx", "task_group", t.CandidateGroup, t.ID))
	}
	if t.Status.Active() {
		keys = append(keys, key("idx", "task_active", t.CaseID, string(t.Kind), t.ID))
	}
	return keys
}

func (s *Tasks) Save(ctx context.Context, t *modal.Task) (*modal.Task, error) {
	if t == nil || t.ID == "" {
		return nil, errors.New("save task: missing id")
	}
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var old modal.Task
		err := getJSON(txn, taskKey(t.ID), &old)
		switch {
		case err == nil:
			for _, k := range taskIndexKeys(&old) {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := setJSON(txn, taskKey(t.ID), t); err != nil {
			return err
		}
		for _, k := range taskIndexKeys(t) {
			if err := txn.Set(k, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save task %s: %w", t.ID, err)
	}
	out := *t
	return &out, nil
}

func (s *Tasks) FindByID(ctx context.Context, id string) (*modal.Task, error) {
	var t modal.Task
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, taskKey(id), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindActiveByCaseAndKind returns the outstanding task of kind for the case,
// or ErrNotFound. When the index holds more than one (which the orchestrator
// never produces) the oldest is returned.
func (s *Tasks) FindActiveByCaseAndKind(ctx context.Context, caseID string, kind modal.TaskKind) (*modal.Task, error) {
	tasks, err := s.findByIndex(ctx, prefix("idx", "task_active", caseID, string(kind)))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	oldest := tasks[0]
	for _, t := range tasks[1:] {
		if t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	return oldest, nil
}

func (s *Tasks) FindByCase(ctx context.Context, caseID string) ([]*modal.Task, error) {
	return s.findByIndex(ctx, prefix("idx", "task_case", caseID))
}

func (s *Tasks) FindByAssignee(ctx context.Context, assignee string) ([]*modal.Task, error) {
	return s.findByIndex(ctx, prefix("idx", "task_assignee", assignee))
}

func (s *Tasks) FindByGroup(ctx context.Context, group string) ([]*modal.Task, error) {
	return s.findByIndex(ctx, prefix("idx", "task_group", group))
}

func (s *Tasks) FindByKind(ctx context.Context, kind modal.TaskKind) ([]*modal.Task, error) {
	return s.findByIndex(ctx, prefix("idx", "task_kind", string(kind)))
}

func (s *Tasks) findByIndex(ctx context.Context, p []byte) ([]*modal.Task, error) {
	var out []*modal.Task
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, id := range scanIDs(txn, p) {
			var t modal.Task
			if err := getJSON(txn, taskKey(id), &t); err != nil {
				return fmt.Errorf("load task %s: %w", id, err)
			}
			out = append(out, &t)
		}
		return nil
	})
	return out, err
}

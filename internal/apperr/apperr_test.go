package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"alert-case-service/internal/modal"
)

func TestError_IsMatchesOnlyItsKind(t *testing.T) {
	err := InvalidStatef("approve", "case is %s", modal.StatusDraft)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestError_MessageCarriesActionCaseAndStatus(t *testing.T) {
	c := &modal.Case{ID: "c-1", Status: modal.StatusPendingApproval}
	err := Unauthorizedf("abandon", "only the creator may abandon").WithCase(c)

	msg := err.Error()
	assert.Contains(t, msg, "abandon")
	assert.Contains(t, msg, "case=c-1")
	assert.Contains(t, msg, "status=PENDING_CASE_CREATION_APPROVAL")
	assert.Contains(t, msg, "only the creator may abandon")
}

func TestKindOf_SeesThroughWrapping(t *testing.T) {
	inner := Wrap(KindStore, "save", errors.New("disk full"))
	wrapped := fmt.Errorf("create case: %w", inner)

	assert.Equal(t, KindStore, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrStore)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestPersistedCase(t *testing.T) {
	c := &modal.Case{ID: "c-9", Status: modal.StatusReadyForAssignment}
	err := &Error{Kind: KindPartialFailure, Action: "approve", Case: c}

	assert.Same(t, c, PersistedCase(fmt.Errorf("wrap: %w", err)))
	assert.Nil(t, PersistedCase(errors.New("other")))
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindValidation, "validation"},
		{KindNotFound, "not_found"},
		{KindInvalidState, "invalid_state"},
		{KindUnauthorized, "unauthorized"},
		{KindPartialFailure, "partial_failure"},
		{KindTimeout, "timeout"},
		{KindStore, "store"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

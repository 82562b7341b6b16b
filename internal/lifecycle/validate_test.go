package lifecycle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
)

func TestFieldValidator(t *testing.T) {
	v := NewFieldValidator(config.Default().Vocabulary)

	assert.Nil(t, v.Validate("create", modal.CaseFields{}))
	assert.Nil(t, v.Validate("create", modal.CaseFields{
		CaseType:  str("SANCTIONS"),
		Priority:  str("CRITICAL"),
		Typology:  str("TERRORIST_FINANCING"),
		RiskScore: num(0),
	}))
	assert.Nil(t, v.Validate("create", modal.CaseFields{RiskScore: num(100)}))

	err := v.Validate("edit", modal.CaseFields{
		CaseType:  str("fraud"),
		Priority:  str("URGENT"),
		RiskScore: num(math.NaN()),
	})
	require.NotNil(t, err)
	assert.Equal(t, apperr.KindValidation, err.Kind)
	assert.Equal(t, "edit", err.Action)
	assert.Contains(t, err.Msg, "caseType fraud is not an allowed value")
	assert.Contains(t, err.Msg, "priority URGENT is not an allowed value")
	assert.Contains(t, err.Msg, "riskScore")
}

func TestFieldValidator_MaxLength(t *testing.T) {
	v := NewFieldValidator(config.Default().Vocabulary)
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	err := v.Validate("create", modal.CaseFields{Entity: str(string(long))})
	require.NotNil(t, err)
	assert.Contains(t, err.Msg, "entity is longer than 512 characters")
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOperationTypeSet_Normalises(t *testing.T) {
	t.Parallel()

	a := NewOperationTypeSet(OperationManualValidation, OperationAutomaticValidation, OperationManualValidation)
	b := NewOperationTypeSet(" automatic_validation", OperationManualValidation)

	assert.Equal(t, a, b)
	assert.Equal(t, "AUTOMATIC_VALIDATION,MANUAL_VALIDATION", a.Key())
}

func TestNewOperationTypeSet_DropsUnknown(t *testing.T) {
	t.Parallel()

	set := NewOperationTypeSet("REFUND", "")
	assert.True(t, set.Empty())
	assert.Equal(t, "", set.Key())
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Sucesso", StatusLabel(true))
	assert.Equal(t, "Falha", StatusLabel(false))
}

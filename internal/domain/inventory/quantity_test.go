package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/spare-ledger/internal/domain/inventory"
)

func TestClamp_EsElMinimoDeLosTres(t *testing.T) {
	for r := int64(0); r <= 6; r++ {
		for a := int64(0); a <= 6; a++ {
			for c := int64(0); c <= 6; c++ {
				got := inventory.Clamp(decimal.NewFromInt(c), decimal.NewFromInt(r), decimal.NewFromInt(a))
				want := min(r, a, c)
				assert.Truef(t, got.Equal(decimal.NewFromInt(want)),
					"R=%d A=%d C=%d: esperado %d, obtenido %s", r, a, c, want, got)
			}
		}
	}
}

func TestClamp_NuncaNegativo(t *testing.T) {
	got := inventory.Clamp(decimal.NewFromInt(3), decimal.NewFromInt(3), decimal.NewFromInt(-2))
	assert.True(t, got.IsZero())
}

func TestIsWholeUnits(t *testing.T) {
	assert.True(t, inventory.IsWholeUnits(decimal.Zero))
	assert.True(t, inventory.IsWholeUnits(decimal.NewFromInt(12)))
	assert.False(t, inventory.IsWholeUnits(decimal.NewFromInt(-1)))
	assert.False(t, inventory.IsWholeUnits(decimal.RequireFromString("1.5")))
}

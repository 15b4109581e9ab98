package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_EmptyReturnsZero(t *testing.T) {
	var tbl Table
	assert.Equal(t, float64(0), tbl.Lookup(5))
}

func TestTable_ClampBelowAndAbove(t *testing.T) {
	tbl := &Table{X: []float64{0, 1, 2}, Y: []float64{10, 20, 30}}
	assert.Equal(t, float64(10), tbl.Lookup(-5))
	assert.Equal(t, float64(30), tbl.Lookup(50))
}

func TestTable_ExactPoint(t *testing.T) {
	tbl := &Table{X: []float64{0, 1, 2}, Y: []float64{10, 20, 30}}
	assert.Equal(t, float64(20), tbl.Lookup(1))
}

func TestTable_Interpolates(t *testing.T) {
	tbl := &Table{X: []float64{0, 10}, Y: []float64{0, 100}}
	assert.Equal(t, float64(50), tbl.Lookup(5))
	assert.Equal(t, float64(25), tbl.Lookup(2.5))
}

func TestProject_GetModel_EmptyNameReturnsRoot(t *testing.T) {
	p := &Project{Files: []File{{Models: []Model{{Name: "root"}, {Name: "other"}}}}}
	m, err := p.GetModel("")
	assert.NoError(t, err)
	assert.Equal(t, "root", m.Name)
}

func TestProject_GetModel_ByName(t *testing.T) {
	p := &Project{Files: []File{{Models: []Model{{Name: "root"}, {Name: "predator_prey"}}}}}
	m, err := p.GetModel("predator_prey")
	assert.NoError(t, err)
	assert.Equal(t, "predator_prey", m.Name)
}

func TestProject_GetModel_UnknownNameErrors(t *testing.T) {
	p := &Project{Files: []File{{Models: []Model{{Name: "root"}}}}}
	_, err := p.GetModel("nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

package xmile

import (
	"strings"
	"testing"

	"github.com/dekarrin/xmilesim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneStockDoc = `<?xml version="1.0"?>
<xmile version="1.0">
  <header>
    <name>bathtub</name>
    <vendor>xmilesim</vendor>
    <product version="1.0">xmilesim</product>
  </header>
  <sim_specs method="euler" time_units="minutes">
    <start>0</start>
    <stop>10</stop>
    <dt>1</dt>
  </sim_specs>
  <model>
    <variables>
      <stock name="Water Level">
        <eqn>100</eqn>
        <outflow>Drain Rate</outflow>
      </stock>
      <flow name="Drain Rate">
        <eqn>5</eqn>
      </flow>
    </variables>
  </model>
</xmile>`

func TestParse_OneStock(t *testing.T) {
	p, err := Parse(strings.NewReader(oneStockDoc))
	require.NoError(t, err)
	require.Len(t, p.Files, 1)
	require.Len(t, p.Files[0].Models, 1)

	m := p.Files[0].Models[0]
	require.Len(t, m.Vars, 2)

	var stock, flow *sim.Var
	for i := range m.Vars {
		switch m.Vars[i].Kind {
		case sim.VarStock:
			stock = &m.Vars[i]
		case sim.VarFlow:
			flow = &m.Vars[i]
		}
	}
	require.NotNil(t, stock)
	require.NotNil(t, flow)
	assert.Equal(t, "water level", stock.Name)
	assert.Equal(t, "100", stock.Eqn)
	assert.Equal(t, []string{"drain rate"}, stock.Outflows)
	assert.Equal(t, "drain rate", flow.Name)
}

func TestParse_SimSpecs(t *testing.T) {
	p, err := Parse(strings.NewReader(oneStockDoc))
	require.NoError(t, err)
	spec := p.Files[0].SimSpecs
	assert.Equal(t, float64(0), spec.Start)
	assert.Equal(t, float64(10), spec.Stop)
	assert.Equal(t, float64(1), spec.DT)
	assert.Equal(t, "euler", spec.Method)
}

func TestParse_GraphicalFunction(t *testing.T) {
	doc := `<xmile version="1.0"><model><variables>
		<aux name="lookup">
			<eqn>x</eqn>
			<gf><xpts>0,1,2</xpts><ypts>0,10,20</ypts></gf>
		</aux>
	</variables></model></xmile>`
	p, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	v := p.Files[0].Models[0].Vars[0]
	require.NotNil(t, v.GF)
	assert.Equal(t, []float64{0, 1, 2}, v.GF.X)
	assert.Equal(t, []float64{0, 10, 20}, v.GF.Y)
}

func TestParse_NoModelsErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`<xmile version="1.0"></xmile>`))
	assert.Error(t, err)
}

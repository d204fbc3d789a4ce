package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	cases := []struct {
		concepto string
		texto    string
		want     string
	}{
		{"OXXO Insurgentes", "", "Supermercado"},
		{"Taqueria El Paisa", "", "Restaurantes"},
		{"Cafeteria central", "", "Restaurantes"},
		{"Pago CFE bimestral", "", "Servicios"},
		{"Farmacias Similares", "", "Salud"},
		{"Cinepolis VIP", "", "Entretenimiento"},
		{"Comision por manejo", "", "Bancos"},
		{"Ferreteria López", "", "Hogar"},
		{"Varios", "ticket de laboratorio", "Salud"},
		{"Pago sin pista", "", Default},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Identify(tc.concepto, tc.texto), tc.concepto)
	}
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "Educación", Canonicalize("educación"))
	assert.Equal(t, "Transporte", Canonicalize("  TRANSPORTE "))
	assert.Equal(t, "Mascotas", Canonicalize("Mascotas"))
	assert.Equal(t, Default, Canonicalize(""))
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"Mascotas", "Otros", "", "Mascotas"})
	assert.Len(t, got, len(Categories)+1)
	assert.Equal(t, "Mascotas", got[len(got)-1])
}

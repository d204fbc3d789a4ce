package categorize

import (
	"strings"

	"lectorgastos/internal/util"
)

const Default = "Otros"

// Categories is the fixed category set, in display order.
var Categories = []string{
	"Supermercado",
	"Restaurantes",
	"Transporte",
	"Servicios",
	"Salud",
	"Entretenimiento",
	"Educación",
	"Hogar",
	"Bancos",
	Default,
}

type rule struct {
	category string
	keywords []string
}

// rules are evaluated in order; the first keyword hit wins.
var rules = []rule{
	{"Supermercado", []string{"supermercado", "soriana", "chedraui", "heb", "walmart", "oxxo", "seven", "7-eleven", "minisuper", "abarrotes"}},
	{"Restaurantes", []string{"restaurante", "cafe", "cafetería", "comida", "pizza", "hamburguesa", "taquería", "taqueria", "uber eats", "rappi", "didí food"}},
	{"Transporte", []string{"gasolina", "gas", "uber", "didi", "taxi", "metro", "transporte", "estacionamiento", "caseta", "peaje"}},
	{"Servicios", []string{"cfe", "aguakan", "telcel", "movistar", "totalplay", "internet", "luz", "agua", "gas natural"}},
	{"Salud", []string{"farmacia", "similares", "hospital", "clinica", "medicamento", "doctor", "laboratorio"}},
	{"Entretenimiento", []string{"netflix", "spotify", "cine", "cinépolis", "cinemex", "streaming", "juegos"}},
	{"Educación", []string{"colegiatura", "universidad", "curso", "libros", "utiles", "papelería"}},
	{"Hogar", []string{"home depot", "liverpool", "coppel", "electrónica", "ferretería"}},
	{"Bancos", []string{"comisión", "interés", "retiro", "transferencia", "estado de cuenta", "banco"}},
}

var foldedRules = foldRules(rules)

func foldRules(in []rule) []rule {
	out := make([]rule, 0, len(in))
	for _, r := range in {
		keywords := make([]string, 0, len(r.keywords))
		for _, k := range r.keywords {
			keywords = append(keywords, util.Fold(k))
		}
		out = append(out, rule{category: r.category, keywords: keywords})
	}
	return out
}

// Identify returns the category of the first keyword found in concepto or texto.
func Identify(concepto, texto string) string {
	haystack := util.Fold(concepto + " " + texto)
	for _, r := range foldedRules {
		for _, k := range r.keywords {
			if strings.Contains(haystack, k) {
				return r.category
			}
		}
	}
	return Default
}

// Canonicalize snaps value onto a known category by case-insensitive equality.
// Unknown non-empty values are kept as given; empty ones become Default.
func Canonicalize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Default
	}
	for _, c := range Categories {
		if strings.EqualFold(c, trimmed) {
			return c
		}
	}
	return trimmed
}

// Merge returns the fixed categories followed by custom ones not already present.
func Merge(custom []string) []string {
	out := append([]string{}, Categories...)
	seen := map[string]struct{}{}
	for _, c := range Categories {
		seen[c] = struct{}{}
	}
	for _, c := range custom {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

package ai

import (
	"fmt"
	"strings"

	"lectorgastos/internal"
	"lectorgastos/internal/categorize"
)

func documentPrompt(text string) string {
	categories := strings.Join(categorize.Categories, ", ")
	return `Texto de un comprobante, recibo, presupuesto o estado de cuenta.
INSTRUCCIONES:
- Primero identifica el tipo de documento: presupuesto/cotización en tabla, ticket de compra, estado de cuenta bancario o recibo libre.
- Extrae cada gasto o movimiento real como un ítem separado (una línea o movimiento = un ítem).
- Cada ítem debe tener: concepto (descripción), monto (número con punto decimal, siempre positivo), fecha (la de ese movimiento; formato YYYY-MM-DD), categoria y tipo.
- Categoria debe ser exactamente una de: ` + categories + `.
- Tipo es "ingreso" para depósitos, abonos o créditos; "gasto" para todo lo demás.
- NO incluyas la línea de TOTAL, "Total a pagar", subtotales, encabezados ni separadores como ítems.
- Los montos pueden venir con coma o punto decimal; devuélvelos como número.
- Si el documento solo muestra un total sin desglose, devuelve un solo ítem con ese monto y concepto "` + internal.SinDesglose + `".
Responde ÚNICAMENTE un JSON array, sin markdown: [{ "concepto": "...", "monto": 123.45, "fecha": "YYYY-MM-DD", "categoria": "...", "tipo": "gasto" }, ...]
TEXTO:
---
` + text + `
---`
}

func linesPrompt(lines []string) string {
	var b strings.Builder
	b.WriteString(`Lista de líneas de gastos. En cada línea hay concepto y monto (puede ser 1.234,56 o 1,234.56).
Devuelve un JSON array con un objeto por línea, en el mismo orden y con la misma cantidad de elementos:
{ "monto": número positivo con punto decimal, "categoria": una de [` + strings.Join(categorize.Categories, ", ") + `], "tipo": "gasto" o "ingreso" }.
Un monto negativo o palabras como retiro, cargo o débito indican "gasto"; depósito, abono o crédito indican "ingreso".
Solo JSON, sin markdown.
Líneas:
`)
	for i, line := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	return b.String()
}

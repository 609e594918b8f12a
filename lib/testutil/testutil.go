package testutil

import (
	"fmt"
	"moex-scraper/lib/telemetry"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SetupTest sets up logging for a test package and returns its cleanup.
func SetupTest(t testing.TB, name string) func() {
	return telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", name))
}

// ArchivePage renders an archive page in the shape the exchange serves it,
// one <tr> per row and one <td> per cell.
func ArchivePage(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Архив индекса</title></head><body>
<div class="header">Индексы</div>
<div class="ui-table">
  <div class="ui-table__container">
    <table class="ui-table__table">
      <thead><tr>
        <th>Дата</th><th>Открытие</th><th>Максимум</th><th>Минимум</th>
        <th>Закрытие</th><th>Объем торгов</th><th>Капитализация</th>
      </tr></thead>
      <tbody>
`)
	for _, row := range rows {
		b.WriteString("        <tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<td class=\"ui-table-cell\"> %s </td>", cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString(`      </tbody>
    </table>
  </div>
</div>
</body></html>`)
	return b.String()
}

// SampleRows are three valid archive rows, newest first.
var SampleRows = [][]string{
	{"26.02.2025", "3 276,61", "3 290,31", "3 245,27", "3 268,62", "95 458 726 584,11", "5 876 045 543 210,5"},
	{"25.02.2025", "3 240,15", "3 281,00", "3 231,64", "3 276,59", "88 001 234 567", "5 890 122 000 000"},
	{"24.02.2025", "3 300,00", "3 312,48", "3 228,90", "3 240,11", "110 555 000,99", "5 820 000 000 000,01"},
}

// WritePage writes a page under dir and returns its path.
func WritePage(t testing.TB, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// legacyCatalog has no email column, like files written before loans
// recorded borrower emails.
const legacyCatalog = "id;tipo;titulo;autor;genero;saga;isbn;disponible;prestado_a;fecha_prestamo\n" +
	"1;Libro;Cien años de soledad;Gabriel García Márquez;Realismo mágico;;978-0307474728;Sí;;\n" +
	"2;Película;Alien;Ridley Scott;Ciencia ficción;Alien;;No;Luis Pérez;2024-01-10 09:30\n" +
	"3;Libro;El Hobbit;J. R. R. Tolkien;Fantasía;Tierra Media;978-0547928227;Sí;;\n" +
	"4;Película;Aliens;James Cameron;Ciencia ficción;Alien;;Sí;;\n" +
	"5;Libro;Dune;Frank Herbert;Ciencia ficción;Dune;978-0441172719;Sí;;\n"

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biblioteca.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

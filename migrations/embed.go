// Package migrations embeds the reading store schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/meteo-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

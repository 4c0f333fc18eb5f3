// Package all registers every warehouse backend. Commands blank-import it
// so the config alone decides which backend runs.
package all

import (
	_ "github.com/Sagar-cesta/heatmap2/internal/warehouse/mssql"
	_ "github.com/Sagar-cesta/heatmap2/internal/warehouse/postgres"
	_ "github.com/Sagar-cesta/heatmap2/internal/warehouse/sqlite"
)

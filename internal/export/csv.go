package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// WriteCSV renders the enriched dataset with the canonical column order.
func WriteCSV(w io.Writer, sites []model.EnrichedSite, extras []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(extras)); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, s := range sites {
		if err := cw.Write(Row(s, extras)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

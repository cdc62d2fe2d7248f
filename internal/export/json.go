package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// WriteJSON renders the enriched dataset as an indented JSON array, with
// passthrough extras inlined alongside the computed fields.
func WriteJSON(w io.Writer, sites []model.EnrichedSite, extras []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Preview(sites, extras, len(sites))); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

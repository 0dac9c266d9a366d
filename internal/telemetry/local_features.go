package telemetry

import (
	"context"

	"github.com/petasbytes/figaro/internal/metrics"
)

// EmitQueryFeatures records cheap local features of the user's question.
func (e *Emitter) EmitQueryFeatures(ctx context.Context, query string) {
	if e == nil {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(query)
	e.Emit("query_features", map[string]any{
		"turn_id":          turnID,
		"features_version": "2",
		"query": map[string]any{
			"bytes":       f.Bytes,
			"runes":       f.Runes,
			"words":       f.Words,
			"lines":       f.Lines,
			"urls":        f.URLs,
			"attachments": f.Attachments,
		},
	})
}

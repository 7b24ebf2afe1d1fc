package jobs

import (
	"context"
	"time"

	"github.com/agentstation/utc"

	"github.com/pb40development/ifc-normalizer/internal/engine"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
	"github.com/pb40development/ifc-normalizer/pkg/report"
)

// NewProcessor adapts the normalization engine into the registry's
// ProcessFunc: decode, normalize every wall, re-encode, build the full
// report.
func NewProcessor(eng *engine.Engine) ProcessFunc {
	return func(ctx context.Context, fileName string, input []byte) ([]byte, *report.Full, error) {
		start := time.Now()

		doc, err := ifc.Open(input)
		if err != nil {
			return nil, nil, err
		}
		defer doc.Close()

		result, err := eng.NormalizeDocument(ctx, doc)
		if err != nil {
			return nil, nil, err
		}

		output, err := doc.Bytes()
		if err != nil {
			return nil, nil, err
		}

		full := &report.Full{
			Metadata: report.Metadata{
				ProcessedAt:           utc.Now(),
				ProcessingTimeSeconds: time.Since(start).Seconds(),
				OriginalFile:          fileName,
				OriginalFileSize:      len(input),
				OutputFileSize:        len(output),
			},
			Analysis: result.Analysis(),
			Changes:  result.Entries,
		}
		return output, full, nil
	}
}

package pipeline

import (
	"context"
	"strings"
	"time"

	"tubesb/internal/browser"
	"tubesb/internal/diag"
)

// probeResolutions waits for the player's quality menu to render and reads
// its labels. It never fails: any problem yields no labels.
func probeResolutions(ctx context.Context, sess browser.Session, gap time.Duration, script string, trace *diag.Log) []string {
	trace.Addf("- waiting %d ms for the quality menu", gap.Milliseconds())

	t := time.NewTimer(gap)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		trace.Add("- resolution probe cancelled")
		return nil
	}

	var labels []string
	if err := sess.Evaluate(ctx, script, &labels); err != nil {
		trace.Addf("- resolution probe failed: %v", err)
		return nil
	}
	if len(labels) == 0 {
		trace.Add("- no resolutions in quality menu")
		return nil
	}
	trace.Addf("- resolutions %s", strings.Join(labels, ", "))
	return labels
}

// Package matrix evaluates the per-platform build matrix.
//
// One evaluation enumerates the target platforms, fingerprints the source
// tree once, and runs an independent pipeline per platform: resolve the
// pinned toolchain, build (or fetch) the cached dependency artifact, then
// build the package and run the check set concurrently against it. The
// results are aggregated into one exported record per platform plus a
// platform-independent overlay exposing the built app.
//
// Failure policy is explicit: soft mode excludes a failed platform from
// the outputs and records why; strict mode aborts the whole run on the
// first platform failure. Either way every enumerated platform is
// accounted for; a silently missing platform is an invariant violation.
//
// Example usage:
//
//	outputs, err := matrix.Evaluate(ctx, eng, m, matrix.Options{
//	    Output: "dist",
//	    Jobs:   4,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := outputs.Err(); err != nil {
//	    return err
//	}
package matrix

// Package engine sequences the image merge pipeline.
//
// An Engine takes an ordered list of encoded images and merge Options and
// runs them through decoding, orientation normalization, optional overlap
// removal, scaling, compositing and PNG encoding. A call either returns a
// complete Result or an *Error; partial output is never produced.
//
// # Pipeline
//
//	Idle → Decoding → Normalizing → [DetectingOverlap] → Scaling
//	     → Compositing → Encoding → Done
//
// Any stage may move the run to Failed, which aborts the remaining stages.
// DetectingOverlap only runs for DirectionSmart.
//
// # Concurrency
//
// An Engine holds no per-call state and is safe for concurrent use. Within
// one call, per-image work (decode, normalize, resize) is spread over a
// bounded worker pool. When several images fail, the error for the lowest
// index is reported, so results do not depend on scheduling.
//
// # Errors
//
// Failures are reported as *Error values carrying a Kind, the stage that
// failed and, when known, the index and name of the offending input:
//
//	res, err := eng.Merge(inputs, opts)
//	var mergeErr *engine.Error
//	if errors.As(err, &mergeErr) {
//	    fmt.Println(mergeErr.Code(), mergeErr.FileIndex)
//	}
package engine

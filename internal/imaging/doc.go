// Package imaging implements the pixel pipeline behind image merging.
//
// The package turns raw image bytes into rasters, normalizes their EXIF
// orientation, finds content duplicated between adjacent captures, rescales
// rasters to a shared dimension, composites them onto one canvas and encodes
// the result as PNG. Every stage is a pure function of its inputs: the same
// bytes and parameters always produce the same pixels.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Rectangles follow the
// image.Rectangle convention: Min is inclusive, Max is exclusive.
//
// # Axes
//
// Operations that stack or trim images take an Axis:
//   - Vertical: images are stacked top to bottom; the extent along the axis
//     is the height and the cross extent is the width.
//   - Horizontal: images are stacked left to right; the extent along the axis
//     is the width and the cross extent is the height.
//
// # Pixel Representation
//
// Decoded rasters are always *image.NRGBA (8 bits per channel, alpha not
// premultiplied). Alpha is only resolved at composite time, where every
// pixel is flattened against the merge background.
//
// # Determinism
//
// Dimension rounding, overlap scoring, chrome detection and alpha flattening
// use integer arithmetic only. Resampling uses a single fixed Lanczos kernel.
//
// # Thread Safety
//
// Functions in this package hold no shared state and may be called
// concurrently on different rasters.
package imaging

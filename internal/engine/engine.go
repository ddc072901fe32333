package engine

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/ironsheep/image-merge-mcp/internal/imaging"
	"github.com/ironsheep/image-merge-mcp/internal/logging"
)

// Input is one encoded image in merge order.
type Input struct {
	Data []byte
	Name string // optional, reported in errors
}

// Result is a successful merge.
type Result struct {
	Data   []byte
	Width  int
	Height int
	MIME   string
	// PixelDigest is the hex BLAKE3 digest of the canvas dimensions and
	// pixels. Identical merges produce identical digests even when the
	// encoded bytes differ.
	PixelDigest string
	// Overlaps holds the trim applied to each image after the first in a
	// smart merge.
	Overlaps []imaging.OverlapResult
	// Chrome holds the header and footer trims of a smart merge.
	Chrome   []imaging.ChromeTrim
	Stages   []Stage
	Duration time.Duration
}

// Config configures an Engine.
type Config struct {
	// Workers bounds per-image parallelism within one merge. Zero means
	// runtime.NumCPU().
	Workers int
}

// Engine runs merges. It is safe for concurrent use.
type Engine struct {
	workers int
}

// New creates an Engine.
func New(cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers}
}

// Workers returns the per-merge worker bound.
func (e *Engine) Workers() int {
	return e.workers
}

// Merge decodes inputs, stacks them according to opts and returns the
// encoded PNG.
//
// Fewer than MinInputs inputs fail with KindNoImages before anything is
// decoded. The first failing input (by index) determines the error for
// decode failures. Merges whose canvas would exceed opts.MaxOutputPixels
// fail with KindOutputTooLarge before any scaling or canvas allocation.
// Panics inside the pipeline are reported as KindInternal.
func (e *Engine) Merge(inputs []Input, opts Options) (res *Result, err error) {
	opts = opts.normalized()
	r := newRun(len(inputs), opts)
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = r.fail(&Error{Kind: KindInternal, Message: fmt.Sprintf("panic: %v", p), FileIndex: NoFile})
		}
	}()

	if len(inputs) < MinInputs {
		return nil, r.fail(&Error{
			Kind:      KindNoImages,
			Message:   fmt.Sprintf("at least %d images are required, got %d", MinInputs, len(inputs)),
			FileIndex: NoFile,
		})
	}

	r.advance(StageDecoding)
	rasters := make([]*imaging.Raster, len(inputs))
	err = e.forEach(len(inputs), func(i int) error {
		raster, err := imaging.Decode(inputs[i].Data)
		if err != nil {
			return decodeError(i, inputs[i].Name, err)
		}
		rasters[i] = raster
		return nil
	})
	if err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageNormalizing)
	layers := make([]*image.NRGBA, len(rasters))
	err = e.forEach(len(rasters), func(i int) error {
		layers[i] = imaging.Normalize(rasters[i]).Image
		rasters[i] = nil
		return nil
	})
	if err != nil {
		return nil, r.fail(err)
	}

	result := &Result{MIME: imaging.MIMEType}
	axis := opts.Direction.Axis()
	if opts.Direction == DirectionSmart {
		r.advance(StageDetectingOverlap)
		layers, err = e.removeOverlaps(r, layers, opts, result)
		if err != nil {
			return nil, r.fail(err)
		}
	}

	r.advance(StageScaling)
	sizes := make([]image.Point, len(layers))
	for i, l := range layers {
		sizes[i] = l.Bounds().Size()
	}
	target := imaging.TargetDimension(sizes, axis)
	scaled := make([]image.Point, len(sizes))
	for i, s := range sizes {
		scaled[i] = imaging.ScaledSize(s, target, axis)
	}
	if err := checkOutputSize(scaled, axis, opts.MaxOutputPixels); err != nil {
		return nil, r.fail(err)
	}
	err = e.forEach(len(layers), func(i int) error {
		layers[i] = imaging.Resize(layers[i], scaled[i])
		return nil
	})
	if err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageCompositing)
	canvas := imaging.Composite(layers, axis, opts.Background)

	r.advance(StageEncoding)
	data, err := imaging.EncodePNG(canvas, opts.CompressionLevel)
	if err != nil {
		return nil, r.fail(&Error{Kind: KindInternal, Message: err.Error(), FileIndex: NoFile, Err: err})
	}

	r.advance(StageDone)
	size := canvas.Bounds().Size()
	result.Data = data
	result.Width = size.X
	result.Height = size.Y
	result.PixelDigest = PixelDigest(canvas)
	result.Stages = r.history
	result.Duration = time.Since(r.started)
	logging.Info("merge %d: %d images -> %dx%d (%d bytes) in %s",
		r.id, len(inputs), size.X, size.Y, len(data), result.Duration)
	return result, nil
}

// removeOverlaps strips shared chrome and trims each image's leading edge
// by the content it repeats from its predecessor.
func (e *Engine) removeOverlaps(r *run, layers []*image.NRGBA, opts Options, result *Result) ([]*image.NRGBA, error) {
	axis := opts.Direction.Axis()

	if opts.StripChrome {
		images := make([]image.Image, len(layers))
		for i, l := range layers {
			images[i] = l
		}
		trims := imaging.ChromeTrims(images)
		for i, t := range trims {
			if t.Top == 0 && t.Bottom == 0 {
				continue
			}
			cropped, err := imaging.CropEdges(layers[i], axis, t.Top, t.Bottom)
			if err != nil {
				return nil, &Error{Kind: KindInternal, Message: err.Error(), FileIndex: i, Err: err}
			}
			layers[i] = cropped
		}
		result.Chrome = trims
	}

	result.Overlaps = make([]imaging.OverlapResult, 0, len(layers)-1)
	for i := 1; i < len(layers); i++ {
		ov := imaging.DetectOverlap(layers[i-1], layers[i], axis, opts.OverlapSensitivity)
		result.Overlaps = append(result.Overlaps, ov)
		logging.Debug("merge %d: overlap %d/%d trim=%d score=%d threshold=%d",
			r.id, i-1, i, ov.Trim, ov.Score, ov.Threshold)
		if ov.Trim == 0 {
			continue
		}
		cropped, err := imaging.CropEdges(layers[i], axis, ov.Trim, 0)
		if err != nil {
			return nil, &Error{Kind: KindInternal, Message: err.Error(), FileIndex: i, Err: err}
		}
		layers[i] = cropped
	}
	return layers, nil
}

// checkOutputSize rejects canvases over limit pixels.
func checkOutputSize(sizes []image.Point, axis imaging.Axis, limit int64) error {
	if limit <= 0 {
		return nil
	}
	pixels := imaging.CanvasPixels(sizes, axis)
	if pixels <= limit {
		return nil
	}
	size := imaging.CanvasSize(sizes, axis)
	return &Error{
		Kind:      KindOutputTooLarge,
		Message:   fmt.Sprintf("merged image would be %dx%d (%d pixels), limit is %d", size.X, size.Y, pixels, limit),
		FileIndex: NoFile,
	}
}

// forEach runs fn for 0..n-1 on the worker pool and returns the error of
// the lowest failing index. A panic in fn is reported as an internal error
// for that index.
func (e *Engine) forEach(n int, fn func(i int) error) error {
	errs := make([]error, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = safeCall(i, fn)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func safeCall(i int, fn func(i int) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Kind: KindInternal, Message: fmt.Sprintf("panic: %v", p), FileIndex: i}
		}
	}()
	return fn(i)
}

// PixelDigest returns the hex BLAKE3 digest of img's dimensions and pixel
// values.
func PixelDigest(img *image.NRGBA) string {
	b := img.Bounds()
	h := blake3.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Dy()))
	_, _ = h.Write(dims[:])
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		_, _ = h.Write(img.Pix[off : off+4*b.Dx()])
	}
	return hex.EncodeToString(h.Sum(nil))
}

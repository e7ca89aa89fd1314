package gpucore

// Target is a presentable render target together with every GPU resource
// the frame render operation reads: surface, device, queue, pipeline,
// geometry, frame texture and threshold uniform.
//
// A Target is not safe for concurrent use. The engine serializes all calls
// under its state lock. Implementations must not block on GPU completion
// in any method; submission and presentation are fire-and-forget.
type Target interface {
	// Configure reconfigures the surface. cfg.Size is already clamped.
	Configure(cfg SurfaceConfig) error

	// Config returns the current surface configuration.
	Config() SurfaceConfig

	// TextureSize returns the frame texture dimensions fixed at construction.
	TextureSize() Size

	// UploadFrame replaces the frame texture contents.
	// img must match TextureSize exactly.
	UploadFrame(img *Image) error

	// WriteThresholds writes the threshold uniform block.
	WriteThresholds(t Thresholds) error

	// Present acquires the next surface frame, records one pass that clears
	// to transparent and draws the quad, then submits and presents.
	Present() error

	// Release frees all GPU resources. The target is unusable afterwards.
	Release()
}

package processors

import (
	"context"
	"fmt"

	"github.com/cvdesk/taskq/job"
)

// ImagePayload describes a candidate photo transformation.
type ImagePayload struct {
	Path   string `json:"path"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ImageTransformer performs the actual image work. Implementations wrap
// whatever imaging backend the deployment uses.
type ImageTransformer interface {
	// Resize scales the image at path to the given bounds and returns
	// the path of the resized copy.
	Resize(ctx context.Context, path string, width, height int) (string, error)

	// Optimize recompresses the image at path and returns the path of
	// the optimized copy.
	Optimize(ctx context.Context, path string) (string, error)
}

// ImageResize returns the processor for candidate photo resizing.
func ImageResize(tr ImageTransformer) *job.Definition[ImagePayload] {
	return job.NewDefinition(job.TypeImageResize,
		func(ctx context.Context, p ImagePayload) (any, error) {
			out, err := tr.Resize(ctx, p.Path, p.Width, p.Height)
			if err != nil {
				return nil, fmt.Errorf("processors: resize %s: %w", p.Path, err)
			}
			return map[string]any{"path": out}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}

// ImageOptimize returns the processor for candidate photo optimization.
func ImageOptimize(tr ImageTransformer) *job.Definition[ImagePayload] {
	return job.NewDefinition(job.TypeImageOptimize,
		func(ctx context.Context, p ImagePayload) (any, error) {
			out, err := tr.Optimize(ctx, p.Path)
			if err != nil {
				return nil, fmt.Errorf("processors: optimize %s: %w", p.Path, err)
			}
			return map[string]any{"path": out}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}

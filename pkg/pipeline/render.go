package pipeline

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/matzehuels/lineage/pkg/config"
	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
	pkgio "github.com/matzehuels/lineage/pkg/io"
	"github.com/matzehuels/lineage/pkg/observability"
	lrender "github.com/matzehuels/lineage/pkg/render"
	"github.com/matzehuels/lineage/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats.
// The DOT source is built once and shared by the graphical formats.
func Render(ctx context.Context, g *family.Graph, meta pkgio.Meta, formats []string, opts nodelink.Options) (map[string][]byte, error) {
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, formats)

	artifacts, err := render(ctx, g, meta, formats, opts)
	observability.Pipeline().OnRenderComplete(ctx, formats, time.Since(start), err)
	return artifacts, err
}

func render(ctx context.Context, g *family.Graph, meta pkgio.Meta, formats []string, opts nodelink.Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(g, opts)
	artifacts := make(map[string][]byte, len(formats))

	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case config.FormatDOT:
			data = []byte(dot)
		case config.FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		case config.FormatPNG:
			data, err = nodelink.RenderPNG(ctx, dot)
		case config.FormatPDF:
			data, err = nodelink.RenderPDF(ctx, dot)
		case config.FormatJSON:
			var buf bytes.Buffer
			err = pkgio.WriteJSON(g, meta, &buf)
			data = buf.Bytes()
		default:
			return nil, errs.New(errs.ErrCodeUnsupported, "unsupported format: %s", format)
		}

		if errors.Is(err, lrender.ErrConverterMissing) {
			return nil, errs.Wrap(errs.ErrCodeUnsupported, err, "render %s", format)
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func isCacheable(format string) bool {
	return format != config.FormatJSON
}

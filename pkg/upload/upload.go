// Package upload infers multipart upload shapes for controller methods and
// extracts the accepted files before the method runs.
package upload

import (
	"fmt"

	"go.uber.org/zap"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
)

// FilesKey is the context key the accepted files are stored under
const FilesKey = "axon.files"

// Field accepts files for a single form field. A zero MaxCount accepts one
// file; a positive MaxCount accepts up to that many.
type Field struct {
	Name     string
	MaxCount int
}

// None accepts text fields only
type None struct{}

// Any accepts files in any field
type Any struct{}

// Options limits what the parser accepts
type Options struct {
	MaxFileSize int64
	MaxFiles    int
	// Filter drops files it returns false for
	Filter func(axon.FileHeader) bool
}

// Infer derives the upload mode from the shape of options
func Infer(options interface{}) (metadata.UploadMetadata, error) {
	switch o := options.(type) {
	case Field:
		return inferField(o, options)
	case *Field:
		if o == nil {
			break
		}
		return inferField(*o, options)
	case []Field:
		if len(o) == 0 {
			break
		}
		fields := make([]metadata.UploadField, len(o))
		for i, f := range o {
			if f.Name == "" {
				return metadata.UploadMetadata{}, axonerrors.InvalidUploadOptions(options)
			}
			fields[i] = metadata.UploadField{Name: f.Name, MaxCount: f.MaxCount}
		}
		return metadata.UploadMetadata{Mode: metadata.UploadFields, Fields: fields}, nil
	case None, *None:
		return metadata.UploadMetadata{Mode: metadata.UploadNone}, nil
	case Any, *Any:
		return metadata.UploadMetadata{Mode: metadata.UploadAny}, nil
	}
	return metadata.UploadMetadata{}, axonerrors.InvalidUploadOptions(options)
}

func inferField(f Field, options interface{}) (metadata.UploadMetadata, error) {
	if f.Name == "" {
		return metadata.UploadMetadata{}, axonerrors.InvalidUploadOptions(options)
	}
	field := []metadata.UploadField{{Name: f.Name, MaxCount: f.MaxCount}}
	if f.MaxCount > 0 {
		return metadata.UploadMetadata{Mode: metadata.UploadArray, Fields: field}, nil
	}
	field[0].MaxCount = 1
	return metadata.UploadMetadata{Mode: metadata.UploadSingle, Fields: field}, nil
}

// Parser extracts the files an upload accepts from a request
type Parser interface {
	Parse(ctx axon.RequestContext, meta metadata.UploadMetadata, opts Options) (map[string][]axon.FileHeader, error)
}

// ParserFunc adapts a function to Parser
type ParserFunc func(ctx axon.RequestContext, meta metadata.UploadMetadata, opts Options) (map[string][]axon.FileHeader, error)

// Parse calls f
func (f ParserFunc) Parse(ctx axon.RequestContext, meta metadata.UploadMetadata, opts Options) (map[string][]axon.FileHeader, error) {
	return f(ctx, meta, opts)
}

// MultipartParser reads files through the web framework's multipart support
type MultipartParser struct{}

// Parse implements Parser
func (MultipartParser) Parse(ctx axon.RequestContext, meta metadata.UploadMetadata, opts Options) (map[string][]axon.FileHeader, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, err
	}

	limits := make(map[string]int, len(meta.Fields))
	for _, f := range meta.Fields {
		limits[f.Name] = f.MaxCount
	}

	accepted := make(map[string][]axon.FileHeader)
	total := 0
	for field, files := range form.File() {
		if len(files) == 0 {
			continue
		}
		switch meta.Mode {
		case metadata.UploadNone:
			return nil, fmt.Errorf("unexpected file field %q", field)
		case metadata.UploadAny:
		default:
			limit, ok := limits[field]
			if !ok {
				return nil, fmt.Errorf("unexpected file field %q", field)
			}
			if limit > 0 && len(files) > limit {
				return nil, fmt.Errorf("too many files for field %q: %d > %d", field, len(files), limit)
			}
		}

		for _, fh := range files {
			if opts.MaxFileSize > 0 && fh.Size() > opts.MaxFileSize {
				return nil, fmt.Errorf("file %q exceeds %d bytes", fh.Filename(), opts.MaxFileSize)
			}
			if opts.Filter != nil && !opts.Filter(fh) {
				continue
			}
			total++
			if opts.MaxFiles > 0 && total > opts.MaxFiles {
				return nil, fmt.Errorf("too many files: limit is %d", opts.MaxFiles)
			}
			accepted[field] = append(accepted[field], fh)
		}
	}
	return accepted, nil
}

// Middleware parses uploads before calling next. A failed parse answers
// 400 with an error payload and next is not invoked. A nil parser logs a
// warning and the middleware passes requests through untouched.
func Middleware(meta metadata.UploadMetadata, parser Parser, opts Options, logger *zap.Logger) axon.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		logger.Warn("no multipart parser configured, file uploads are disabled",
			zap.String("mode", string(meta.Mode)))
		return func(next axon.HandlerFunc) axon.HandlerFunc { return next }
	}

	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			files, err := parser.Parse(ctx, meta, opts)
			if err != nil {
				uerr := axonerrors.UploadFailed(err)
				logger.Debug("upload rejected", zap.Error(err), zap.String("path", ctx.Path()))
				return ctx.Response().JSON(axon.ErrorStatus(uerr), map[string]interface{}{
					"error":   uerr.Message,
					"details": err.Error(),
				})
			}
			ctx.Set(FilesKey, files)
			return next(ctx)
		}
	}
}

// Wrap runs handler behind the upload middleware
func Wrap(meta metadata.UploadMetadata, parser Parser, opts Options, logger *zap.Logger, handler axon.HandlerFunc) axon.HandlerFunc {
	return Middleware(meta, parser, opts, logger)(handler)
}

// Files returns the files accepted for the current request
func Files(ctx axon.RequestContext) map[string][]axon.FileHeader {
	if files, ok := ctx.Get(FilesKey).(map[string][]axon.FileHeader); ok {
		return files
	}
	return nil
}

// File returns the first accepted file of a field
func File(ctx axon.RequestContext, field string) axon.FileHeader {
	if files := Files(ctx)[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

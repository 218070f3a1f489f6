package ocr

import "context"

// RequestMeta travels with the context into outgoing provider requests so
// the OCR service can correlate pages with documents.
type RequestMeta struct {
	DocumentID string
	FileName   string
	PageNumber int
}

type requestMetaKey struct{}

// WithRequestMeta merges add into the meta already on ctx. Zero values do
// not overwrite existing values.
func WithRequestMeta(ctx context.Context, add RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	cur := RequestMetaFromContext(ctx)
	if add.DocumentID != "" {
		cur.DocumentID = add.DocumentID
	}
	if add.FileName != "" {
		cur.FileName = add.FileName
	}
	if add.PageNumber != 0 {
		cur.PageNumber = add.PageNumber
	}
	return context.WithValue(ctx, requestMetaKey{}, cur)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}

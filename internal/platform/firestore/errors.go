package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
)

// WrapError maps gRPC status codes onto docstore error kinds. Context cancellations pass through.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var docErr *docstore.Error
	if errors.As(err, &docErr) {
		return err
	}

	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		return docstore.NewError(op, docstore.KindNotFound, err)
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return docstore.NewError(op, docstore.KindConflict, err)
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		return docstore.NewError(op, docstore.KindUnavailable, err)
	}
	return docstore.NewError(op, docstore.KindUnknown, err)
}

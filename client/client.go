package client

import (
	"context"

	"github.com/ledgerlift/erp-migrator/types"
)

type ISourceReader interface {
	GetAll(ctx context.Context, docType types.SourceDocType) ([]types.Record, error)
	Get(ctx context.Context, docType types.SourceDocType, id string) (types.Record, error)
	Search(ctx context.Context, docType types.SourceDocType, filters []types.Filter) ([]types.Record, error)
}

type ITargetWriter interface {
	GetAll(ctx context.Context, docType types.TargetDocType) ([]types.Payload, error)
	Get(ctx context.Context, docType types.TargetDocType, name string) (types.Payload, error)
	Create(ctx context.Context, docType types.TargetDocType, payload types.Payload) (types.Payload, error)
	Update(ctx context.Context, docType types.TargetDocType, name string, payload types.Payload) (types.Payload, error)
	Delete(ctx context.Context, docType types.TargetDocType, name string) error
	Search(ctx context.Context, docType types.TargetDocType, filters []types.Filter) ([]types.Payload, error)
	CreateLink(ctx context.Context, parentType types.TargetDocType, parentName string, childType types.TargetDocType, childName string) (types.Payload, error)
	UploadFile(ctx context.Context, docType types.TargetDocType, name string, filePath string) (types.Payload, error)
}

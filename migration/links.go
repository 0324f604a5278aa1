package migration

import (
	"context"
	"fmt"
	"sort"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

// ResolveLinks returns a copy of payload in which every LinkedPayload value,
// including those in nested payloads, is replaced by the name of the target
// document it refers to. Missing documents are created; existing ones are
// updated only when UpdateExisting is set. payload itself is not modified.
func ResolveLinks(ctx context.Context, writer client.ITargetWriter, payload types.Payload) (types.Payload, error) {
	resolved := payload.Clone()

	keys := make([]string, 0, len(resolved))
	for key := range resolved {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := resolved[key].(type) {
		case types.LinkedPayload:
			name, err := resolveLink(ctx, writer, value)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", key, err)
			}
			resolved[key] = name
		case *types.LinkedPayload:
			if value == nil {
				continue
			}
			name, err := resolveLink(ctx, writer, *value)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", key, err)
			}
			resolved[key] = name
		case types.Payload:
			nested, err := ResolveLinks(ctx, writer, value)
			if err != nil {
				return nil, err
			}
			resolved[key] = nested
		case map[string]any:
			nested, err := ResolveLinks(ctx, writer, types.Payload(value))
			if err != nil {
				return nil, err
			}
			resolved[key] = nested
		}
	}
	return resolved, nil
}

func resolveLink(ctx context.Context, writer client.ITargetWriter, link types.LinkedPayload) (string, error) {
	existing, err := writer.Get(ctx, link.DocType, link.Name)
	switch {
	case client.IsNotFound(err):
		fields := link.Fields.Clone()
		if _, ok := fields["name"]; !ok {
			fields["name"] = link.Name
		}
		created, err := writer.Create(ctx, link.DocType, fields)
		if err != nil {
			return "", err
		}
		return nameOr(created, link.Name), nil
	case err != nil:
		return "", err
	case link.UpdateExisting:
		updated, err := writer.Update(ctx, link.DocType, link.Name, link.Fields)
		if err != nil {
			return "", err
		}
		return nameOr(updated, link.Name), nil
	default:
		return nameOr(existing, link.Name), nil
	}
}

func nameOr(payload types.Payload, fallback string) string {
	if name := payload.Name(); name != "" {
		return name
	}
	return fallback
}

package cachestore

import (
	"maps"
	"time"

	"github.com/c360/objectgateway/types"
)

// Document flattens a record into its read-optimized mirror form: the
// attribute payload at the top level, embedded sub-objects gathered under
// an embedded section with their ids denormalized onto the owning
// attribute, and bookkeeping under _self. The record id doubles as the
// document key.
func Document(rec *types.Record) map[string]any {
	doc := make(map[string]any, len(rec.Attributes)+3)
	for key, value := range rec.Attributes {
		doc[key] = value
	}

	if len(rec.Embedded) > 0 {
		embedded := make(map[string]any, len(rec.Embedded))
		for attr, obj := range rec.Embedded {
			emb := maps.Clone(obj)
			if id, ok := emb["_id"]; ok {
				if _, has := emb["id"]; !has {
					emb["id"] = id
				}
				delete(emb, "_id")
			}
			embedded[attr] = emb
			if id, ok := emb["id"]; ok {
				doc[attr] = id
			}
		}
		doc["embedded"] = embedded
	}

	doc["_id"] = rec.ID
	doc["id"] = rec.ID
	doc["_self"] = selfMetadata(rec)
	return doc
}

// selfMetadata builds the _self block mirrored alongside every document.
func selfMetadata(rec *types.Record) map[string]any {
	self := map[string]any{
		"id": rec.ID,
		"schema": map[string]any{
			"id":  rec.SchemaID,
			"ref": rec.SchemaRef,
		},
		"dateCreated":  rec.CreatedAt.UTC().Format(time.RFC3339),
		"dateModified": rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rec.Owner != "" {
		self["owner"] = rec.Owner
	}
	if !rec.DateRead.IsZero() {
		self["dateRead"] = rec.DateRead.UTC().Format(time.RFC3339)
	} else {
		self["dateRead"] = nil
	}
	return self
}

// WithoutMetadata returns a copy of the document with the store key and
// _self block removed. Responses carry metadata only when the caller asks
// for it with _extend[_self].
func WithoutMetadata(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := maps.Clone(doc)
	delete(out, "_id")
	delete(out, "_self")
	return out
}

// Package identifier implements the group:name asset key and the
// <content-type>://group:name resource URI built on top of it.
package identifier

import "strings"

const (
	separator    = ":"
	schemeMarker = "://"
)

// contentKind is one row of the content-type table.
// Scoped kinds live under a folder named after the content type,
// so their index keys carry that folder as a name prefix.
type contentKind struct {
	contentType string
	prefix      string
	scoped      bool
}

// kinds is the single source of truth for resource schemes.
// Adding an asset kind means adding a row here.
var kinds = []contentKind{
	{contentType: "textures", prefix: "texture", scoped: true},
	{contentType: "fonts", prefix: "font", scoped: true},
	{contentType: "gamemodes", prefix: "gamemode", scoped: true},
	{contentType: "json"},
}

// Identifier addresses an asset independent of its physical location.
// The zero value is invalid.
type Identifier struct {
	group       string
	name        string
	contentType string
	valid       bool
}

// FromValues builds an identifier from an explicit group and name.
func FromValues(group, name string) Identifier {
	if group == "" || name == "" {
		return Identifier{}
	}
	return Identifier{group: group, name: name, valid: true}
}

// FromString parses "group:name", splitting on the first separator.
func FromString(s string) Identifier {
	group, name, ok := strings.Cut(s, separator)
	if !ok {
		return Identifier{}
	}
	return FromValues(group, name)
}

// ForResource parses "<scheme>://group:name". The scheme may be either a
// registered prefix ("texture") or a content type ("textures").
func ForResource(uri string) Identifier {
	scheme, rest, ok := strings.Cut(uri, schemeMarker)
	if !ok || scheme == "" {
		return Identifier{}
	}

	contentType, ok := ContentTypeForPrefix(scheme)
	if !ok {
		if _, known := lookupType(scheme); !known {
			return Identifier{}
		}
		contentType = scheme
	}

	id := FromString(rest)
	if !id.valid {
		return Identifier{}
	}
	id.contentType = contentType
	return id
}

// ContentTypeForPrefix maps a resource prefix to its content type.
func ContentTypeForPrefix(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	for _, k := range kinds {
		if k.prefix == prefix {
			return k.contentType, true
		}
	}
	return "", false
}

// PrefixForContentType maps a content type to its resource prefix.
// Unprefixed content types report ok with an empty prefix.
func PrefixForContentType(contentType string) (string, bool) {
	k, ok := lookupType(contentType)
	return k.prefix, ok
}

// ContentTypes lists every registered content type in table order.
func ContentTypes() []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.contentType)
	}
	return out
}

// ResourcePrefixes lists every non-empty resource prefix in table order.
func ResourcePrefixes() []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k.prefix != "" {
			out = append(out, k.prefix)
		}
	}
	return out
}

func lookupType(contentType string) (contentKind, bool) {
	for _, k := range kinds {
		if k.contentType == contentType {
			return k, true
		}
	}
	return contentKind{}, false
}

func (id Identifier) Group() string       { return id.group }
func (id Identifier) Name() string        { return id.name }
func (id Identifier) Valid() bool         { return id.valid }
func (id Identifier) ContentType() string { return id.contentType }

// ContentPrefix returns the resource prefix of the identifier's content type.
func (id Identifier) ContentPrefix() string {
	prefix, _ := PrefixForContentType(id.contentType)
	return prefix
}

// IsTexture reports whether the identifier was parsed from a texture URI.
func (id Identifier) IsTexture() bool {
	return id.contentType == "textures"
}

// ContentIdentifier returns the key under which the indexer registers
// assets of this identifier's content type. For scoped types that is
// group:<content-type>/name, otherwise the identifier itself.
func (id Identifier) ContentIdentifier() Identifier {
	if !id.valid {
		return Identifier{}
	}
	k, ok := lookupType(id.contentType)
	if !ok || !k.scoped {
		return id
	}
	scoped := FromValues(id.group, k.contentType+"/"+id.name)
	scoped.contentType = id.contentType
	return scoped
}

// String returns the canonical group:name form used as the index key.
func (id Identifier) String() string {
	if !id.valid {
		return ""
	}
	return id.group + separator + id.name
}

// ResourceID returns the <content-type>://group:name URI form.
func (id Identifier) ResourceID() string {
	if !id.valid || id.contentType == "" {
		return ""
	}
	return id.contentType + schemeMarker + id.String()
}

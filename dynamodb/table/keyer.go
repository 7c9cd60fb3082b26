package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrMissingKeyField is returned by keyers when a field they read is absent.
var ErrMissingKeyField = errors.New("missing key field")

type Keyer interface {
	Key(doc map[string]types.AttributeValue) (types.AttributeValue, error)
}

// CopyKeyer uses the value of a single document field as the key.
// Nested fields use dot notation, e.g. "meta.version".
func CopyKeyer(key string) *copyKey {
	return &copyKey{key}
}

type copyKey struct {
	key string
}

func (k copyKey) Key(doc map[string]types.AttributeValue) (types.AttributeValue, error) {
	v, found := lookup(doc, k.key)
	if !found {
		return nil, fmt.Errorf("%w %q", ErrMissingKeyField, k.key)
	}
	return v, nil
}

// JoinKeyer builds a string key by joining the values of `keys` with sep, in
// the order given. Every key must be present and be a string, number or bytes.
func JoinKeyer(sep string, keys ...string) *joinKey {
	return &joinKey{sep, keys}
}

type joinKey struct {
	sep  string
	keys []string
}

func (k joinKey) Key(doc map[string]types.AttributeValue) (types.AttributeValue, error) {
	parts := make([]string, len(k.keys))
	for i, key := range k.keys {
		v, found := lookup(doc, key)
		if !found {
			return nil, fmt.Errorf("%w %q", ErrMissingKeyField, key)
		}
		s, err := keyString(key, v)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	return &types.AttributeValueMemberS{Value: strings.Join(parts, k.sep)}, nil
}

func keyString(key string, v types.AttributeValue) (string, error) {
	switch attr := v.(type) {
	case *types.AttributeValueMemberS:
		return attr.Value, nil
	case *types.AttributeValueMemberN:
		return attr.Value, nil
	case *types.AttributeValueMemberB:
		return string(attr.Value), nil
	default:
		return "", fmt.Errorf("type for key %q is not string, number, or bytes, got %T", key, v)
	}
}

func lookup(doc map[string]types.AttributeValue, path string) (types.AttributeValue, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := doc[head]
	if !ok {
		// attribute names may contain dots themselves
		v, ok = doc[path]
		return v, ok
	}
	if !nested {
		return v, true
	}
	m, ok := v.(*types.AttributeValueMemberM)
	if !ok {
		return nil, false
	}
	return lookup(m.Value, rest)
}

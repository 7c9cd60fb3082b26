// Package naming derives the generated names of query fields, indexes,
// composite key attributes and the input types that belong to them.
package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gertd/go-pluralize"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
)

var plural = pluralize.NewClient()

// Plural pluralizes a model name, keeping its leading case.
func Plural(name string) string {
	return plural.Plural(name)
}

func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// KeyFragment is the "By<Partition>And<Sort>..." part of a generated name.
func KeyFragment(partition string, sortFields []string) string {
	var b strings.Builder
	b.WriteString("By")
	b.WriteString(UpperFirst(partition))
	b.WriteString(SortFragment(sortFields))
	return b.String()
}

// SortFragment joins sort fields with "And", e.g. "AndPriorityAndSeverity".
func SortFragment(sortFields []string) string {
	var b strings.Builder
	for _, f := range sortFields {
		b.WriteString("And")
		b.WriteString(UpperFirst(f))
	}
	return b.String()
}

// QueryName is the generated query field name for an index, e.g.
// QueryName("Moss", "treeId", nil) == "mossesByTreeId". The same name is used
// when an index has no explicit name.
func QueryName(model, partition string, sortFields []string) string {
	return LowerFirst(Plural(model)) + KeyFragment(partition, sortFields)
}

// CompositeSeparator joins composite sort key fields and values.
const CompositeSeparator = keycond.Separator

// CompositeAttribute is the physical attribute name of a composite sort key.
func CompositeAttribute(sortFields []string) string {
	return keycond.AttributeName(sortFields)
}

// CompositeArgument is the camel-cased name under which a composite sort key
// is exposed as a query argument, e.g. ["priority","severity"] -> "prioritySeverity".
func CompositeArgument(sortFields []string) string {
	var b strings.Builder
	for i, f := range sortFields {
		if i == 0 {
			b.WriteString(f)
			continue
		}
		b.WriteString(UpperFirst(f))
	}
	return b.String()
}

// SortKeyArgument is the query argument holding a sort key condition.
func SortKeyArgument(sortFields []string) string {
	if len(sortFields) == 1 {
		return sortFields[0]
	}
	return CompositeArgument(sortFields)
}

// TypeNamespace prefixes the composite key input types of one index:
// Model{Model}{Index}. The primary key uses "Primary".
func TypeNamespace(model, indexName string) string {
	if indexName == "" {
		return model + "Primary"
	}
	var b strings.Builder
	b.WriteString(model)
	for _, part := range strings.FieldsFunc(indexName, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		b.WriteString(UpperFirst(part))
	}
	return b.String()
}

func CompositeKeyInput(model, indexName string) string {
	return "Model" + TypeNamespace(model, indexName) + "CompositeKeyInput"
}

func CompositeKeyConditionInput(model, indexName string) string {
	return "Model" + TypeNamespace(model, indexName) + "CompositeKeyConditionInput"
}

// KeyConditionInput is the shared condition input for a single sort key of
// the given base scalar.
func KeyConditionInput(scalar string) string {
	return "Model" + scalar + "KeyConditionInput"
}

func GetQuery(model string) string       { return "get" + model }
func ListQuery(model string) string      { return "list" + UpperFirst(Plural(model)) }
func SyncQuery(model string) string      { return "sync" + UpperFirst(Plural(model)) }
func CreateMutation(model string) string { return "create" + model }
func UpdateMutation(model string) string { return "update" + model }
func DeleteMutation(model string) string { return "delete" + model }

func CreateInput(model string) string    { return "Create" + model + "Input" }
func UpdateInput(model string) string    { return "Update" + model + "Input" }
func DeleteInput(model string) string    { return "Delete" + model + "Input" }
func ConditionInput(model string) string { return "Model" + model + "ConditionInput" }
func FilterInput(model string) string    { return "Model" + model + "FilterInput" }
func Connection(model string) string     { return "Model" + model + "Connection" }

const SortDirectionEnum = "ModelSortDirection"

var indexNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,255}$`)

// ValidIndexName reports whether name is a legal DynamoDB index name:
// 3 to 255 letters, digits, underscores, hyphens or periods.
func ValidIndexName(name string) bool {
	return indexNamePattern.MatchString(name)
}

package resolvers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
	"github.com/acksell/ddbkeys/gqlindex/deltasync"
)

// Render writes the fragment as an AppSync VTL request template.
func Render(f *Fragment) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## %s\n", f.Name)
	for _, s := range f.Statements {
		if err := vtl.ExecuteTemplate(&buf, string(s.Kind()), s); err != nil {
			return "", fmt.Errorf("rendering %s in %s: %w", s.Kind(), f.Name, err)
		}
	}
	buf.WriteString("{}\n")
	return buf.String(), nil
}

var vtl = template.Must(template.New("vtl").Funcs(vtlFuncs).Parse(vtlTemplates))

var vtlFuncs = template.FuncMap{
	// VTL string literals take comparison operators verbatim
	"json": func(v any) (string, error) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	},
	"errorType": func() string { return ErrorTypeInvalidArguments },
	"msgNoSortKey": func() string {
		return MsgSortDirectionWithoutSortKey
	},
	"msgRequiresArg": func(arg string) string {
		return fmt.Sprintf(MsgSortDirectionRequiresArg, arg)
	},
	// the missing field is interpolated by VTL
	"msgPartialKey": func(index string) string {
		return fmt.Sprintf(MsgPartialCompositeKey, index, "${missing}")
	},
	"ops":       func() []keycond.Op { return keycond.Ops },
	"separator": func() string { return keycond.Separator },
	"opSymbol":  opSymbol,
	"opSymbols": func() map[keycond.Op]string {
		m := make(map[keycond.Op]string)
		for _, op := range keycond.Ops {
			if op != keycond.OpBetween && op != keycond.OpBeginsWith {
				m[op] = opSymbol(op)
			}
		}
		return m
	},
	// physical sort key attribute per index; composites are joined
	"sortKeyNames": func(r deltasync.Routes) map[string]string {
		m := make(map[string]string, len(r.SortFields))
		for index, fields := range r.SortFields {
			if len(fields) > 0 {
				m[index] = keycond.AttributeName(fields)
			}
		}
		return m
	},
	"label": func(index string) string {
		if index == "" {
			return "the primary key"
		}
		return fmt.Sprintf("index %q", index)
	},
}

const vtlTemplates = `
{{- define "RejectSortDirection" -}}
## [Start] Validate sortDirection. **
#if( !$util.isNull($ctx.args.sortDirection) )
  $util.error("{{msgNoSortKey}}", "{{errorType}}")
#end
## [End] Validate sortDirection. **
{{end}}

{{- define "RequireArgForSortDirection" -}}
## [Start] Validate sortDirection. **
#if( !$util.isNull($ctx.args.sortDirection) && $util.isNull($ctx.args.{{.Arg}}) )
  $util.error("{{msgRequiresArg .Arg}}", "{{errorType}}")
#end
## [End] Validate sortDirection. **
{{end}}

{{- define "joinComposite" -}}
    #set( $parts = [] )
    #foreach( $field in {{json .Key.SortKeyFields}} )
      #if( $util.isNull($value[$field]) )
        #break
      #end
      $util.qr($parts.add("$value[$field]"))
    #end
    #set( $sortValue = "" )
    #foreach( $part in $parts )
      #if( $foreach.index > 0 )
        #set( $sortValue = "${sortValue}{{separator}}" )
      #end
      #set( $sortValue = "${sortValue}${part}" )
    #end
    #set( $complete = $parts.size() == {{len .Key.SortKeyFields}} )
{{- end}}

{{- define "SetKeyCondition" -}}
## [Start] Set query expression for {{label .IndexName}}. **
#set( $modelQueryExpression = {} )
{{- if .IndexName}}
$util.qr($ctx.stash.put("indexName", "{{.IndexName}}"))
{{- end}}
#if( !$util.isNull($ctx.args.{{.PartitionArg}}) )
  #set( $modelQueryExpression.expression = "#partitionKey = :partitionKey" )
  #set( $modelQueryExpression.expressionNames = { "#partitionKey": "{{.Key.PartitionKeyName}}" } )
  #set( $modelQueryExpression.expressionValues = { ":partitionKey": $util.dynamodb.toDynamoDB($ctx.args.{{.PartitionArg}}) } )
{{- if .SortArg}}
  #set( $condition = $ctx.args.{{.SortArg}} )
  #if( !$util.isNull($condition) )
    $util.qr($modelQueryExpression.expressionNames.put("#sortKey", "{{.Key.SortKeyName}}"))
{{- $key := .}}
{{- range $op := ops}}
    #if( !$util.isNull($condition.{{$op}}) )
{{- if eq (print $op) "between"}}
      #set( $value = $condition.between[0] )
{{- if $key.Key.IsComposite}}
{{template "joinComposite" $key}}
{{- else}}
      #set( $sortValue = $value )
{{- end}}
      #set( $lower = $sortValue )
      #set( $value = $condition.between[1] )
{{- if $key.Key.IsComposite}}
{{template "joinComposite" $key}}
{{- else}}
      #set( $sortValue = $value )
{{- end}}
      #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND #sortKey BETWEEN :sortKey0 AND :sortKey1" )
      $util.qr($modelQueryExpression.expressionValues.put(":sortKey0", $util.dynamodb.toDynamoDB($lower)))
      $util.qr($modelQueryExpression.expressionValues.put(":sortKey1", $util.dynamodb.toDynamoDB($sortValue)))
{{- else}}
      #set( $value = $condition.{{$op}} )
{{- if $key.Key.IsComposite}}
{{template "joinComposite" $key}}
{{- else}}
      #set( $sortValue = $value )
{{- end}}
{{- if eq (print $op) "beginsWith"}}
      #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND begins_with(#sortKey, :sortKey)" )
{{- else if and (eq (print $op) "eq") $key.Key.IsComposite}}
      #if( $complete )
        #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND #sortKey = :sortKey" )
      #else
        #set( $sortValue = "${sortValue}{{separator}}" )
        #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND begins_with(#sortKey, :sortKey)" )
      #end
{{- else}}
      #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND #sortKey {{opSymbol $op}} :sortKey" )
{{- end}}
      $util.qr($modelQueryExpression.expressionValues.put(":sortKey", $util.dynamodb.toDynamoDB($sortValue)))
{{- end}}
    #end
{{- end}}
  #end
{{- end}}
#end
#if( !$util.isNull($modelQueryExpression.expression) )
  $util.qr($ctx.stash.put("modelQueryExpression", $modelQueryExpression))
#end
#if( $ctx.args.sortDirection == "DESC" )
  $util.qr($ctx.stash.put("scanIndexForward", false))
#end
$util.qr($ctx.stash.put("filter", $util.defaultIfNull($ctx.args.filter, {})))
## [End] Set query expression for {{label .IndexName}}. **
{{end}}

{{- define "SetModelObjectKey" -}}
## [Start] Set the primary key. **
#set( $source = $ctx.{{if eq (print .Source) "input"}}args.input{{else}}args{{end}} )
#set( $modelObjectKey = {} )
$util.qr($modelObjectKey.put("{{.Key.PartitionKeyName}}", $util.dynamodb.toDynamoDB($source.{{.Key.PartitionKeyName}})))
{{- if .Key.IsComposite}}
#set( $value = $source )
{{template "joinComposite" .}}
$util.qr($modelObjectKey.put("{{.Key.SortKeyName}}", $util.dynamodb.toDynamoDB($sortValue)))
{{- else if .Key.HasSortKey}}
$util.qr($modelObjectKey.put("{{.Key.SortKeyName}}", $util.dynamodb.toDynamoDB($source.{{.Key.SortKeyName}})))
{{- end}}
$util.qr($ctx.stash.metadata.put("modelObjectKey", $modelObjectKey))
## [End] Set the primary key. **
{{end}}

{{- define "MergeDefaults" -}}
## [Start] Merge default values. **
#set( $defaultValues = $util.defaultIfNull($ctx.stash.defaultValues, {}) )
{{- range .Fields}}
{{- if eq (print .Value) "autoId"}}
$util.qr($defaultValues.put("{{.Name}}", $util.autoId()))
{{- else}}
$util.qr($defaultValues.put("{{.Name}}", $util.time.nowISO8601()))
{{- end}}
{{- end}}
$util.qr($ctx.stash.put("defaultValues", $defaultValues))
#if( $util.isNull($ctx.stash.clientInput) )
  $util.qr($ctx.stash.put("clientInput", $util.map.copyAndRemoveAllKeys($ctx.args.input, [])))
#end
#set( $mergedValues = {} )
$util.qr($mergedValues.putAll($defaultValues))
$util.qr($mergedValues.putAll($ctx.args.input))
#set( $ctx.args.input = $mergedValues )
## [End] Merge default values. **
{{end}}

{{- define "PopulateCompositeKey" -}}
## [Start] Set the composite key {{.Attribute}}. **
#set( $complete = true )
#foreach( $field in {{json .Fields}} )
  #if( $util.isNull($ctx.args.input[$field]) )
    #set( $complete = false )
  #end
#end
#if( $complete )
  $util.qr($ctx.args.input.put("{{.Attribute}}", "{{range $i, $f := .Fields}}{{if $i}}{{separator}}{{end}}${ctx.args.input.{{$f}}}{{end}}"))
#end
## [End] Set the composite key {{.Attribute}}. **
{{end}}

{{- define "RequireCompositeKey" -}}
## [Start] Validate the composite key of {{.IndexName}}. **
#set( $clientInput = $util.defaultIfNull($ctx.stash.clientInput, $ctx.args.input) )
#set( $supplied = false )
#foreach( $field in {{json .Fields}} )
  #if( $clientInput.containsKey($field) )
    #set( $supplied = true )
  #end
#end
#if( $supplied )
  #foreach( $field in {{json .Fields}} )
    #if( !$clientInput.containsKey($field) )
      #set( $missing = $field )
      $util.error("{{msgPartialKey .IndexName}}", "{{errorType}}")
    #end
  #end
#end
## [End] Validate the composite key of {{.IndexName}}. **
{{end}}

{{- define "SetNameOverrides" -}}
## [Start] Set name overrides. **
$util.qr($ctx.stash.metadata.put("nameOverrides", {{json .Overrides}}))
## [End] Set name overrides. **
{{end}}

{{- define "SetSQLKeyFilter" -}}
## [Start] Set the key filter. **
#set( $source = $ctx.{{if eq (print .Source) "input"}}args.input{{else}}args{{end}} )
#set( $keyFilter = {} )
#foreach( $field in {{json .Fields}} )
  #if( !$util.isNull($source[$field]) )
    $util.qr($keyFilter.put($field, { "eq": $source[$field] }))
  #end
#end
$util.qr($ctx.stash.metadata.put("keyFilter", $keyFilter))
## [End] Set the key filter. **
{{end}}

{{- define "SyncDispatch" -}}
## [Start] Select the sync index. **
#set( $keyIndexes = {{json .Routes.KeyIndexes}} )
#set( $partitionIndexes = {{json .Routes.PartitionIndexes}} )
#set( $sortFields = {{json .Routes.SortFields}} )
#set( $sortKeyNames = {{json (sortKeyNames .Routes)}} )
#set( $operation = "Scan" )
#set( $filter = $util.defaultIfNull($ctx.args.filter, {}) )
#set( $windowMs = {{.WindowMinutes}} * 60 * 1000 )
#set( $fresh = !$util.isNull($ctx.args.lastSync) && ($util.time.nowEpochMilliSeconds() - $ctx.args.lastSync) <= $windowMs )
#if( !$fresh && !$util.isNull($filter.and) && $filter.and.size() >= 2 )
  #set( $first = $filter.and[0] )
  #set( $second = $filter.and[1] )
  #if( $first.keySet().size() == 1 && $second.keySet().size() == 1 )
    #set( $pk = $first.keySet().toArray()[0] )
    #set( $sk = $second.keySet().toArray()[0] )
    #set( $pkOps = $first[$pk] )
    #set( $skOps = $second[$sk] )
    #if( $partitionIndexes.containsKey($pk) && $pkOps.keySet().size() == 1 && !$util.isNull($pkOps.eq) && $keyIndexes.containsKey("${pk}+${sk}") )
      #set( $skOp = "" )
      #set( $skOpCount = 0 )
      #foreach( $op in {{json ops}} )
        #if( !$util.isNull($skOps[$op]) )
          #set( $skOp = $op )
          #set( $skOpCount = $skOpCount + 1 )
        #end
      #end
      #if( $skOpCount != 1 )
        $util.error("sync filter on '${sk}' must use exactly one key condition operator", "{{errorType}}")
      #end
      #set( $operation = "Query" )
      #set( $indexName = $keyIndexes["${pk}+${sk}"] )
      #set( $modelQueryExpression = {} )
      #set( $modelQueryExpression.expression = "#partitionKey = :partitionKey" )
      #set( $modelQueryExpression.expressionNames = { "#partitionKey": $pk } )
      #set( $modelQueryExpression.expressionValues = { ":partitionKey": $util.dynamodb.toDynamoDB($pkOps.eq) } )
      #set( $rest = [] )
      #if( $sortFields[$indexName].size() == 1 )
        $util.qr($modelQueryExpression.expressionNames.put("#sortKey", $sk))
        #if( $skOp == "between" )
          #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND #sortKey BETWEEN :sortKey0 AND :sortKey1" )
          $util.qr($modelQueryExpression.expressionValues.put(":sortKey0", $util.dynamodb.toDynamoDB($skOps.between[0])))
          $util.qr($modelQueryExpression.expressionValues.put(":sortKey1", $util.dynamodb.toDynamoDB($skOps.between[1])))
        #elseif( $skOp == "beginsWith" )
          #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND begins_with(#sortKey, :sortKey)" )
          $util.qr($modelQueryExpression.expressionValues.put(":sortKey", $util.dynamodb.toDynamoDB($skOps.beginsWith)))
        #else
          #set( $symbols = {{json opSymbols}} )
          #set( $symbol = $symbols[$skOp] )
          #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND #sortKey $symbol :sortKey" )
          $util.qr($modelQueryExpression.expressionValues.put(":sortKey", $util.dynamodb.toDynamoDB($skOps[$skOp])))
        #end
      #elseif( $skOp == "eq" )
        ## the clause names the leading field of a composite key
        $util.qr($modelQueryExpression.expressionNames.put("#sortKey", $sortKeyNames[$indexName]))
        #set( $modelQueryExpression.expression = "$modelQueryExpression.expression AND begins_with(#sortKey, :sortKey)" )
        $util.qr($modelQueryExpression.expressionValues.put(":sortKey", $util.dynamodb.toDynamoDB("${skOps.eq}{{separator}}")))
      #else
        $util.qr($rest.add($second))
      #end
      #foreach( $clause in $filter.and )
        #if( $foreach.index > 1 )
          $util.qr($rest.add($clause))
        #end
      #end
      #if( $rest.isEmpty() )
        $util.qr($filter.remove("and"))
      #else
        $util.qr($filter.put("and", $rest))
      #end
      #if( !$util.isNullOrEmpty($indexName) )
        $util.qr($ctx.stash.put("indexName", $indexName))
      #end
      $util.qr($ctx.stash.put("modelQueryExpression", $modelQueryExpression))
    #end
  #end
#end
$util.qr($ctx.stash.put("operation", $operation))
$util.qr($ctx.stash.put("filter", $filter))
## [End] Select the sync index. **
{{end}}
`

func opSymbol(op keycond.Op) string {
	switch op {
	case keycond.OpEq:
		return "="
	case keycond.OpLe:
		return "<="
	case keycond.OpLt:
		return "<"
	case keycond.OpGe:
		return ">="
	case keycond.OpGt:
		return ">"
	}
	return string(op)
}

package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB limits on secondary indexes per table.
const (
	MaxLSIs = 5
	MaxGSIs = 20
)

var (
	ErrDuplicateIndex = errors.New("duplicate index name")
	ErrIndexLimit     = errors.New("index limit exceeded")
	ErrLSIKey         = errors.New("invalid local secondary index key")
)

type BillingMode string

const (
	BillingProvisioned   BillingMode = "PROVISIONED"
	BillingPayPerRequest BillingMode = "PAY_PER_REQUEST"
)

// Provisioning is the read/write capacity of a table or global index.
type Provisioning struct {
	Read  int64
	Write int64
}

// TableDefinition is the single description of a physical table. Both the
// CreateTable request and the serialized schema are derived from it.
type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	BillingMode    BillingMode
	Provisioning   *Provisioning
	LSIs           []LSIDefinition
	GSIs           []GSIDefinition
}

// LSIDefinition represents a Local Secondary Index definition. It shares the
// table's partition key and always projects all attributes.
type LSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Provisioning   *Provisioning
}

// AddLSI appends a local index after checking it against the table's key and the
// per-table limit.
func (t *TableDefinition) AddLSI(lsi LSIDefinition) error {
	if t.hasIndex(lsi.Name) {
		return fmt.Errorf("table %q: %w %q", t.Name, ErrDuplicateIndex, lsi.Name)
	}
	if len(t.LSIs) >= MaxLSIs {
		return fmt.Errorf("table %q: %w: at most %d local secondary indexes", t.Name, ErrIndexLimit, MaxLSIs)
	}
	if lsi.KeyDefinitions.PartitionKey != t.KeyDefinitions.PartitionKey {
		return fmt.Errorf("table %q index %q: %w: partition key %q must match table partition key %q",
			t.Name, lsi.Name, ErrLSIKey, lsi.KeyDefinitions.PartitionKey.Name, t.KeyDefinitions.PartitionKey.Name)
	}
	if !lsi.KeyDefinitions.HasSortKey() {
		return fmt.Errorf("table %q index %q: %w: sort key is required", t.Name, lsi.Name, ErrLSIKey)
	}
	if !t.KeyDefinitions.HasSortKey() {
		return fmt.Errorf("table %q index %q: %w: table has no sort key", t.Name, lsi.Name, ErrLSIKey)
	}
	t.LSIs = append(t.LSIs, lsi)
	return nil
}

// AddGSI appends a global index after checking the per-table limit.
func (t *TableDefinition) AddGSI(gsi GSIDefinition) error {
	if t.hasIndex(gsi.Name) {
		return fmt.Errorf("table %q: %w %q", t.Name, ErrDuplicateIndex, gsi.Name)
	}
	if len(t.GSIs) >= MaxGSIs {
		return fmt.Errorf("table %q: %w: at most %d global secondary indexes", t.Name, ErrIndexLimit, MaxGSIs)
	}
	t.GSIs = append(t.GSIs, gsi)
	return nil
}

func (t TableDefinition) hasIndex(name string) bool {
	_, ok := t.Index(name)
	return ok && name != ""
}

// Index returns the key definition of the named index. The empty name refers
// to the table's own key.
func (t TableDefinition) Index(name string) (PrimaryKeyDefinition, bool) {
	if name == "" {
		return t.KeyDefinitions, true
	}
	for _, lsi := range t.LSIs {
		if lsi.Name == name {
			return lsi.KeyDefinitions, true
		}
	}
	for _, gsi := range t.GSIs {
		if gsi.Name == name {
			return gsi.KeyDefinitions, true
		}
	}
	return PrimaryKeyDefinition{}, false
}

// AttributeDefinitions lists every key attribute used by the table or one of
// its indexes, in order of first use.
func (t TableDefinition) AttributeDefinitions() []types.AttributeDefinition {
	seen := make(map[string]bool)
	var defs []types.AttributeDefinition
	add := func(k KeyDef) {
		if k.IsZero() || seen[k.Name] {
			return
		}
		seen[k.Name] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(k.Name),
			AttributeType: k.Kind.ScalarAttributeType(),
		})
	}
	add(t.KeyDefinitions.PartitionKey)
	add(t.KeyDefinitions.SortKey)
	for _, lsi := range t.LSIs {
		add(lsi.KeyDefinitions.PartitionKey)
		add(lsi.KeyDefinitions.SortKey)
	}
	for _, gsi := range t.GSIs {
		add(gsi.KeyDefinitions.PartitionKey)
		add(gsi.KeyDefinitions.SortKey)
	}
	return defs
}

func (t TableDefinition) billingMode() BillingMode {
	if t.BillingMode == "" {
		return BillingProvisioned
	}
	return t.BillingMode
}

// CreateTableInput derives the CreateTable request for the table.
func (t TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	mode := t.billingMode()
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: t.AttributeDefinitions(),
		KeySchema:            t.KeyDefinitions.KeySchema(),
		BillingMode:          types.BillingMode(mode),
	}
	if mode == BillingProvisioned {
		in.ProvisionedThroughput = throughput(t.Provisioning)
	}
	for _, lsi := range t.LSIs {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  lsi.KeyDefinitions.KeySchema(),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	for _, gsi := range t.GSIs {
		g := types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  gsi.KeyDefinitions.KeySchema(),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
		if mode == BillingProvisioned {
			g.ProvisionedThroughput = throughput(gsi.Provisioning)
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, g)
	}
	return in
}

// DefaultProvisioning is used when a provisioned table or index sets no capacity.
var DefaultProvisioning = Provisioning{Read: 5, Write: 5}

func throughput(p *Provisioning) *types.ProvisionedThroughput {
	if p == nil {
		p = &DefaultProvisioning
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(p.Read),
		WriteCapacityUnits: aws.Int64(p.Write),
	}
}

func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		panic(fmt.Sprintf("unsupported attribute value %T for dynamodb keys", v))
	}
}

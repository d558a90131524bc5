package core

// OperationKind is used to identify what kind of operation is being performed by migration.
type OperationKind string

const (
	OperationSQL  OperationKind = "SQL"
	OperationNote OperationKind = "NOTE"
)

// Action names the schema change a SQL operation makes.
type Action string

const (
	ActionCreateTable  Action = "create_table"
	ActionCreateColumn Action = "create_column"
	ActionAlterColumn  Action = "alter_column"
	ActionCreateIndex  Action = "create_index"
	ActionDropIndex    Action = "drop_index"
)

// OperationRisk is used to identify the risk level of an operation.
type OperationRisk string

const (
	RiskInfo    OperationRisk = "INFO"
	RiskWarning OperationRisk = "WARNING"
)

// Risk returns the risk level of an action. Altering a column may rewrite or
// reject existing rows; dropping an index is always followed by recreating it.
func (a Action) Risk() OperationRisk {
	switch a {
	case ActionAlterColumn, ActionDropIndex:
		return RiskWarning
	default:
		return RiskInfo
	}
}

// Operation struct contains all information about a single operation of migration.
type Operation struct {
	Kind   OperationKind `json:"kind"`
	Action Action        `json:"action,omitempty"`

	// Table is the unprefixed table name; Object is the column or index name.
	Table  string `json:"table,omitempty"`
	Object string `json:"object,omitempty"`

	SQL  string        `json:"sql,omitempty"`
	Risk OperationRisk `json:"risk,omitempty"`
}

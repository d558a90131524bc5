package apply

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // required to register TiDB parser driver implementations
)

// Preflight contains the warnings raised for a list of statements before any of
// them is executed.
type Preflight struct {
	Warnings []Warning
}

// Warning contains a Level of a warning, message, and actual SQL from migration.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// HasDestructive reports whether any statement would destroy data.
func (p *Preflight) HasDestructive() bool {
	for _, w := range p.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

// StatementAnalysis contains the results of analyzing a SQL statement.
type StatementAnalysis struct {
	StatementType     string
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
}

// StatementAnalyzer classifies DDL with TiDB's MySQL parser. Statements it cannot
// parse, such as PostgreSQL or SQLite DDL with double-quoted identifiers, are
// classified by keyword instead.
type StatementAnalyzer struct {
	mu     sync.Mutex
	parser *parser.Parser
}

// NewStatementAnalyzer creates a new AST-based statement analyzer.
func NewStatementAnalyzer() *StatementAnalyzer {
	return &StatementAnalyzer{parser: parser.New()}
}

// AnalyzeStatements analyzes every statement and collects the warnings.
func (a *StatementAnalyzer) AnalyzeStatements(statements []string) *Preflight {
	result := &Preflight{}
	for _, stmt := range statements {
		analysis := a.AnalyzeStatement(stmt)
		for _, reason := range analysis.BlockingReasons {
			result.Warnings = append(result.Warnings, Warning{
				Level:   WarnCaution,
				Message: fmt.Sprintf("Potentially blocking DDL: %s", reason),
				SQL:     stmt,
			})
		}
		if analysis.IsDestructive {
			result.Warnings = append(result.Warnings, Warning{
				Level:   WarnDanger,
				Message: analysis.DestructiveReason,
				SQL:     stmt,
			})
		}
	}
	return result
}

// AnalyzeStatement parses a single SQL statement and returns analysis results.
func (a *StatementAnalyzer) AnalyzeStatement(sql string) *StatementAnalysis {
	a.mu.Lock()
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	a.mu.Unlock()

	if err != nil || len(stmtNodes) == 0 {
		return analyzeKeywords(sql)
	}
	return analyzeNode(stmtNodes[0])
}

func analyzeNode(node ast.StmtNode) *StatementAnalysis {
	analysis := &StatementAnalysis{}
	switch stmt := node.(type) {
	case *ast.DropTableStmt:
		analysis.StatementType = "DROP TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
	case *ast.DropDatabaseStmt:
		analysis.StatementType = "DROP DATABASE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP DATABASE will permanently delete the entire database"
	case *ast.TruncateTableStmt:
		analysis.StatementType = "TRUNCATE TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "TRUNCATE TABLE will delete all rows from the table"
	case *ast.DeleteStmt:
		analysis.StatementType = "DELETE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
	case *ast.DropIndexStmt:
		analysis.StatementType = "DROP INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "DROP INDEX may briefly lock the table")
	case *ast.CreateIndexStmt:
		analysis.StatementType = "CREATE INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "CREATE INDEX may lock the table for the duration of index creation")
	case *ast.CreateTableStmt:
		analysis.StatementType = "CREATE TABLE"
	case *ast.AlterTableStmt:
		analysis.StatementType = "ALTER TABLE"
		for _, spec := range stmt.Specs {
			analyzeAlterTableSpec(spec, analysis)
		}
	default:
		analysis.StatementType = "OTHER"
	}
	return analysis
}

func analyzeAlterTableSpec(spec *ast.AlterTableSpec, analysis *StatementAnalysis) {
	switch spec.Tp {
	case ast.AlterTableDropColumn:
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP COLUMN will permanently delete the column and its data"
	case ast.AlterTableDropPrimaryKey:
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "DROP PRIMARY KEY requires a full table rebuild and will lock the table")
	case ast.AlterTableAddColumns:
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "ADD COLUMN may require a table rebuild depending on MySQL version and column position")
	case ast.AlterTableModifyColumn, ast.AlterTableChangeColumn, ast.AlterTableAlterColumn:
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "changing a column may require a table rebuild if its type or size changes")
	}
}

// destructiveKeywords are matched against statements the parser rejected.
var destructiveKeywords = []struct {
	prefix, contains, reason string
}{
	{prefix: "DROP TABLE", reason: "DROP TABLE will permanently delete the table and all its data"},
	{prefix: "DROP DATABASE", reason: "DROP DATABASE will permanently delete the entire database"},
	{prefix: "DROP SCHEMA", reason: "DROP SCHEMA will permanently delete the schema and its tables"},
	{prefix: "TRUNCATE", reason: "TRUNCATE TABLE will delete all rows from the table"},
	{prefix: "DELETE", reason: "DELETE will remove rows from the table"},
	{prefix: "ALTER TABLE", contains: " DROP COLUMN ", reason: "DROP COLUMN will permanently delete the column and its data"},
}

func analyzeKeywords(sql string) *StatementAnalysis {
	upper := strings.Join(strings.Fields(strings.ToUpper(sql)), " ")
	analysis := &StatementAnalysis{StatementType: "UNPARSEABLE"}

	for _, k := range destructiveKeywords {
		if !strings.HasPrefix(upper, k.prefix) {
			continue
		}
		if k.contains != "" && !strings.Contains(upper, k.contains) {
			continue
		}
		analysis.StatementType = k.prefix
		analysis.IsDestructive = true
		analysis.DestructiveReason = k.reason
		return analysis
	}

	switch {
	case strings.HasPrefix(upper, "CREATE INDEX"), strings.HasPrefix(upper, "CREATE UNIQUE INDEX"):
		analysis.StatementType = "CREATE INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "CREATE INDEX may lock the table for the duration of index creation")
	case strings.HasPrefix(upper, "DROP INDEX"):
		analysis.StatementType = "DROP INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "DROP INDEX may briefly lock the table")
	case strings.HasPrefix(upper, "ALTER TABLE") && strings.Contains(upper, " ALTER COLUMN "):
		analysis.StatementType = "ALTER TABLE"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "changing a column may require a table rebuild if its type or size changes")
	}
	return analysis
}

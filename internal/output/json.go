package output

import (
	"encoding/json"

	"schemasync/internal/core"
	"schemasync/internal/migration"
)

type jsonFormatter struct{}

type planSummary struct {
	Schemas       int `json:"schemas"`
	SQLStatements int `json:"sqlStatements"`
	Warnings      int `json:"warnings"`
	Notes         int `json:"notes"`
}

type migrationPayload struct {
	Schema     string           `json:"schema"`
	Connection string           `json:"connection"`
	Dialect    core.Dialect     `json:"dialect"`
	Notes      []string         `json:"notes,omitempty"`
	SQL        []string         `json:"sql"`
	Operations []core.Operation `json:"operations,omitempty"`
}

type planPayload struct {
	Format     string             `json:"format"`
	Summary    planSummary        `json:"summary"`
	Migrations []migrationPayload `json:"migrations"`
}

func (jsonFormatter) FormatMigrations(ms []*migration.Migration) (string, error) {
	payload := planPayload{Format: string(FormatJSON), Migrations: []migrationPayload{}}
	for _, m := range ms {
		if m == nil {
			continue
		}
		notes := m.InfoNotes()
		sql := normalizeStatements(m.SQLStatements())

		payload.Migrations = append(payload.Migrations, migrationPayload{
			Schema:     m.Schema,
			Connection: m.Connection,
			Dialect:    m.Dialect,
			Notes:      notes,
			SQL:        sql,
			Operations: m.Plan(),
		})
		payload.Summary.Schemas++
		payload.Summary.SQLStatements += len(sql)
		payload.Summary.Warnings += len(m.Warnings())
		payload.Summary.Notes += len(notes)
	}
	return marshalJSON(payload)
}

func marshalJSON(payload planPayload) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

package store

import (
	"context"
	"fmt"

	"deltapronet/api/internal/util"
)

type seedSkill struct {
	name string
	typ  string
}

var seedAreas = []struct {
	name        string
	description string
	skills      []seedSkill
}{
	{
		name:        "Technical Architect",
		description: "Overall technical architecture and system design",
		skills: []seedSkill{
			{name: "Algemene kennis Electronica", typ: "GENERAL"},
			{name: "Algemene kennis Mechanica", typ: "GENERAL"},
			{name: "Algemene kennis Software", typ: "GENERAL"},
			{name: "Ontwerp Methodologie", typ: "GENERAL"},
			{name: "Lean Manufacturing", typ: "GENERAL"},
		},
	},
	{
		name:        "Electronica",
		description: "Electronics engineering and design",
		skills: []seedSkill{
			{name: "Hoogfrequent", typ: "GENERAL"},
			{name: "Dataopslag", typ: "GENERAL"},
			{name: "ESD", typ: "GENERAL"},
			{name: "Sensoren", typ: "GENERAL"},
			{name: "Voeding", typ: "GENERAL"},
		},
	},
	{
		name:        "Mechanica",
		description: "Mechanical engineering and design",
		skills: []seedSkill{
			{name: "Vormgeving", typ: "GENERAL"},
			{name: "Kunststof engineering en productie", typ: "GENERAL"},
			{name: "Metaal engineering en productie", typ: "GENERAL"},
			{name: "Plaatwerk engineering en productie", typ: "GENERAL"},
			{name: "SolidWorks CAD", typ: "TOOL"},
			{name: "SolidWorks CAM", typ: "TOOL"},
			{name: "ProEngineer", typ: "TOOL"},
			{name: "Fusion CAD", typ: "TOOL"},
			{name: "Fusion CAM", typ: "TOOL"},
		},
	},
	{
		name:        "Software",
		description: "Software development and engineering",
		skills: []seedSkill{
			{name: "Architectuur", typ: "GENERAL"},
			{name: "Data analyse", typ: "GENERAL"},
			{name: "Back-end", typ: "GENERAL"},
			{name: "Front-end", typ: "GENERAL"},
			{name: "Embedded", typ: "GENERAL"},
			{name: "Assembly", typ: "LANGUAGE"},
			{name: "C", typ: "LANGUAGE"},
			{name: "C++", typ: "LANGUAGE"},
			{name: "Javascript", typ: "LANGUAGE"},
			{name: "Java", typ: "LANGUAGE"},
			{name: "Python", typ: "LANGUAGE"},
			{name: "VHDL", typ: "LANGUAGE"},
		},
	},
}

// EnsureSeedData loads the expertise area and skill reference data. Inserts
// are idempotent on the unique keys, so reruns at boot are harmless.
func (s *PostgresStore) EnsureSeedData(ctx context.Context) error {
	for areaOrder, area := range seedAreas {
		var areaID string
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO expertise_areas (id, name, description, sort_order)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET description=EXCLUDED.description, sort_order=EXCLUDED.sort_order
			RETURNING id
		`, util.NewID("area"), area.name, area.description, areaOrder+1).Scan(&areaID)
		if err != nil {
			return fmt.Errorf("seed expertise area %s: %w", area.name, err)
		}

		for skillOrder, skill := range area.skills {
			if _, err := s.db.ExecContext(ctx, `
				INSERT INTO skills (id, name, type, expertise_area_id, sort_order)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (name, expertise_area_id) DO NOTHING
			`, util.NewID("skl"), skill.name, skill.typ, areaID, skillOrder+1); err != nil {
				return fmt.Errorf("seed skill %s: %w", skill.name, err)
			}
		}
	}
	return nil
}

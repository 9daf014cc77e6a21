// Package record is the JSON wire form of a project row shared by the SQL
// store adapters. Points and mattes live inside the record blob, mirroring
// the single-key project keyspace; the video hash is duplicated into its own
// column so reference counting never decodes blobs.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matting-studio/internal/core/domain"
)

type pointJSON struct {
	UUID  string `json:"uuid"`
	Frame int    `json:"frame"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

type projectJSON struct {
	UUID         string         `json:"uuid"`
	VideoHash    string         `json:"videoHash"`
	Name         string         `json:"name"`
	Thumbnail    []byte         `json:"thumbnail,omitempty"`
	LastAccessed time.Time      `json:"lastAccessed"`
	Start        int            `json:"start"`
	Finish       int            `json:"finish"`
	Points       []pointJSON    `json:"points,omitempty"`
	Mattings     map[int][]byte `json:"mattings,omitempty"`
}

func EncodeProject(p *domain.Project) ([]byte, error) {
	rec := projectJSON{
		UUID:         p.UUID,
		VideoHash:    p.VideoHash,
		Name:         p.Name,
		Thumbnail:    p.Thumbnail,
		LastAccessed: p.LastAccessed,
		Start:        p.Range.Start,
		Finish:       p.Range.Finish,
		Mattings:     p.Mattings,
	}
	for _, pt := range p.Points {
		rec.Points = append(rec.Points, pointJSON(pt))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding project %s: %w", p.UUID, err)
	}
	return data, nil
}

func DecodeProject(data []byte) (*domain.Project, error) {
	var rec projectJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding project record: %w", err)
	}
	project := &domain.Project{
		UUID:         rec.UUID,
		VideoHash:    rec.VideoHash,
		Name:         rec.Name,
		Thumbnail:    rec.Thumbnail,
		LastAccessed: rec.LastAccessed,
		Range:        domain.FrameRange{Start: rec.Start, Finish: rec.Finish},
		Mattings:     rec.Mattings,
	}
	for _, pt := range rec.Points {
		project.Points = append(project.Points, domain.Point(pt))
	}
	return project, nil
}

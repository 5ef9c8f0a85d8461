package model

import (
	"strconv"
	"strings"
)

// MetadataFilter narrows a similarity search. Every key must match; a key
// matches when any of its values equals (case-insensitively) the chunk's value
// or, for list fields, any element of the list.
type MetadataFilter map[string][]string

const (
	FilterKeyDocumentID      = "document_id"
	FilterKeyTitle           = "title"
	FilterKeyType            = "type"
	FilterKeySource          = "source"
	FilterKeyProjectName     = "project_name"
	FilterKeyTechnologies    = "technologies"
	FilterKeySkills          = "skills"
	FilterKeyYearsExperience = "years_experience"
)

func (f MetadataFilter) Empty() bool {
	for _, values := range f {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

func (f MetadataFilter) Matches(meta ChunkMetadata) bool {
	for key, wanted := range f {
		if len(wanted) == 0 {
			continue
		}
		if !anyEqualFold(meta.Values(key), wanted) {
			return false
		}
	}
	return true
}

// Values returns the metadata values addressed by a filter key.
func (m ChunkMetadata) Values(key string) []string {
	switch key {
	case FilterKeyDocumentID:
		return nonEmpty(m.DocumentID)
	case FilterKeyTitle:
		return nonEmpty(m.Title)
	case FilterKeyType:
		return nonEmpty(string(m.Type))
	case FilterKeySource:
		return nonEmpty(m.Source)
	case FilterKeyProjectName:
		return nonEmpty(m.ProjectName)
	case FilterKeyTechnologies:
		return m.Technologies
	case FilterKeySkills:
		return m.Skills
	case FilterKeyYearsExperience:
		if m.YearsExperience == 0 {
			return nil
		}
		return []string{strconv.Itoa(m.YearsExperience)}
	default:
		return nil
	}
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

func anyEqualFold(have, wanted []string) bool {
	for _, h := range have {
		for _, w := range wanted {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

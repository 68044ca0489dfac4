package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// Format writes v as indented JSON
func (f *Formatter) Format(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatContributions formats a list of contributions as JSON
func (f *Formatter) FormatContributions(dtos []ContributionDTO) error {
	return f.Format(dtos)
}

// FormatEntities formats a list of entities as JSON
func (f *Formatter) FormatEntities(dtos []EntityDTO) error {
	return f.Format(dtos)
}

// FormatCategories formats a list of categories as JSON
func (f *Formatter) FormatCategories(dtos []CategoryDTO) error {
	return f.Format(dtos)
}

// FormatExtensions formats a list of extensions as JSON
func (f *Formatter) FormatExtensions(dtos []ExtensionDTO) error {
	return f.Format(dtos)
}

// FormatHotbars formats a list of hotbars as JSON
func (f *Formatter) FormatHotbars(dtos []HotbarDTO) error {
	return f.Format(dtos)
}

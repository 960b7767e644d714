package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// CreateInputGroup builds a single-input form group, for composing multi-step forms
func CreateInputGroup(title, placeholder, description string, validator func(string) error, value *string) *huh.Group {
	input := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Description(description).
		Value(value)

	if validator != nil {
		input.Validate(validator)
	}

	return huh.NewGroup(input)
}

// CreateConfirmGroup builds a yes/no form group with custom button labels
func CreateConfirmGroup(title, description, affirmative, negative string, value *bool) *huh.Group {
	return huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative(affirmative).
			Negative(negative).
			Value(value),
	)
}

// CreateInputForm builds a standalone single-input form
func CreateInputForm(title, placeholder, description string, validator func(string) error, value *string) *huh.Form {
	return huh.NewForm(CreateInputGroup(title, placeholder, description, validator, value))
}

// CreateConfirmForm builds a standalone yes/no form
func CreateConfirmForm(title, description, affirmative, negative string, value *bool) *huh.Form {
	return huh.NewForm(CreateConfirmGroup(title, description, affirmative, negative, value))
}

// CreateSelectForm builds a single-choice form
func CreateSelectForm(title, description string, options []huh.Option[string], value *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Description(description).
				Options(options...).
				Value(value),
		),
	)
}

// CreateMultiSelectForm builds a multiple-choice form
func CreateMultiSelectForm(title, description string, options []huh.Option[string], value *[]string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Description(description).
				Options(options...).
				Value(value),
		),
	)
}

// CreateNoteForm builds a form that only displays a note
func CreateNoteForm(title, description string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(title).
				Description(description),
		),
	)
}

// CollectWithForm runs a form and wraps any error with a context message
func CollectWithForm(form *huh.Form, errorMsg string) error {
	if err := form.Run(); err != nil {
		return fmt.Errorf("%s: %w", errorMsg, err)
	}
	return nil
}

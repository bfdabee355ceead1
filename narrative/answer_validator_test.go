package narrative_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/narrative"
)

func TestAnswerValidatorEntityPattern(t *testing.T) {
	v := narrative.NewAnswerValidator()
	sheet := &domain.AnswerSheet{Variant: domain.AnswerEntity, ParamName: "order_id", Pattern: `^ORD-\d+$`}

	assert.NoError(t, v.Validate(sheet, "ORD-1234"))
	assert.Error(t, v.Validate(sheet, "not-an-order"))
}

func TestAnswerValidatorSingleChoiceEnum(t *testing.T) {
	v := narrative.NewAnswerValidator()
	sheet := &domain.AnswerSheet{
		Variant:   domain.AnswerSingleChoice,
		ParamName: "reason",
		Options: []domain.AnswerOption{
			{Key: "not_received", Aliases: []string{"missing"}},
			{Key: "damaged"},
		},
	}

	assert.NoError(t, v.Validate(sheet, "not_received"))
	assert.NoError(t, v.Validate(sheet, "missing"))
	assert.Error(t, v.Validate(sheet, "refund"))
}

func TestAnswerValidatorMultipleChoiceBounds(t *testing.T) {
	v := narrative.NewAnswerValidator()
	sheet := &domain.AnswerSheet{
		Variant:   domain.AnswerMultipleChoice,
		ParamName: "items",
		MinSelect: 1,
		MaxSelect: 2,
		Options: []domain.AnswerOption{
			{Key: "a"}, {Key: "b"}, {Key: "c"},
		},
	}

	assert.NoError(t, v.Validate(sheet, []string{"a", "b"}))
	assert.Error(t, v.Validate(sheet, []string{}))
	assert.Error(t, v.Validate(sheet, []string{"a", "b", "c"}))
}

func TestAnswerValidatorTextLength(t *testing.T) {
	v := narrative.NewAnswerValidator()
	sheet := &domain.AnswerSheet{Variant: domain.AnswerText, ParamName: "notes", MinLength: 3, MaxLength: 10}

	assert.NoError(t, v.Validate(sheet, "hello"))
	assert.Error(t, v.Validate(sheet, "hi"))
	assert.Error(t, v.Validate(sheet, "this is far too long"))
}

func TestAnswerValidatorConfirmationDefaultsYesNo(t *testing.T) {
	v := narrative.NewAnswerValidator()
	sheet := &domain.AnswerSheet{Variant: domain.AnswerConfirmation, ParamName: "confirm"}

	assert.NoError(t, v.Validate(sheet, "yes"))
	assert.Error(t, v.Validate(sheet, "maybe"))
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
)

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	message       func(field string, param string) string
}

func New(logger logger.Logger) (*Validator, error) {
	validator := &Validator{validator: validator.New(), logger: logger}
	validator.validator.RegisterTagNameFunc(useJSONFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

// Validate returns a validation error describing the first failed rule.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	v.logger.Warn("validation failed", "err", err.Error())
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return errs.Validation("invalid request")
	}

	first := validationErrs[0]
	if details, ok := v.getTagValidationDetails()[first.Tag()]; ok {
		return errs.Validation(details.message(first.Field(), first.Param()))
	}

	switch first.Tag() {
	case "required":
		return errs.Validation(fmt.Sprintf("missing required field '%s'", first.Field()))
	case "email":
		return errs.Validation(fmt.Sprintf("field '%s' must be a valid email address", first.Field()))
	case "min", "max":
		return errs.Validation(fmt.Sprintf("value or length of field '%s' is not in the expected range", first.Field()))
	}

	return errs.Validation(fmt.Sprintf("field '%s' is invalid", first.Field()))
}

func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"not_blank": {
				validatorFunc: isNotBlank,
				message: func(field string, _ string) string {
					return fmt.Sprintf("missing required field '%s'", field)
				},
			},
			"min_trimmed": {
				validatorFunc: v.hasMinTrimmedLength,
				message: func(field string, param string) string {
					return fmt.Sprintf("field '%s' must have at least %s characters", field, param)
				},
			},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register custom validator function", "tag", tag, "err", err.Error())
			return err
		}
	}
	return nil
}

func useJSONFieldNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *Validator) hasMinTrimmedLength(fl validator.FieldLevel) bool {
	minimum, err := strconv.Atoi(fl.Param())
	if err != nil {
		v.logger.Error("min_trimmed needs an integer parameter", "param", fl.Param())
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= minimum
}

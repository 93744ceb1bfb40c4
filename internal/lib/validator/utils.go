package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"movieweb/proj/internal/domain/fields"
	"movieweb/proj/internal/domain/filters"

	govalidator "github.com/go-playground/validator/v10"
)

// New returns a validator with the custom tags used across the domain registered.
func New() *govalidator.Validate {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	must := func(tag string, fn govalidator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("rating", ValidateRating)
	must("movieyear", ValidateMovieYear)
	must("sortsafelist", ValidateSortSafelist)
	must("notblank", ValidateNotBlank)
	return v
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func structType(obj any) reflect.Type {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func getFieldName(obj any, origFieldName string) (fieldName string) {
	t := structType(obj)
	field, found := t.FieldByName(origFieldName)
	if !found {
		return camelToSnake(origFieldName)
	}
	if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
		jsonName := strings.Split(tag, ",")[0]
		if jsonName != "" {
			return jsonName
		}
	}
	return camelToSnake(origFieldName)
}

func ProcessValidationErrors(obj any, errs govalidator.ValidationErrors) map[string]string {
	processedErrors := make(map[string]string)
	for _, e := range errs {
		processedErrors[getFieldName(obj, e.StructField())] = GetErrorMsgForField(obj, e)
	}
	return processedErrors
}

func ValidateStruct(validator *govalidator.Validate, obj any) (validationErrs map[string]string) {
	if err := validator.Struct(obj); err != nil {
		errs, ok := err.(govalidator.ValidationErrors)
		if !ok {
			panic(err)
		}
		validationErrs = ProcessValidationErrors(obj, errs)
	}
	return
}

func GetErrorMsgForField(obj any, err govalidator.FieldError) (errorMsg string) {
	if field, found := structType(obj).FieldByName(err.StructField()); found {
		errorMsg = field.Tag.Get("errorMsg")
	}
	if errorMsg == "" {
		switch err.Tag() {
		case "required", "notblank":
			errorMsg = "This field is required"
		case "max":
			errorMsg = fmt.Sprintf("The maximum value is %s", err.Param())
		case "min":
			errorMsg = fmt.Sprintf("The minimum value is %s", err.Param())
		case "gte":
			errorMsg = fmt.Sprintf("Value should be greater than or equal to %s", err.Param())
		case "lte":
			errorMsg = fmt.Sprintf("Value should be less than or equal to %s", err.Param())
		case "lt":
			errorMsg = fmt.Sprintf("Value should be less than %s", err.Param())
		case "gt":
			errorMsg = fmt.Sprintf("Value should be greater than %s", err.Param())
		case "oneof":
			errorMsg = fmt.Sprintf("Value should be one of %s", err.Param())
		case "len":
			errorMsg = fmt.Sprintf("Length should be equal to %s", err.Param())
		case "url":
			errorMsg = "Value must be a valid URL"
		case "alphanum":
			errorMsg = "Value must be alphanumeric"
		case "rating":
			errorMsg = fmt.Sprintf("Rating must be between %.0f and %.0f in steps of %.1f", fields.MinRating, fields.MaxRating, fields.RatingStep)
		case "movieyear":
			errorMsg = fmt.Sprintf("Year must be between %d and %d", fields.MinMovieYear, time.Now().Year())
		case "sortsafelist":
			errorMsg = "Value must be a name of one of the sortable movie fields (e.g. title, -year, etc...)"
		default:
			errorMsg = "This field is invalid"
		}
	}
	return
}

// CUSTOM VALIDATORS

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func ValidateRating(fl govalidator.FieldLevel) bool {
	v := deref(fl.Field())
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return fields.ValidRating(v.Float())
	case reflect.Ptr:
		return true
	}
	return false
}

func ValidateMovieYear(fl govalidator.FieldLevel) bool {
	v := deref(fl.Field())
	switch v.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return fields.ValidMovieYear(v.Int(), time.Now())
	case reflect.Ptr:
		return true
	}
	return false
}

func ValidateSortSafelist(fl govalidator.FieldLevel) bool {
	safelist := filters.MovieSortSafelist
	if parent := deref(fl.Parent()); parent.Kind() == reflect.Struct {
		if f := parent.FieldByName("SortSafelist"); f.IsValid() && f.Len() > 0 {
			safelist = f.Interface().([]string)
		}
	}
	f := filters.Filters{SortSafelist: safelist}
	return f.Permitted(fl.Field().String())
}

func ValidateNotBlank(fl govalidator.FieldLevel) bool {
	v := deref(fl.Field())
	if v.Kind() != reflect.String {
		return v.Kind() != reflect.Ptr
	}
	return strings.TrimSpace(v.String()) != ""
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError reports a single invalid request field using its json name, not
// the Go struct field name.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes the request body into out and writes a 400 with
// field-level details on failure. Returns false when the handler should stop.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, "invalid_request", "Invalid request body", bindErrorDetails(err, out))

		return false
	}

	return true
}

func bindErrorDetails(err error, out interface{}) interface{} {
	rootType := baseStructType(out)

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return gin.H{"fields": tagViolations(rootType, vErrs)}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeMismatchDetails(rootType, typeErr)
	}

	return gin.H{"reason": err.Error()}
}

func tagViolations(rootType reflect.Type, vErrs validator.ValidationErrors) []FieldError {
	fields := make([]FieldError, 0, len(vErrs))

	for _, fe := range vErrs {
		fields = append(fields, FieldError{
			Field:   jsonFieldName(rootType, fe.Field()),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: validationMessage(fe.Tag(), fe.Param()),
		})
	}

	return fields
}

func typeMismatchDetails(rootType reflect.Type, typeErr *json.UnmarshalTypeError) gin.H {
	field := jsonFieldName(rootType, typeErr.Field)

	return gin.H{
		"json":  "invalid_json_type",
		"field": field,
		"fields": []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
		}},
	}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	return t
}

// jsonFieldName maps a struct field name to its json tag. Request payloads
// here are flat structs, so no nested path handling is needed.
func jsonFieldName(rootType reflect.Type, fieldName string) string {
	fieldName = strings.TrimSpace(fieldName)

	if rootType == nil || fieldName == "" {
		return fieldName
	}

	sf, ok := rootType.FieldByName(fieldName)
	if !ok {
		return fieldName
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fieldName
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}

		return "failed " + rule + " validation"
	}
}
